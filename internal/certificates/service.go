package certificates

import (
	"math/big"
	"time"

	"carbon-registry/registry-backend/internal/domain"
	"carbon-registry/registry-backend/internal/events"
	"carbon-registry/registry-backend/internal/roles"
	"carbon-registry/registry-backend/pkg/guard"
)

// Service mints and serves retirement certificates.
type Service struct {
	g      *guard.Guard
	roles  *roles.Set
	events events.Recorder

	certs   []*Certificate
	byOwner map[string][]uint64
}

func NewService(rs *roles.Set, rec events.Recorder) *Service {
	return &Service{
		g:       guard.New(),
		roles:   rs,
		events:  rec,
		byOwner: make(map[string][]uint64),
	}
}

// MintCertificate records an attestation for to. Requires the Minter
// capability.
func (s *Service) MintCertificate(caller, to string, creditsRetired *big.Int, creditID uint64, projectName, uri string) (uint64, error) {
	if err := s.g.Enter(); err != nil {
		return 0, err
	}
	defer s.g.Exit()

	if err := s.roles.Require(caller, roles.Minter); err != nil {
		return 0, err
	}
	if to == "" {
		return 0, domain.Validationf("recipient is required")
	}
	if creditsRetired == nil || creditsRetired.Sign() <= 0 {
		return 0, domain.Validationf("credits retired must be positive")
	}

	tokenID := uint64(len(s.certs))
	s.certs = append(s.certs, &Certificate{
		TokenID:        tokenID,
		Owner:          to,
		CreditsRetired: new(big.Int).Set(creditsRetired),
		CreditID:       creditID,
		ProjectName:    projectName,
		RetiredBy:      to,
		RetiredAt:      time.Now().UTC(),
		URI:            uri,
	})
	s.byOwner[to] = append(s.byOwner[to], tokenID)

	s.events.Record(events.TypeCertificateMinted, to, tokenID, map[string]interface{}{
		"credit_id": creditID,
		"amount":    creditsRetired.String(),
	})
	return tokenID, nil
}

// GetCertificate returns the certificate record for tokenID.
func (s *Service) GetCertificate(tokenID uint64) (*Certificate, error) {
	if err := s.g.Enter(); err != nil {
		return nil, err
	}
	defer s.g.Exit()
	if tokenID >= uint64(len(s.certs)) {
		return nil, domain.NotFoundf("certificate %d", tokenID)
	}
	return s.certs[tokenID].clone(), nil
}

// GetOwnerCertificates returns the token ids held by owner, oldest first.
func (s *Service) GetOwnerCertificates(owner string) ([]uint64, error) {
	if err := s.g.Enter(); err != nil {
		return nil, err
	}
	defer s.g.Exit()
	out := make([]uint64, len(s.byOwner[owner]))
	copy(out, s.byOwner[owner])
	return out, nil
}
