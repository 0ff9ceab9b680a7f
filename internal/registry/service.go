package registry

import (
	"math/big"
	"time"

	"carbon-registry/registry-backend/internal/domain"
	"carbon-registry/registry-backend/internal/events"
	"carbon-registry/registry-backend/internal/roles"
	"carbon-registry/registry-backend/pkg/guard"
)

// Service governs issuers and projects. Privileged transitions are gated on
// the Verifier and Admin capabilities.
type Service struct {
	g      *guard.Guard
	roles  *roles.Set
	events events.Recorder

	issuers               map[string]*Issuer
	projects              []*Project
	totalVerifiedProjects uint64
}

func NewService(rs *roles.Set, rec events.Recorder) *Service {
	return &Service{
		g:       guard.New(),
		roles:   rs,
		events:  rec,
		issuers: make(map[string]*Issuer),
	}
}

// RegisterIssuer records the caller as an issuer.
func (s *Service) RegisterIssuer(caller, name string) error {
	if err := s.g.Enter(); err != nil {
		return err
	}
	defer s.g.Exit()

	if name == "" {
		return domain.Validationf("issuer name is required")
	}
	if _, ok := s.issuers[caller]; ok {
		return domain.Statef("issuer %s already registered", caller)
	}
	s.issuers[caller] = &Issuer{
		Address:      caller,
		Name:         name,
		Active:       true,
		RegisteredAt: time.Now().UTC(),
	}
	s.events.Record(events.TypeIssuerRegistered, caller, 0, map[string]interface{}{
		"name": name,
	})
	return nil
}

// VerifyIssuer marks the issuer verified. Requires the Verifier capability.
// Verifying an already-verified issuer is a no-op success; the verified flag
// is monotonic. Projects, by contrast, reject repeat verification.
func (s *Service) VerifyIssuer(caller, addr string) error {
	if err := s.g.Enter(); err != nil {
		return err
	}
	defer s.g.Exit()

	if err := s.roles.Require(caller, roles.Verifier); err != nil {
		return err
	}
	issuer, ok := s.issuers[addr]
	if !ok {
		return domain.NotFoundf("issuer %s not registered", addr)
	}
	if issuer.Verified {
		return nil
	}
	issuer.Verified = true
	s.events.Record(events.TypeIssuerVerified, addr, 0, nil)
	return nil
}

// RegisterProject records a project owned by the caller. The caller must be a
// registered, active issuer.
func (s *Service) RegisterProject(caller, name, projectType, location, metadataURI string) (uint64, error) {
	if err := s.g.Enter(); err != nil {
		return 0, err
	}
	defer s.g.Exit()

	issuer, ok := s.issuers[caller]
	if !ok || !issuer.Active {
		return 0, domain.Authorizationf("%s is not an active registered issuer", caller)
	}
	if name == "" {
		return 0, domain.Validationf("project name is required")
	}

	id := uint64(len(s.projects))
	s.projects = append(s.projects, &Project{
		ID:                 id,
		Name:               name,
		ProjectType:        projectType,
		Location:           location,
		Owner:              caller,
		RegisteredAt:       time.Now().UTC(),
		Active:             true,
		TotalCreditsIssued: new(big.Int),
		MetadataURI:        metadataURI,
	})
	issuer.ProjectsRegistered++

	s.events.Record(events.TypeProjectRegistered, caller, id, map[string]interface{}{
		"name": name,
	})
	return id, nil
}

// VerifyProject marks the project verified. Requires the Verifier capability.
func (s *Service) VerifyProject(caller string, id uint64) error {
	if err := s.g.Enter(); err != nil {
		return err
	}
	defer s.g.Exit()

	if err := s.roles.Require(caller, roles.Verifier); err != nil {
		return err
	}
	if id >= uint64(len(s.projects)) {
		return domain.NotFoundf("project %d", id)
	}
	project := s.projects[id]
	if project.Verified {
		return domain.Statef("project %d already verified", id)
	}
	project.Verified = true
	s.totalVerifiedProjects++

	s.events.Record(events.TypeProjectVerified, project.Owner, id, nil)
	return nil
}

// RecordCreditsIssued adds amount to the project's issued total. Requires the
// Admin capability.
func (s *Service) RecordCreditsIssued(caller string, id uint64, amount *big.Int) error {
	if err := s.g.Enter(); err != nil {
		return err
	}
	defer s.g.Exit()

	if err := s.roles.Require(caller, roles.Admin); err != nil {
		return err
	}
	if id >= uint64(len(s.projects)) {
		return domain.NotFoundf("project %d", id)
	}
	if amount == nil || amount.Sign() <= 0 {
		return domain.Validationf("amount must be positive")
	}
	project := s.projects[id]
	project.TotalCreditsIssued.Add(project.TotalCreditsIssued, amount)
	return nil
}

// DeactivateProject terminally deactivates the project. Requires the Admin
// capability.
func (s *Service) DeactivateProject(caller string, id uint64) error {
	if err := s.g.Enter(); err != nil {
		return err
	}
	defer s.g.Exit()

	if err := s.roles.Require(caller, roles.Admin); err != nil {
		return err
	}
	if id >= uint64(len(s.projects)) {
		return domain.NotFoundf("project %d", id)
	}
	project := s.projects[id]
	project.Active = false

	s.events.Record(events.TypeProjectDeactivated, project.Owner, id, nil)
	return nil
}

// GetIssuer returns the issuer record for addr.
func (s *Service) GetIssuer(addr string) (*Issuer, error) {
	if err := s.g.Enter(); err != nil {
		return nil, err
	}
	defer s.g.Exit()
	issuer, ok := s.issuers[addr]
	if !ok {
		return nil, domain.NotFoundf("issuer %s not registered", addr)
	}
	return issuer.clone(), nil
}

// GetProject returns the project record for id.
func (s *Service) GetProject(id uint64) (*Project, error) {
	if err := s.g.Enter(); err != nil {
		return nil, err
	}
	defer s.g.Exit()
	if id >= uint64(len(s.projects)) {
		return nil, domain.NotFoundf("project %d", id)
	}
	return s.projects[id].clone(), nil
}

// TotalVerifiedProjects returns the count of verified projects.
func (s *Service) TotalVerifiedProjects() (uint64, error) {
	if err := s.g.Enter(); err != nil {
		return 0, err
	}
	defer s.g.Exit()
	return s.totalVerifiedProjects, nil
}
