package ledger

import (
	"math/big"
	"time"

	"carbon-registry/registry-backend/internal/domain"
	"carbon-registry/registry-backend/internal/events"
	"carbon-registry/registry-backend/internal/roles"
	"carbon-registry/registry-backend/pkg/guard"
)

// Service is the issuance and retirement engine. It owns balances, per-credit
// metadata and retirement state. Amounts are unbounded-precision integers at
// the Unit scale.
//
// Conservation holds at all times:
//
//	sum(balances) + totalRetired == totalMinted
type Service struct {
	g      *guard.Guard
	roles  *roles.Set
	events events.Recorder

	balances      map[string]*big.Int
	credits       []*Credit
	retiredByUser map[string][]uint64
	projectTotals map[string]*big.Int
	totalRetired  *big.Int
	totalMinted   *big.Int
}

func NewService(rs *roles.Set, rec events.Recorder) *Service {
	return &Service{
		g:             guard.New(),
		roles:         rs,
		events:        rec,
		balances:      make(map[string]*big.Int),
		retiredByUser: make(map[string][]uint64),
		projectTotals: make(map[string]*big.Int),
		totalRetired:  new(big.Int),
		totalMinted:   new(big.Int),
	}
}

// Mint issues amount balance units under a new credit id to the given holder.
// Caller must hold the Minter capability.
func (s *Service) Mint(caller, to string, amount *big.Int, projectName, projectType, location string, vintage time.Time) (uint64, error) {
	if err := s.g.Enter(); err != nil {
		return 0, err
	}
	defer s.g.Exit()

	if err := s.roles.Require(caller, roles.Minter); err != nil {
		return 0, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, domain.Validationf("amount must be positive")
	}
	if projectName == "" {
		return 0, domain.Validationf("project name is required")
	}
	now := time.Now().UTC()
	if vintage.After(now) {
		return 0, domain.Validationf("vintage %s is in the future", vintage.Format(time.RFC3339))
	}

	id := uint64(len(s.credits))
	credit := &Credit{
		ID:          id,
		ProjectName: projectName,
		ProjectType: projectType,
		Location:    location,
		Amount:      new(big.Int).Set(amount),
		Vintage:     vintage,
		IssuedAt:    now,
	}
	s.credits = append(s.credits, credit)
	s.creditBalance(to, amount)
	s.addProjectTotal(projectName, amount)
	s.totalMinted.Add(s.totalMinted, amount)

	s.events.Record(events.TypeCreditsIssued, to, id, map[string]interface{}{
		"amount":  amount.String(),
		"project": projectName,
	})
	return id, nil
}

// Retire permanently removes amount balance units from the caller's balance,
// consuming the provenance slot creditID. The burned amount is independent of
// the credit's original issuance size; see DESIGN.md for the rationale.
func (s *Service) Retire(caller string, amount *big.Int, creditID uint64) error {
	if err := s.g.Enter(); err != nil {
		return err
	}
	defer s.g.Exit()

	if amount == nil || amount.Sign() <= 0 {
		return domain.Validationf("amount must be positive")
	}
	if creditID >= uint64(len(s.credits)) {
		return domain.NotFoundf("credit %d", creditID)
	}
	credit := s.credits[creditID]
	if credit.Retired {
		return domain.Statef("credit %d already retired", creditID)
	}
	bal := s.balances[caller]
	if bal == nil || bal.Cmp(amount) < 0 {
		return domain.Statef("insufficient balance")
	}

	now := time.Now().UTC()
	credit.Retired = true
	credit.RetiredBy = caller
	credit.RetiredAt = &now
	s.retiredByUser[caller] = append(s.retiredByUser[caller], creditID)
	s.totalRetired.Add(s.totalRetired, amount)
	bal.Sub(bal, amount)

	s.events.Record(events.TypeCreditsRetired, caller, creditID, map[string]interface{}{
		"amount":  amount.String(),
		"project": credit.ProjectName,
	})
	return nil
}

// Transfer moves amount balance units between holders. It backs the
// marketplace's escrow moves; generic token transfer semantics beyond the
// balance check are not modelled here.
func (s *Service) Transfer(from, to string, amount *big.Int) error {
	if err := s.g.Enter(); err != nil {
		return err
	}
	defer s.g.Exit()

	if amount == nil || amount.Sign() <= 0 {
		return domain.Validationf("amount must be positive")
	}
	bal := s.balances[from]
	if bal == nil || bal.Cmp(amount) < 0 {
		return domain.Statef("insufficient balance")
	}
	bal.Sub(bal, amount)
	s.creditBalance(to, amount)
	return nil
}

// GetMetadata returns the credit record for id.
func (s *Service) GetMetadata(id uint64) (*Credit, error) {
	if err := s.g.Enter(); err != nil {
		return nil, err
	}
	defer s.g.Exit()

	if id >= uint64(len(s.credits)) {
		return nil, domain.NotFoundf("credit %d", id)
	}
	return s.credits[id].clone(), nil
}

// BalanceOf returns the holder's current balance.
func (s *Service) BalanceOf(holder string) (*big.Int, error) {
	if err := s.g.Enter(); err != nil {
		return nil, err
	}
	defer s.g.Exit()
	bal := s.balances[holder]
	if bal == nil {
		return new(big.Int), nil
	}
	return new(big.Int).Set(bal), nil
}

// GetUserRetired returns the credit ids the user has retired, oldest first.
func (s *Service) GetUserRetired(user string) ([]uint64, error) {
	if err := s.g.Enter(); err != nil {
		return nil, err
	}
	defer s.g.Exit()
	out := make([]uint64, len(s.retiredByUser[user]))
	copy(out, s.retiredByUser[user])
	return out, nil
}

// GetProjectTotal returns the total amount ever minted under the project name.
func (s *Service) GetProjectTotal(name string) (*big.Int, error) {
	if err := s.g.Enter(); err != nil {
		return nil, err
	}
	defer s.g.Exit()
	total := s.projectTotals[name]
	if total == nil {
		return new(big.Int), nil
	}
	return new(big.Int).Set(total), nil
}

// TotalRetired returns the global retired amount.
func (s *Service) TotalRetired() (*big.Int, error) {
	if err := s.g.Enter(); err != nil {
		return nil, err
	}
	defer s.g.Exit()
	return new(big.Int).Set(s.totalRetired), nil
}

// TotalMinted returns the global minted amount.
func (s *Service) TotalMinted() (*big.Int, error) {
	if err := s.g.Enter(); err != nil {
		return nil, err
	}
	defer s.g.Exit()
	return new(big.Int).Set(s.totalMinted), nil
}

// NextID returns the id the next mint will be assigned.
func (s *Service) NextID() (uint64, error) {
	if err := s.g.Enter(); err != nil {
		return 0, err
	}
	defer s.g.Exit()
	return uint64(len(s.credits)), nil
}

func (s *Service) creditBalance(holder string, amount *big.Int) {
	bal, ok := s.balances[holder]
	if !ok {
		bal = new(big.Int)
		s.balances[holder] = bal
	}
	bal.Add(bal, amount)
}

func (s *Service) addProjectTotal(name string, amount *big.Int) {
	total, ok := s.projectTotals[name]
	if !ok {
		total = new(big.Int)
		s.projectTotals[name] = total
	}
	total.Add(total, amount)
}
