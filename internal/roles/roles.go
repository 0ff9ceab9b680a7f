package roles

import (
	"sync"

	"carbon-registry/registry-backend/internal/domain"
)

// Role is a named capability checked at privileged operations.
type Role string

const (
	Admin    Role = "ADMIN"
	Verifier Role = "VERIFIER"
	Minter   Role = "MINTER"
)

// Set holds capability grants per principal. Multiple principals may hold the
// same role independently; there is no single-owner field. The bootstrap owner
// named at construction holds every role and may grant and revoke.
type Set struct {
	mu     sync.RWMutex
	owner  string
	grants map[string]map[Role]bool
}

func NewSet(owner string) *Set {
	s := &Set{
		owner:  owner,
		grants: make(map[string]map[Role]bool),
	}
	for _, r := range []Role{Admin, Verifier, Minter} {
		s.grant(owner, r)
	}
	return s
}

func (s *Set) grant(principal string, role Role) {
	if s.grants[principal] == nil {
		s.grants[principal] = make(map[Role]bool)
	}
	s.grants[principal][role] = true
}

// Grant adds role to principal. Caller must hold Admin.
func (s *Set) Grant(caller, principal string, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.has(caller, Admin) {
		return domain.Authorizationf("%s lacks %s capability", caller, Admin)
	}
	s.grant(principal, role)
	return nil
}

// Revoke removes role from principal. Caller must hold Admin.
func (s *Set) Revoke(caller, principal string, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.has(caller, Admin) {
		return domain.Authorizationf("%s lacks %s capability", caller, Admin)
	}
	if s.grants[principal] != nil {
		delete(s.grants[principal], role)
	}
	return nil
}

func (s *Set) has(principal string, role Role) bool {
	return s.grants[principal] != nil && s.grants[principal][role]
}

// Has reports whether principal holds role.
func (s *Set) Has(principal string, role Role) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.has(principal, role)
}

// Require returns an AuthorizationError when principal lacks role.
func (s *Set) Require(principal string, role Role) error {
	if !s.Has(principal, role) {
		return domain.Authorizationf("%s lacks %s capability", principal, role)
	}
	return nil
}

// Owner returns the bootstrap owner address.
func (s *Set) Owner() string {
	return s.owner
}
