package registry

import (
	"math/big"
	"time"
)

// Issuer is a principal allowed to register projects. The verified flag is
// monotonic: once set it is never cleared.
type Issuer struct {
	Address            string    `json:"address"`
	Name               string    `json:"name"`
	Verified           bool      `json:"verified"`
	Active             bool      `json:"active"`
	RegisteredAt       time.Time `json:"registered_at"`
	ProjectsRegistered uint64    `json:"projects_registered"`
}

// Project lifecycle: registered (unverified, active) -> verified (active) ->
// deactivated. Deactivation is terminal and reachable from any prior state.
type Project struct {
	ID                 uint64    `json:"id"`
	Name               string    `json:"name"`
	ProjectType        string    `json:"project_type"`
	Location           string    `json:"location"`
	Owner              string    `json:"owner"`
	RegisteredAt       time.Time `json:"registered_at"`
	Verified           bool      `json:"verified"`
	Active             bool      `json:"active"`
	TotalCreditsIssued *big.Int  `json:"total_credits_issued"`
	MetadataURI        string    `json:"metadata_uri"`
}

func (p *Project) clone() *Project {
	out := *p
	out.TotalCreditsIssued = new(big.Int).Set(p.TotalCreditsIssued)
	return &out
}

func (i *Issuer) clone() *Issuer {
	out := *i
	return &out
}
