package certificates

import (
	"math/big"
	"time"
)

// Certificate is a non-fungible retirement attestation. Created once,
// immutable. The issuer performs no validation that the referenced credit and
// amount correspond to a real ledger retirement; only the trusted retirement
// orchestrator, which has observed the retirement, holds the Minter
// capability used here.
type Certificate struct {
	TokenID        uint64    `json:"token_id"`
	Owner          string    `json:"owner"`
	CreditsRetired *big.Int  `json:"credits_retired"`
	CreditID       uint64    `json:"credit_id"`
	ProjectName    string    `json:"project_name"`
	RetiredBy      string    `json:"retired_by"`
	RetiredAt      time.Time `json:"retired_at"`
	URI            string    `json:"uri"`
}

func (c *Certificate) clone() *Certificate {
	out := *c
	out.CreditsRetired = new(big.Int).Set(c.CreditsRetired)
	return &out
}
