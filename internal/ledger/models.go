package ledger

import (
	"math/big"
	"time"
)

// Unit is the fixed-point scale of credit balances: one whole credit is
// Unit balance units. Prices are quoted per whole credit at the same scale.
var Unit = big.NewInt(1_000_000_000_000_000_000)

// Credit is a provenance record for one issuance. Ids are dense and
// sequential. A credit is mutated exactly once, when it is retired; it is
// never deleted.
type Credit struct {
	ID          uint64     `json:"id"`
	ProjectName string     `json:"project_name"`
	ProjectType string     `json:"project_type"`
	Location    string     `json:"location"`
	Amount      *big.Int   `json:"amount"`
	Vintage     time.Time  `json:"vintage"`
	IssuedAt    time.Time  `json:"issued_at"`
	Retired     bool       `json:"retired"`
	RetiredBy   string     `json:"retired_by,omitempty"`
	RetiredAt   *time.Time `json:"retired_at,omitempty"`
}

func (c *Credit) clone() *Credit {
	out := *c
	out.Amount = new(big.Int).Set(c.Amount)
	if c.RetiredAt != nil {
		t := *c.RetiredAt
		out.RetiredAt = &t
	}
	return &out
}
