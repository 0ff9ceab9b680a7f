package marketplace

import (
	"math/big"
	"time"
)

// Listing is a sell offer whose units are held in marketplace escrow from
// creation until sale or cancellation. Remaining only decreases through buys
// and drops to zero on cancel; a listing with zero remaining is inactive.
type Listing struct {
	ID           uint64    `json:"id"`
	Seller       string    `json:"seller"`
	Remaining    *big.Int  `json:"remaining"`
	PricePerUnit *big.Int  `json:"price_per_unit"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	CreditID     uint64    `json:"credit_id"`
	ProjectName  string    `json:"project_name"`
}

func (l *Listing) clone() *Listing {
	out := *l
	out.Remaining = new(big.Int).Set(l.Remaining)
	out.PricePerUnit = new(big.Int).Set(l.PricePerUnit)
	return &out
}

// Trade is an executed sale. Append-only, immutable once recorded.
type Trade struct {
	ListingID  uint64    `json:"listing_id"`
	Buyer      string    `json:"buyer"`
	Seller     string    `json:"seller"`
	Amount     *big.Int  `json:"amount"`
	TotalPrice *big.Int  `json:"total_price"`
	At         time.Time `json:"at"`
}

// Stats is the aggregate view returned by GetMarketplaceStats.
type Stats struct {
	ListingsCreated uint64   `json:"listings_created"`
	TotalVolume     *big.Int `json:"total_volume"`
	TotalTrades     uint64   `json:"total_trades"`
	FeeBps          uint64   `json:"fee_bps"`
}
