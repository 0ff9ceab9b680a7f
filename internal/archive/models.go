package archive

import (
	"time"

	"gorm.io/datatypes"
)

// EventRecord is the persisted form of an emitted notification record.
type EventRecord struct {
	ID        uint64         `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Type      string         `json:"type" gorm:"index;not null"`
	Principal string         `json:"principal" gorm:"index;not null"`
	Ref       uint64         `json:"ref" gorm:"index"`
	At        time.Time      `json:"at" gorm:"index;not null"`
	Fields    datatypes.JSON `json:"fields" gorm:"default:'{}'"`
}

func (EventRecord) TableName() string {
	return "events"
}

// TradeRecord is the persisted trade log row. Amounts are decimal strings at
// the ledger's unit scale; they exceed any machine integer.
type TradeRecord struct {
	ID         uint64    `json:"id" gorm:"primaryKey"`
	ListingID  uint64    `json:"listing_id" gorm:"index;not null"`
	Buyer      string    `json:"buyer" gorm:"index;not null"`
	Seller     string    `json:"seller" gorm:"index;not null"`
	Amount     string    `json:"amount" gorm:"type:numeric(78,0);not null"`
	TotalPrice string    `json:"total_price" gorm:"type:numeric(78,0);not null"`
	At         time.Time `json:"at" gorm:"index;not null"`
}

func (TradeRecord) TableName() string {
	return "trades"
}

// StatsSnapshot is a periodic marketplace aggregate row written by the stats
// worker.
type StatsSnapshot struct {
	ID              uint64    `json:"id" gorm:"primaryKey"`
	ListingsCreated uint64    `json:"listings_created" gorm:"not null"`
	TotalVolume     string    `json:"total_volume" gorm:"type:numeric(78,0);not null"`
	TotalTrades     uint64    `json:"total_trades" gorm:"not null"`
	FeeBps          uint64    `json:"fee_bps" gorm:"not null"`
	TakenAt         time.Time `json:"taken_at" gorm:"index;not null"`
}

func (StatsSnapshot) TableName() string {
	return "stats_snapshots"
}
