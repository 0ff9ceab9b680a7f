package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"carbon-registry/registry-backend/internal/events"
	"carbon-registry/registry-backend/internal/marketplace"
)

// Repository persists emitted records and trades for external retrieval by id
// or by principal. It is a sink for the event log; the engine never reads it.
type Repository interface {
	SaveEvent(ctx context.Context, ev events.Event) error
	SaveTrade(ctx context.Context, trade marketplace.Trade) error
	GetEvent(ctx context.Context, id uint64) (*EventRecord, error)
	LatestSnapshot(ctx context.Context) (*StatsSnapshot, error)
	ListEventsByPrincipal(ctx context.Context, principal string, limit int) ([]EventRecord, error)
	ListTradesByUser(ctx context.Context, user string, limit int) ([]TradeRecord, error)
}

type gormRepository struct {
	db *gorm.DB
}

// Open connects to the archive database and migrates the schema.
func Open(dsn string) (Repository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}
	return NewRepository(db)
}

func NewRepository(db *gorm.DB) (Repository, error) {
	if err := db.AutoMigrate(&EventRecord{}, &TradeRecord{}, &StatsSnapshot{}); err != nil {
		return nil, fmt.Errorf("migrate archive schema: %w", err)
	}
	return &gormRepository{db: db}, nil
}

func (r *gormRepository) SaveEvent(ctx context.Context, ev events.Event) error {
	fields := datatypes.JSON("{}")
	if ev.Fields != nil {
		raw, err := json.Marshal(ev.Fields)
		if err != nil {
			return fmt.Errorf("marshal event fields: %w", err)
		}
		fields = datatypes.JSON(raw)
	}
	record := EventRecord{
		ID:        ev.ID,
		Type:      string(ev.Type),
		Principal: ev.Principal,
		Ref:       ev.Ref,
		At:        ev.At,
		Fields:    fields,
	}
	return r.db.WithContext(ctx).Create(&record).Error
}

func (r *gormRepository) SaveTrade(ctx context.Context, trade marketplace.Trade) error {
	record := TradeRecord{
		ListingID:  trade.ListingID,
		Buyer:      trade.Buyer,
		Seller:     trade.Seller,
		Amount:     trade.Amount.String(),
		TotalPrice: trade.TotalPrice.String(),
		At:         trade.At,
	}
	return r.db.WithContext(ctx).Create(&record).Error
}

// LatestSnapshot returns the most recent aggregate row written by the stats
// worker.
func (r *gormRepository) LatestSnapshot(ctx context.Context) (*StatsSnapshot, error) {
	var snap StatsSnapshot
	if err := r.db.WithContext(ctx).Order("taken_at desc").First(&snap).Error; err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *gormRepository) GetEvent(ctx context.Context, id uint64) (*EventRecord, error) {
	var record EventRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *gormRepository) ListEventsByPrincipal(ctx context.Context, principal string, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var records []EventRecord
	err := r.db.WithContext(ctx).
		Where("principal = ?", principal).
		Order("id asc").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (r *gormRepository) ListTradesByUser(ctx context.Context, user string, limit int) ([]TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var records []TradeRecord
	err := r.db.WithContext(ctx).
		Where("buyer = ? OR seller = ?", user, user).
		Order("id asc").
		Limit(limit).
		Find(&records).Error
	return records, err
}
