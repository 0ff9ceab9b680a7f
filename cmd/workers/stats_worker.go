package main

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// StatsWorker periodically aggregates the archived event and trade logs into
// stats_snapshots rows, so dashboards read a cheap precomputed row instead of
// scanning the logs.
type StatsWorker struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewStatsWorker(dsn string, logger *zap.Logger) (*StatsWorker, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &StatsWorker{db: db, logger: logger}, nil
}

func (w *StatsWorker) Close() error {
	return w.db.Close()
}

type snapshotRow struct {
	ListingsCreated uint64 `db:"listings_created"`
	TotalVolume     string `db:"total_volume"`
	TotalTrades     uint64 `db:"total_trades"`
	FeeBps          uint64 `db:"fee_bps"`
}

// Snapshot computes one aggregate row from the archive and inserts it. The
// fee rate comes from the latest fee-update event, falling back to the
// default when none has been archived yet.
func (w *StatsWorker) Snapshot(ctx context.Context) error {
	start := time.Now()
	var row snapshotRow

	err := w.db.GetContext(ctx, &row, `
		SELECT
			(SELECT COUNT(*) FROM events WHERE type = 'LISTING_CREATED')       AS listings_created,
			COALESCE((SELECT SUM(total_price) FROM trades), 0)::text           AS total_volume,
			(SELECT COUNT(*) FROM trades)                                      AS total_trades,
			COALESCE((
				SELECT (fields->>'new_bps')::bigint
				FROM events
				WHERE type = 'PLATFORM_FEE_UPDATED'
				ORDER BY at DESC
				LIMIT 1
			), 250)                                                            AS fee_bps`)
	if err != nil {
		return err
	}

	_, err = w.db.ExecContext(ctx, `
		INSERT INTO stats_snapshots (listings_created, total_volume, total_trades, fee_bps, taken_at)
		VALUES ($1, $2, $3, $4, $5)`,
		row.ListingsCreated, row.TotalVolume, row.TotalTrades, row.FeeBps, time.Now().UTC())
	if err != nil {
		return err
	}

	w.logger.Info("Snapshot written",
		zap.Uint64("listings_created", row.ListingsCreated),
		zap.Uint64("total_trades", row.TotalTrades),
		zap.Uint64("fee_bps", row.FeeBps),
		zap.Duration("took", time.Since(start)))
	return nil
}
