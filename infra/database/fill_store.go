package database

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"lobfeed/domain/fills"
)

const createFillsTable = `
CREATE TABLE IF NOT EXISTS fills (
	id                 UUID PRIMARY KEY,
	clob_pair_id       INTEGER NOT NULL,
	ticker             VARCHAR(50),
	block_height       BIGINT NOT NULL,
	kind               VARCHAR(20) NOT NULL,
	finalized          BOOLEAN NOT NULL,
	taker_is_buy       BOOLEAN NOT NULL,
	maker_order        VARCHAR(255) NOT NULL,
	taker_order        VARCHAR(255) NOT NULL,
	quantums           NUMERIC(20) NOT NULL,
	subticks           NUMERIC(20) NOT NULL,
	maker_total_filled NUMERIC(20) NOT NULL,
	size               NUMERIC,
	price              NUMERIC,
	received_at        TIMESTAMPTZ NOT NULL
);`

const insertFill = `
INSERT INTO fills (id, clob_pair_id, ticker, block_height, kind, finalized, taker_is_buy,
	maker_order, taker_order, quantums, subticks, maker_total_filled, size, price, received_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (id) DO NOTHING;`

// FillStore persists fill events to postgres.
type FillStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewFillStore(db *sql.DB, logger zerolog.Logger) *FillStore {
	return &FillStore{db: db, logger: logger.With().Str("component", "fill_store").Logger()}
}

// EnsureTableExists creates the fills table if needed.
func (s *FillStore) EnsureTableExists(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createFillsTable); err != nil {
		return err
	}
	s.logger.Info().Msg("table 'fills' is ready")
	return nil
}

// Insert is idempotent on the event id.
func (s *FillStore) Insert(ctx context.Context, e fills.Event) error {
	_, err := s.db.ExecContext(ctx, insertFill, insertArgs(e)...)
	return err
}

func (s *FillStore) Close() error {
	return s.db.Close()
}

func insertArgs(e fills.Event) []any {
	return []any{
		e.ID,
		e.ClobPairID,
		nullString(e.Ticker),
		e.BlockHeight,
		e.Kind,
		e.Finalized,
		e.TakerIsBuy,
		e.Maker,
		e.Taker,
		e.Quantums,
		e.Subticks,
		e.MakerTotalFilled,
		nullString(e.Size),
		nullString(e.Price),
		e.ReceivedAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
