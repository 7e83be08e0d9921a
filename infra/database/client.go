package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

const maxRetries = 10

// ConnectWithRetries opens dsn and waits for the server to answer.
func ConnectWithRetries(ctx context.Context, dsn string, logger zerolog.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("postgres", dsn)
		if err == nil {
			err = db.PingContext(ctx)
		}
		if err == nil {
			logger.Info().Msg("connected to postgres")
			return db, nil
		}
		if db != nil {
			_ = db.Close()
		}

		logger.Warn().Err(err).Int("attempt", i+1).Msg("waiting for postgres")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	return nil, fmt.Errorf("could not connect to postgres after %d attempts: %w", maxRetries, err)
}
