// Package postgres provides pgx-backed implementations of the store
// interfaces. Schema lives in db/migrations; every query is a const string
// next to the method that runs it.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"shiftcast/internal/store"
)

// Config holds connection pool settings. The app layer maps its database
// configuration onto this before dialing.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	ConnectTimeout  time.Duration
}

// NewPool dials Postgres and verifies connectivity before returning.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return pool, nil
}

// NewStores constructs the full Postgres-backed store bundle over one pool.
func NewStores(pool *pgxpool.Pool) store.Stores {
	return store.Stores{
		Venues:    NewVenueStore(pool),
		Forecasts: NewForecastStore(pool),
		Calendar:  NewCalendarStore(pool),
		Bias:      NewBiasStore(pool),
		Pacing:    NewPacingStore(pool),
		Accuracy:  NewAccuracyStore(pool),
		Audit:     NewAuditStore(pool),
	}
}
