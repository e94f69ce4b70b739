package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

const (
	connectTimeout    = 10 * time.Second
	maxConnIdleTime   = 5 * time.Minute
	healthCheckPeriod = time.Minute
)

// DB is the pool behind the audit journal. Balances never touch it.
type DB struct {
	*pgxpool.Pool
}

// NewConnection opens and pings a pool. maxConns <= 0 keeps the pgx default.
func NewConnection(ctx context.Context, databaseURL string, maxConns int32) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnIdleTime = maxConnIdleTime
	cfg.HealthCheckPeriod = healthCheckPeriod
	cfg.ConnConfig.RuntimeParams["application_name"] = "betbot-journal"
	cfg.ConnConfig.RuntimeParams["timezone"] = "UTC"

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.ConnConfig.Database, err)
	}

	log.WithFields(log.Fields{
		"host":      cfg.ConnConfig.Host,
		"database":  cfg.ConnConfig.Database,
		"max_conns": cfg.MaxConns,
	}).Info("Journal database ready")
	return &DB{Pool: pool}, nil
}

// WithTransaction runs fn in a read-committed transaction and commits only
// when fn returns nil.
func (db *DB) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	err := pgx.BeginTxFunc(ctx, db.Pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
	if err != nil {
		return fmt.Errorf("journal transaction: %w", err)
	}
	return nil
}
