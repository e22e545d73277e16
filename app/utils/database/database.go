// Package database opens the database/sql handle used by schema tooling.
// The service itself talks to Postgres through pgx.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Options bounds the handle held by a tooling run
type Options struct {
	MaxOpenConns   int
	ConnectTimeout time.Duration
}

// DefaultOptions keeps a single connection: migrations run serially
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:   1,
		ConnectTimeout: 10 * time.Second,
	}
}

// Open parses dsn with lib/pq, opens a handle and pings it
func Open(ctx context.Context, dsn string, opts Options, logger *slog.Logger) (*sql.DB, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database dsn: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxOpenConns)

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	logger.With("component", "database").Info("database handle opened", "max_open_conns", opts.MaxOpenConns)
	return db, nil
}
