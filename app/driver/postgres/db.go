package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"account-service/app/config"
	"account-service/app/metrics"
)

// PoolOptions sizes the profile store pool
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
	PingTimeout     time.Duration
}

// DefaultPoolOptions suits a single installation: profile traffic is one
// request at a time per form, so the pool stays small.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxConns:        8,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 15 * time.Minute,
		ConnectTimeout:  10 * time.Second,
		PingTimeout:     5 * time.Second,
	}
}

var errPoolNotInitialized = errors.New("profile store pool is not initialized")

// DB owns the pgx pool behind the profile store
type DB struct {
	pool    *pgxpool.Pool
	options PoolOptions
	logger  *slog.Logger
}

// NewConnection opens the profile store pool with DefaultPoolOptions
func NewConnection(cfg *config.Config, logger *slog.Logger) (*DB, error) {
	return Open(context.Background(), cfg.DatabaseDSN(), DefaultPoolOptions(), logger)
}

// Open creates the pool for dsn and verifies it answers a ping
func Open(ctx context.Context, dsn string, opts PoolOptions, logger *slog.Logger) (*DB, error) {
	poolConfig, err := poolConfig(dsn, opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile store pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach profile store: %w", err)
	}

	logger = logger.With("component", "postgres")
	logger.Info("profile store connected",
		"host", poolConfig.ConnConfig.Host,
		"database", poolConfig.ConnConfig.Database,
		"max_conns", poolConfig.MaxConns)

	return &DB{pool: pool, options: opts, logger: logger}, nil
}

func poolConfig(dsn string, opts PoolOptions) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile store dsn: %w", err)
	}
	cfg.MaxConns = opts.MaxConns
	cfg.MinConns = opts.MinConns
	cfg.MaxConnLifetime = opts.MaxConnLifetime
	cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	return cfg, nil
}

// Close releases every pooled connection
func (db *DB) Close() {
	if db.pool == nil {
		return
	}
	db.pool.Close()
	db.logger.Info("profile store closed")
}

// Pool returns the pool the profile repository runs on
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// HealthCheck pings the pool and publishes its occupancy
func (db *DB) HealthCheck(ctx context.Context) error {
	if db.pool == nil {
		return errPoolNotInitialized
	}

	timeout := db.options.PingTimeout
	if timeout <= 0 {
		timeout = DefaultPoolOptions().PingTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stat := db.pool.Stat()
	metrics.SetPoolConnections(stat.AcquiredConns(), stat.IdleConns(), stat.TotalConns())

	return db.pool.Ping(ctx)
}
