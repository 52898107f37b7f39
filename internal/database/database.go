// Package database opens the PostgreSQL pool and applies the embedded
// schema migrations.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/MrSnakeDoc/landing/internal/backoff"
	"github.com/MrSnakeDoc/landing/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Options struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration // total time spent retrying the first ping
	RetryInterval   time.Duration
	PingTimeout     time.Duration // per attempt, defaults to 5s
}

// DB wraps the sqlx pool
type DB struct {
	*sqlx.DB
	log logger.Logger
}

// Open connects to PostgreSQL, retrying the first ping with backoff so the
// service can start alongside its database.
func Open(ctx context.Context, opts Options, log logger.Logger) (*DB, error) {
	if opts.URL == "" {
		return nil, errors.New("database: URL is required")
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 5 * time.Second
	}

	db, err := sqlx.Open("postgres", opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	connectCtx := ctx
	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}

	policy := backoff.Policy{Initial: opts.RetryInterval, Max: 10 * time.Second}
	attempts, err := backoff.Retry(connectCtx, policy, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
		defer cancel()
		return db.PingContext(pingCtx)
	}, func(attempt int, wait time.Duration, err error) {
		log.Warn("database not ready, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("retry_in", wait),
			logger.Error(err))
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database after %d attempts: %w", attempts, err)
	}

	log.Info("database connection established",
		logger.Int("attempts", attempts),
		logger.Int("max_open_conns", opts.MaxOpenConns))

	return &DB{DB: db, log: log}, nil
}

// Migrate applies every pending embedded migration.
func (db *DB) Migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db.DB.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	db.log.Info("migrations completed",
		logger.Int("version", int(version)),
		logger.Bool("dirty", dirty))
	return nil
}

// Ping verifies the pool is usable, for readiness checks.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}
