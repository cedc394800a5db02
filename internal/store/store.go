// Package store is the Postgres-backed persistence layer for ratings, URL
// stats, the domain cache, and the blacklist/content-type rule tables. It
// follows one conventions: every table gets an explicit upsert with
// defined conflict semantics, so callers never have to choose between
// "raise on conflict" and "silently ignore".
package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a lookup by key finds no row.
var ErrNotFound = errors.New("store: not found")

//go:embed migrations/*.sql
var migrations embed.FS

// Store wraps a pgx connection pool and exposes the operations described
// for the rating, URL stats, domain cache, and rule components.
type Store struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect opens a pooled connection to Postgres using DATABASE_URL and
// runs pending migrations.
func Connect(ctx context.Context, logger *slog.Logger) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, fmt.Errorf("store: DATABASE_URL is not set")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: parse dsn: %w", err)
	}
	config.MaxConns = 20
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}

	s := &Store{Pool: pool, logger: logger}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Migrate applies the embedded schema. It is idempotent: the migration
// itself uses CREATE TABLE/INDEX IF NOT EXISTS.
func (s *Store) Migrate(ctx context.Context) error {
	sql, err := migrations.ReadFile("migrations/001_init.sql")
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := s.Pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	s.logger.Info("migrations applied")
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.Pool.Close()
}

// PingContext checks connectivity.
func (s *Store) PingContext(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}
