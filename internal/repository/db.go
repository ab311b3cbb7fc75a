// Package repository handles database connections and data access.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB holds the database connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// Connect establishes a connection to PostgreSQL using the provided database URL.
func Connect(ctx context.Context, dbURL string) (*DB, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 20
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("db connected",
		slog.Int("max_conns", int(config.MaxConns)),
		slog.Int("min_conns", int(config.MinConns)),
	)

	return &DB{Pool: pool}, nil
}

// Repositories wires the PostgreSQL implementations of every repository.
func (db *DB) Repositories() *Repositories {
	return &Repositories{
		Bills:        NewBillsRepo(db.Pool),
		Users:        NewUsersRepo(db.Pool),
		Transactions: NewTransactionsRepo(db.Pool),
		Audit:        NewAuditRepo(db.Pool),
		Health:       db,
	}
}

// Close closes the database connection pool.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		slog.Info("db connection closed")
	}
}

// Ping checks if the database connection is healthy.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
