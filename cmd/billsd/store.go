package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sefa-b/go-bill-ledger/internal/config"
	"github.com/sefa-b/go-bill-ledger/internal/repository"
	"github.com/sefa-b/go-bill-ledger/internal/repository/sqlite"
	"github.com/sefa-b/go-bill-ledger/internal/utils"
)

// store is the persistence backend selected by the configuration.
type store struct {
	repos   *repository.Repositories
	migrate func(ctx context.Context) error
	close   func()
}

// openStore connects to the configured storage driver. SQLite stores are
// migrated on open; PostgreSQL needs the migrate command or serve's migration step.
func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.StorageDriver {
	case config.DriverPostgres:
		db, err := repository.Connect(ctx, cfg.DBUrl)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return &store{
			repos:   db.Repositories(),
			migrate: db.Migrate,
			close:   db.Close,
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.New(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		utils.Info("sqlite store opened", "path", cfg.SQLitePath)
		return &store{
			repos:   db.Repositories(),
			migrate: db.Migrate,
			close: func() {
				if err := db.Close(); err != nil {
					utils.Error("failed to close sqlite store", "error", err.Error())
				}
			},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
