package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/leadgate-systems/leadgate/internal/config"
	"github.com/leadgate-systems/leadgate/internal/store"
)

// newStore builds the configured storage backend, running migrations
// first for Postgres when auto-migrate is on.
func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Backend {
	case "memory":
		slog.Warn("Using in-memory storage, data is lost on restart")
		return store.NewMemoryStore(), nil
	case "postgres":
		if cfg.Storage.AutoMigrate {
			if err := runMigrations(cfg.Storage.MigrationsDir, cfg.Storage.DatabaseURL); err != nil {
				return nil, err
			}
		}
		st, err := store.NewPostgresStore(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return st, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// runMigrations applies pending schema migrations.
func runMigrations(dir, databaseURL string) error {
	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database migrations applied")
	return nil
}
