package storage

import (
	"context"
	"fmt"

	"github.com/mstgnz/gocips/infra/config"
)

// Open returns the configuration storage selected by STORAGE_DRIVER
func Open(ctx context.Context, cfg *config.AppConfig) (ConfigStorage, error) {
	switch cfg.StorageDriver {
	case "", "sqlite":
		return NewSQLiteStorage(cfg.SQLitePath)
	case "postgres", "postgresql":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres storage driver")
		}
		return NewPostgresStorage(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}
