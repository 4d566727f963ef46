package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/mstgnz/gocips/provider"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS gateway_configs (
		id BIGSERIAL PRIMARY KEY,
		tenant_id TEXT NOT NULL UNIQUE,
		gateway_url TEXT NOT NULL DEFAULT '',
		merchant_id TEXT NOT NULL DEFAULT '',
		app_id TEXT NOT NULL DEFAULT '',
		app_name TEXT NOT NULL DEFAULT '',
		validation_url TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL DEFAULT '',
		password TEXT NOT NULL DEFAULT '',
		creditor_password TEXT NOT NULL DEFAULT '',
		certificate_reference TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
`

// PostgresStorage handles persistent storage of gateway configurations
type PostgresStorage struct {
	sqlStore
}

var _ ConfigStorage = (*PostgresStorage)(nil)

func isPostgresUnique(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// NewPostgresStorage creates a new PostgreSQL storage instance
func NewPostgresStorage(ctx context.Context, dbURL string) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// the database container may still be starting
	for attempt := 1; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		if attempt == connectAttempts {
			db.Close()
			return nil, fmt.Errorf("failed to ping database after %d attempts: %w", attempt, err)
		}
		log.Printf("Attempt %d: failed to ping database: %v", attempt, err)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(connectBackoff):
		}
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Printf("PostgreSQL storage initialized")

	return &PostgresStorage{sqlStore: sqlStore{
		db:     db,
		bind:   dollarBind,
		unique: isPostgresUnique,
		run: func(op func() error) error {
			return op()
		},
	}}, nil
}

// CreateConfig inserts a configuration; an existing tenant yields ConfigExists
func (s *PostgresStorage) CreateConfig(ctx context.Context, cfg *provider.GatewayConfig) error {
	return s.create(ctx, cfg)
}

// LoadConfig loads the configuration of a tenant
func (s *PostgresStorage) LoadConfig(ctx context.Context, tenantID string) (*provider.GatewayConfig, error) {
	return s.load(ctx, tenantID)
}

// ListConfigs returns all configurations ordered by tenant
func (s *PostgresStorage) ListConfigs(ctx context.Context) ([]provider.GatewayConfig, error) {
	return s.list(ctx)
}

// UpdateConfig replaces every credential field of an existing configuration
func (s *PostgresStorage) UpdateConfig(ctx context.Context, cfg *provider.GatewayConfig) error {
	return s.update(ctx, cfg)
}

// SetCertificateReference points a configuration at its certificate file
func (s *PostgresStorage) SetCertificateReference(ctx context.Context, tenantID, reference string) error {
	return s.setCertificateReference(ctx, tenantID, reference)
}

// DeleteConfig removes the configuration of a tenant
func (s *PostgresStorage) DeleteConfig(ctx context.Context, tenantID string) error {
	return s.delete(ctx, tenantID)
}

// GetStats returns database statistics
func (s *PostgresStorage) GetStats(ctx context.Context) (map[string]any, error) {
	stats, err := s.stats(ctx)
	if err != nil {
		return nil, err
	}

	dbStats := s.db.Stats()
	stats["open_connections"] = dbStats.OpenConnections
	stats["in_use"] = dbStats.InUse
	stats["idle"] = dbStats.Idle
	stats["driver"] = "postgres"
	return stats, nil
}

// Close closes the database connection
func (s *PostgresStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
