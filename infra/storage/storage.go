package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mstgnz/gocips/infra/validate"
	"github.com/mstgnz/gocips/provider"
)

// ConfigStorage persists gateway configurations, one row per tenant selector
type ConfigStorage interface {
	CreateConfig(ctx context.Context, cfg *provider.GatewayConfig) error
	LoadConfig(ctx context.Context, tenantID string) (*provider.GatewayConfig, error)
	ListConfigs(ctx context.Context) ([]provider.GatewayConfig, error)
	UpdateConfig(ctx context.Context, cfg *provider.GatewayConfig) error
	SetCertificateReference(ctx context.Context, tenantID, reference string) error
	DeleteConfig(ctx context.Context, tenantID string) error
	GetStats(ctx context.Context) (map[string]any, error)
	Close() error
}

const configColumns = `tenant_id, gateway_url, merchant_id, app_id, app_name, validation_url,
	username, password, creditor_password, certificate_reference, created_at, updated_at`

// sqlStore holds the queries shared by the SQLite and PostgreSQL backends
type sqlStore struct {
	db *sql.DB
	// bind rewrites "?" placeholders for the driver
	bind func(query string) string
	// unique reports a UNIQUE constraint violation
	unique func(err error) bool
	// run wraps every statement, e.g. with busy retries
	run func(op func() error) error
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (*provider.GatewayConfig, error) {
	var cfg provider.GatewayConfig
	err := row.Scan(
		&cfg.ID, &cfg.TenantID, &cfg.GatewayURL, &cfg.MerchantID, &cfg.AppID, &cfg.AppName,
		&cfg.ValidationURL, &cfg.Username, &cfg.Password, &cfg.CreditorPassword,
		&cfg.CertificateReference, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func checkSelector(tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return provider.Errorf(provider.KindMissingRequiredField, "missing required fields: tenant_id")
	}
	if !validate.IsSelector(tenantID) {
		return provider.Errorf(provider.KindInvalidConfig, "invalid tenant id %q", tenantID)
	}
	return nil
}

func notFound(tenantID string) error {
	return provider.Errorf(provider.KindConfigNotFound, "no configuration found for tenant: %s", tenantID)
}

func (s *sqlStore) create(ctx context.Context, cfg *provider.GatewayConfig) error {
	if err := checkSelector(cfg.TenantID); err != nil {
		return err
	}

	now := time.Now().UTC()
	return s.run(func() error {
		_, err := s.db.ExecContext(ctx, s.bind(`INSERT INTO gateway_configs (`+configColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			cfg.TenantID, cfg.GatewayURL, cfg.MerchantID, cfg.AppID, cfg.AppName, cfg.ValidationURL,
			cfg.Username, cfg.Password, cfg.CreditorPassword, cfg.CertificateReference, now, now,
		)
		if err != nil {
			if s.unique(err) {
				return provider.Errorf(provider.KindConfigExists, "configuration for tenant %s already exists", cfg.TenantID)
			}
			return fmt.Errorf("failed to create gateway config: %w", err)
		}
		return nil
	})
}

func (s *sqlStore) load(ctx context.Context, tenantID string) (*provider.GatewayConfig, error) {
	if err := checkSelector(tenantID); err != nil {
		return nil, err
	}

	var cfg *provider.GatewayConfig
	err := s.run(func() error {
		row := s.db.QueryRowContext(ctx, s.bind(`SELECT id, `+configColumns+`
			FROM gateway_configs WHERE tenant_id = ?`), tenantID)

		var err error
		cfg, err = scanConfig(row)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(tenantID)
		}
		if err != nil {
			return fmt.Errorf("failed to load gateway config: %w", err)
		}
		return nil
	})
	return cfg, err
}

func (s *sqlStore) list(ctx context.Context) ([]provider.GatewayConfig, error) {
	var configs []provider.GatewayConfig
	err := s.run(func() error {
		rows, err := s.db.QueryContext(ctx, `SELECT id, `+configColumns+`
			FROM gateway_configs ORDER BY tenant_id`)
		if err != nil {
			return fmt.Errorf("failed to query gateway configs: %w", err)
		}
		defer rows.Close()

		configs = configs[:0]
		for rows.Next() {
			cfg, err := scanConfig(rows)
			if err != nil {
				return fmt.Errorf("failed to scan row: %w", err)
			}
			configs = append(configs, *cfg)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func (s *sqlStore) update(ctx context.Context, cfg *provider.GatewayConfig) error {
	if err := checkSelector(cfg.TenantID); err != nil {
		return err
	}

	return s.exec(ctx, cfg.TenantID, `UPDATE gateway_configs SET
			gateway_url = ?, merchant_id = ?, app_id = ?, app_name = ?, validation_url = ?,
			username = ?, password = ?, creditor_password = ?, updated_at = ?
		WHERE tenant_id = ?`,
		cfg.GatewayURL, cfg.MerchantID, cfg.AppID, cfg.AppName, cfg.ValidationURL,
		cfg.Username, cfg.Password, cfg.CreditorPassword, time.Now().UTC(), cfg.TenantID,
	)
}

func (s *sqlStore) setCertificateReference(ctx context.Context, tenantID, reference string) error {
	if err := checkSelector(tenantID); err != nil {
		return err
	}
	return s.exec(ctx, tenantID, `UPDATE gateway_configs SET certificate_reference = ?, updated_at = ?
		WHERE tenant_id = ?`, reference, time.Now().UTC(), tenantID)
}

func (s *sqlStore) delete(ctx context.Context, tenantID string) error {
	if err := checkSelector(tenantID); err != nil {
		return err
	}
	return s.exec(ctx, tenantID, `DELETE FROM gateway_configs WHERE tenant_id = ?`, tenantID)
}

// exec runs a statement that must touch exactly the row of tenantID
func (s *sqlStore) exec(ctx context.Context, tenantID, query string, args ...any) error {
	return s.run(func() error {
		result, err := s.db.ExecContext(ctx, s.bind(query), args...)
		if err != nil {
			return fmt.Errorf("failed to write gateway config: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return notFound(tenantID)
		}
		return nil
	})
}

func (s *sqlStore) stats(ctx context.Context) (map[string]any, error) {
	stats := make(map[string]any)

	var total, withCertificate int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*),
		COUNT(CASE WHEN certificate_reference <> '' THEN 1 END) FROM gateway_configs`).Scan(&total, &withCertificate)
	if err != nil {
		return nil, fmt.Errorf("failed to count gateway configs: %w", err)
	}
	stats["total_configs"] = total
	stats["configs_with_certificate"] = withCertificate

	return stats, nil
}

func questionBind(query string) string {
	return query
}

func dollarBind(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
