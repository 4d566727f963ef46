package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/mstgnz/gocips/provider"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS gateway_configs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
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
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
`

// SQLiteStorage handles persistent storage of gateway configurations
type SQLiteStorage struct {
	sqlStore
	path string
	mu   sync.Mutex
}

var _ ConfigStorage = (*SQLiteStorage)(nil)

// retryOperation executes a database operation with retry logic for SQLITE_BUSY errors
func retryOperation(operation func() error, maxRetries int) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		if !isBusy(err) {
			return err
		}
		lastErr = err
		if attempt < maxRetries {
			// Exponential backoff: 10ms, 20ms, 40ms
			backoff := time.Duration(10*(1<<attempt)) * time.Millisecond
			log.Printf("SQLite busy, retrying in %v (attempt %d/%d)", backoff, attempt+1, maxRetries+1)
			time.Sleep(backoff)
		}
	}

	return fmt.Errorf("operation failed after %d retries, last error: %w", maxRetries+1, lastErr)
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return strings.Contains(err.Error(), "database is locked")
}

func isSQLiteUnique(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// NewSQLiteStorage creates a new SQLite storage instance optimized for multiple processes
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_timeout=20000&_txlock=immediate", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	storage := &SQLiteStorage{path: dbPath}
	storage.sqlStore = sqlStore{
		db:     db,
		bind:   questionBind,
		unique: isSQLiteUnique,
		run: func(op func() error) error {
			return retryOperation(op, 3)
		},
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := storage.optimizeForMultiProcess(); err != nil {
		log.Printf("Warning: Failed to apply optimizations: %v", err)
	}

	log.Printf("SQLite storage initialized at: %s", dbPath)
	return storage, nil
}

// optimizeForMultiProcess applies SQLite optimizations for multi-process access
func (s *SQLiteStorage) optimizeForMultiProcess() error {
	optimizations := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 30000;",
		"PRAGMA temp_store = memory;",
	}

	for _, pragma := range optimizations {
		if _, err := s.db.Exec(pragma); err != nil {
			log.Printf("Warning: Failed to execute %s: %v", pragma, err)
		}
	}

	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to check journal mode: %w", err)
	}
	return nil
}

// CreateConfig inserts a configuration; an existing tenant yields ConfigExists
func (s *SQLiteStorage) CreateConfig(ctx context.Context, cfg *provider.GatewayConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(ctx, cfg)
}

// LoadConfig loads the configuration of a tenant
func (s *SQLiteStorage) LoadConfig(ctx context.Context, tenantID string) (*provider.GatewayConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, tenantID)
}

// ListConfigs returns all configurations ordered by tenant
func (s *SQLiteStorage) ListConfigs(ctx context.Context) ([]provider.GatewayConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(ctx)
}

// UpdateConfig replaces every credential field of an existing configuration
func (s *SQLiteStorage) UpdateConfig(ctx context.Context, cfg *provider.GatewayConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(ctx, cfg)
}

// SetCertificateReference points a configuration at its certificate file
func (s *SQLiteStorage) SetCertificateReference(ctx context.Context, tenantID, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setCertificateReference(ctx, tenantID, reference)
}

// DeleteConfig removes the configuration of a tenant
func (s *SQLiteStorage) DeleteConfig(ctx context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delete(ctx, tenantID)
}

// GetStats returns database statistics
func (s *SQLiteStorage) GetStats(ctx context.Context) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, err := s.stats(ctx)
	if err != nil {
		return nil, err
	}
	if fileInfo, err := os.Stat(s.path); err == nil {
		stats["db_size_bytes"] = fileInfo.Size()
	}
	stats["db_path"] = s.path
	stats["driver"] = "sqlite"
	return stats, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
