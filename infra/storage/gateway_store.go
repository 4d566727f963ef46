package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mstgnz/gocips/provider"
)

type cachedConfig struct {
	cfg      provider.GatewayConfig
	loadedAt time.Time
}

// GatewayStore combines configuration rows with certificate files and keeps a
// short lived read cache. It implements provider.CredentialStore.
type GatewayStore struct {
	storage  ConfigStorage
	certs    *CertificateStore
	cacheTTL time.Duration

	mu    sync.RWMutex
	cache map[string]cachedConfig
}

var _ provider.CredentialStore = (*GatewayStore)(nil)

// NewGatewayStore creates a store; a zero cacheTTL disables caching
func NewGatewayStore(storage ConfigStorage, certs *CertificateStore, cacheTTL time.Duration) *GatewayStore {
	return &GatewayStore{
		storage:  storage,
		certs:    certs,
		cacheTTL: cacheTTL,
		cache:    make(map[string]cachedConfig),
	}
}

// LoadConfig resolves the configuration of exactly one selector
func (g *GatewayStore) LoadConfig(ctx context.Context, selector string) (*provider.GatewayConfig, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, provider.Errorf(provider.KindMissingRequiredField, "missing required fields: tenant selector")
	}

	if g.cacheTTL > 0 {
		g.mu.RLock()
		entry, ok := g.cache[selector]
		g.mu.RUnlock()
		if ok && time.Since(entry.loadedAt) < g.cacheTTL {
			cfg := entry.cfg
			return &cfg, nil
		}
	}

	cfg, err := g.storage.LoadConfig(ctx, selector)
	if err != nil {
		return nil, err
	}

	if g.cacheTTL > 0 {
		g.mu.Lock()
		g.cache[selector] = cachedConfig{cfg: *cfg, loadedAt: time.Now()}
		g.mu.Unlock()
	}
	return cfg, nil
}

// LoadCertificate returns the raw bundle referenced by cfg
func (g *GatewayStore) LoadCertificate(_ context.Context, cfg *provider.GatewayConfig) ([]byte, error) {
	if cfg == nil {
		return nil, provider.Errorf(provider.KindCertificateNotFound, "no configuration given")
	}
	return g.certs.Load(cfg.CertificateReference)
}

// CreateConfig stores a new configuration and returns it as persisted
func (g *GatewayStore) CreateConfig(ctx context.Context, cfg *provider.GatewayConfig) (*provider.GatewayConfig, error) {
	cfg.CertificateReference = ""
	if err := g.storage.CreateConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return g.reload(ctx, cfg.TenantID)
}

// ListConfigs returns every configuration
func (g *GatewayStore) ListConfigs(ctx context.Context) ([]provider.GatewayConfig, error) {
	return g.storage.ListConfigs(ctx)
}

// UpdateConfig replaces the credentials of selector
func (g *GatewayStore) UpdateConfig(ctx context.Context, selector string, cfg *provider.GatewayConfig) (*provider.GatewayConfig, error) {
	cfg.TenantID = selector
	if err := g.storage.UpdateConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return g.reload(ctx, selector)
}

// PatchConfig changes only the fields present in patch
func (g *GatewayStore) PatchConfig(ctx context.Context, selector string, patch provider.ConfigPatch) (*provider.GatewayConfig, error) {
	current, err := g.storage.LoadConfig(ctx, selector)
	if err != nil {
		return nil, err
	}
	patch.Apply(current)
	return g.UpdateConfig(ctx, selector, current)
}

// SaveCertificate stores the bundle of selector and links it to the configuration.
// The configuration must exist before the file is written.
func (g *GatewayStore) SaveCertificate(ctx context.Context, selector string, data []byte) (*provider.GatewayConfig, error) {
	if _, err := g.storage.LoadConfig(ctx, selector); err != nil {
		return nil, err
	}

	reference, err := g.certs.Save(selector, data)
	if err != nil {
		return nil, err
	}
	if err := g.storage.SetCertificateReference(ctx, selector, reference); err != nil {
		return nil, err
	}
	return g.reload(ctx, selector)
}

// DeleteConfig removes a configuration together with its certificate file
func (g *GatewayStore) DeleteConfig(ctx context.Context, selector string) error {
	current, err := g.storage.LoadConfig(ctx, selector)
	if err != nil {
		return err
	}
	if err := g.storage.DeleteConfig(ctx, selector); err != nil {
		return err
	}
	g.invalidate(selector)

	if current.CertificateReference != "" {
		if err := g.certs.Remove(current.CertificateReference); err != nil {
			return fmt.Errorf("configuration deleted but certificate cleanup failed: %w", err)
		}
	}
	return nil
}

// GetStats returns storage and cache statistics
func (g *GatewayStore) GetStats(ctx context.Context) (map[string]any, error) {
	stats, err := g.storage.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	g.mu.RLock()
	stats["cached_configs"] = len(g.cache)
	g.mu.RUnlock()
	stats["certificate_dir"] = g.certs.Dir()
	return stats, nil
}

// Close closes the underlying storage
func (g *GatewayStore) Close() error {
	return g.storage.Close()
}

func (g *GatewayStore) reload(ctx context.Context, selector string) (*provider.GatewayConfig, error) {
	g.invalidate(selector)
	return g.storage.LoadConfig(ctx, selector)
}

func (g *GatewayStore) invalidate(selector string) {
	g.mu.Lock()
	delete(g.cache, selector)
	g.mu.Unlock()
}
