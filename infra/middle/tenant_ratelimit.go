package middle

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mstgnz/gocips/infra/config"
	"github.com/mstgnz/gocips/infra/response"
)

// ActionType groups routes that share a per-tenant budget
type ActionType string

const (
	ActionGlobal   ActionType = "global"
	ActionToken    ActionType = "token"
	ActionValidate ActionType = "validate"
	ActionConfig   ActionType = "config"
	ActionAuth     ActionType = "auth"
)

// TenantLimits holds requests-per-window budgets for one tenant
type TenantLimits struct {
	GlobalRate   int `json:"global_rate"`
	TokenRate    int `json:"token_rate"`
	ValidateRate int `json:"validate_rate"`
	ConfigRate   int `json:"config_rate"`
}

// TenantRateLimitConfig holds the defaults and per-tenant overrides
type TenantRateLimitConfig struct {
	Defaults            TenantLimits
	UnauthenticatedRate int
	Window              time.Duration
	Overrides           map[string]*TenantLimits
}

// LoadTenantRateLimitConfig reads limits from the environment
func LoadTenantRateLimitConfig() *TenantRateLimitConfig {
	return &TenantRateLimitConfig{
		Defaults: TenantLimits{
			GlobalRate:   config.GetIntEnv("TENANT_GLOBAL_RATE_LIMIT", 300),
			TokenRate:    config.GetIntEnv("TENANT_TOKEN_RATE_LIMIT", 120),
			ValidateRate: config.GetIntEnv("TENANT_VALIDATE_RATE_LIMIT", 120),
			ConfigRate:   config.GetIntEnv("TENANT_CONFIG_RATE_LIMIT", 30),
		},
		UnauthenticatedRate: config.GetIntEnv("UNAUTHENTICATED_RATE_LIMIT", 30),
		Window:              time.Minute,
		Overrides:           make(map[string]*TenantLimits),
	}
}

// RateLimitInfo describes the budget a request was checked against
type RateLimitInfo struct {
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetTime  time.Time `json:"reset_time"`
	RetryAfter int       `json:"retry_after"`
	ActionType string    `json:"action_type"`
	TenantID   string    `json:"tenant_id"`
}

type tenantBucket struct {
	global  *visitor
	actions map[ActionType]*visitor
	seen    time.Time
}

// TenantRateLimiter limits requests per tenant and action. Requests without a
// tenant are limited per client IP.
type TenantRateLimiter struct {
	mu      sync.Mutex
	tenants map[string]*tenantBucket
	ips     map[string]*visitor
	config  *TenantRateLimitConfig
	now     func() time.Time
}

// NewTenantRateLimiter creates a limiter; stale buckets are evicted until ctx is cancelled
func NewTenantRateLimiter(ctx context.Context, cfg *TenantRateLimitConfig) *TenantRateLimiter {
	if cfg == nil {
		cfg = LoadTenantRateLimitConfig()
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Overrides == nil {
		cfg.Overrides = make(map[string]*TenantLimits)
	}

	trl := &TenantRateLimiter{
		tenants: make(map[string]*tenantBucket),
		ips:     make(map[string]*visitor),
		config:  cfg,
		now:     time.Now,
	}
	go trl.cleanup(ctx)

	return trl
}

// Allow consumes one request from the tenant's global and action budgets
func (trl *TenantRateLimiter) Allow(tenantID string, action ActionType, clientIP string) (bool, *RateLimitInfo) {
	trl.mu.Lock()
	defer trl.mu.Unlock()

	now := trl.now()

	if tenantID == "" {
		v := trl.ips[clientIP]
		if v == nil {
			v = &visitor{lastReset: now}
			trl.ips[clientIP] = v
		}
		return trl.take(v, trl.config.UnauthenticatedRate, now, action, "")
	}

	bucket := trl.tenants[tenantID]
	if bucket == nil {
		bucket = &tenantBucket{
			global:  &visitor{lastReset: now},
			actions: make(map[ActionType]*visitor),
		}
		trl.tenants[tenantID] = bucket
	}
	bucket.seen = now

	limits := trl.limitsFor(tenantID)
	if ok, info := trl.take(bucket.global, limits.GlobalRate, now, ActionGlobal, tenantID); !ok {
		return false, info
	}

	limit := actionLimit(action, limits)
	if limit <= 0 {
		return true, trl.info(bucket.global, limits.GlobalRate, ActionGlobal, tenantID)
	}

	v := bucket.actions[action]
	if v == nil {
		v = &visitor{lastReset: now}
		bucket.actions[action] = v
	}
	return trl.take(v, limit, now, action, tenantID)
}

func (trl *TenantRateLimiter) take(v *visitor, limit int, now time.Time, action ActionType, tenantID string) (bool, *RateLimitInfo) {
	if now.Sub(v.lastReset) >= trl.config.Window {
		v.count = 0
		v.lastReset = now
	}
	if limit <= 0 {
		return true, trl.info(v, limit, action, tenantID)
	}
	if v.count >= limit {
		info := trl.info(v, limit, action, tenantID)
		info.RetryAfter = max(1, int(info.ResetTime.Sub(now).Seconds()))
		return false, info
	}
	v.count++
	return true, trl.info(v, limit, action, tenantID)
}

func (trl *TenantRateLimiter) info(v *visitor, limit int, action ActionType, tenantID string) *RateLimitInfo {
	return &RateLimitInfo{
		Limit:      limit,
		Remaining:  max(0, limit-v.count),
		ResetTime:  v.lastReset.Add(trl.config.Window),
		ActionType: string(action),
		TenantID:   tenantID,
	}
}

func (trl *TenantRateLimiter) limitsFor(tenantID string) TenantLimits {
	if override, ok := trl.config.Overrides[tenantID]; ok && override != nil {
		return *override
	}
	return trl.config.Defaults
}

func actionLimit(action ActionType, limits TenantLimits) int {
	switch action {
	case ActionToken:
		return limits.TokenRate
	case ActionValidate:
		return limits.ValidateRate
	case ActionConfig, ActionAuth:
		return limits.ConfigRate
	}
	return 0
}

func (trl *TenantRateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			trl.mu.Lock()
			cutoff := trl.now().Add(-2 * trl.config.Window)
			for id, bucket := range trl.tenants {
				if bucket.seen.Before(cutoff) {
					delete(trl.tenants, id)
				}
			}
			for ip, v := range trl.ips {
				if v.lastReset.Before(cutoff) {
					delete(trl.ips, ip)
				}
			}
			trl.mu.Unlock()
		}
	}
}

// TenantRateLimitMiddleware enforces per-tenant budgets. It must run after TenantMiddleware.
func TenantRateLimitMiddleware(trl *TenantRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := GetTenantIDFromContext(r.Context())
			allowed, info := trl.Allow(tenantID, determineActionType(r.URL.Path), GetClientIP(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
			w.Header().Set("X-RateLimit-Action", info.ActionType)

			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(info.RetryAfter))
				msg := fmt.Sprintf("Rate limit exceeded for %s. Limit: %d/minute", info.ActionType, info.Limit)
				if tenantID != "" {
					msg = fmt.Sprintf("Rate limit exceeded for tenant %s, action %s. Limit: %d/minute", tenantID, info.ActionType, info.Limit)
				}
				response.Error(w, http.StatusTooManyRequests, msg, nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func determineActionType(path string) ActionType {
	path = strings.ToLower(path)
	switch {
	case strings.HasSuffix(path, "/generate-token"):
		return ActionToken
	case strings.HasSuffix(path, "/success"), strings.HasSuffix(path, "/failure"):
		return ActionValidate
	case strings.Contains(path, "/auth/"):
		return ActionAuth
	case strings.Contains(path, "/cips"):
		return ActionConfig
	}
	return ActionGlobal
}

// GetTenantRateLimitStats reports current usage for a tenant
func (trl *TenantRateLimiter) GetTenantRateLimitStats(tenantID string) map[string]any {
	trl.mu.Lock()
	defer trl.mu.Unlock()

	stats := map[string]any{"tenant_id": tenantID}

	bucket, ok := trl.tenants[tenantID]
	if !ok {
		stats["status"] = "no_activity"
		return stats
	}

	limits := trl.limitsFor(tenantID)
	stats["global_limit"] = limits.GlobalRate
	stats["global_used"] = bucket.global.count
	stats["global_remaining"] = max(0, limits.GlobalRate-bucket.global.count)
	stats["next_reset"] = bucket.global.lastReset.Add(trl.config.Window)

	actions := make(map[string]map[string]any, len(bucket.actions))
	for action, v := range bucket.actions {
		limit := actionLimit(action, limits)
		actions[string(action)] = map[string]any{
			"limit":      limit,
			"used":       v.count,
			"remaining":  max(0, limit-v.count),
			"next_reset": v.lastReset.Add(trl.config.Window),
		}
	}
	stats["actions"] = actions

	return stats
}
