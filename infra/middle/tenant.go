package middle

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/gocips/infra/auth"
	"github.com/mstgnz/gocips/infra/response"
)

// ContextKey is the type of values this package stores on request contexts
type ContextKey string

// TenantIDKey holds the resolved gateway configuration selector
const TenantIDKey ContextKey = "tenant_id"

// TenantHeader names the header that selects a gateway configuration
const TenantHeader = "X-Tenant-ID"

// LegacyTenantHeader is still accepted from older merchant integrations
const LegacyTenantHeader = "Tenant-Header"

// TenantParam names the route and query parameter that selects a configuration
// on requests the merchant does not build, such as payer redirects
const TenantParam = "tenant"

// GetTenantIDFromContext returns the selector resolved for the request, or ""
func GetTenantIDFromContext(ctx context.Context) string {
	if tenantID, ok := ctx.Value(TenantIDKey).(string); ok {
		return tenantID
	}
	return ""
}

// WithTenantID stores a selector on ctx
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// TenantMiddleware resolves which gateway configuration a request is for.
// A tenant claim in a bearer JWT wins, then the X-Tenant-ID header, then the
// {tenant} route or ?tenant= query parameter, then defaultTenant. A selector
// that contradicts the claim is refused. When none can be found the request
// continues with an empty one.
func TenantMiddleware(jwtService *auth.JWTService, defaultTenant string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get(TenantHeader))
			if header == "" {
				header = strings.TrimSpace(r.Header.Get(LegacyTenantHeader))
			}
			if header == "" {
				header = urlTenant(r)
			}
			tenantID := header

			if jwtService != nil {
				if token, ok := bearerToken(r); ok {
					claims, err := jwtService.ValidateToken(token)
					if err != nil {
						msg := "Invalid token"
						if errors.Is(err, auth.ErrExpiredToken) {
							msg = "Token has expired"
						}
						response.Error(w, http.StatusUnauthorized, msg, nil)
						return
					}
					if header != "" && header != claims.TenantID {
						response.Error(w, http.StatusForbidden, "Tenant header does not match token", nil)
						return
					}
					tenantID = claims.TenantID
				}
			}

			if tenantID == "" {
				tenantID = defaultTenant
			}

			next.ServeHTTP(w, r.WithContext(WithTenantID(r.Context(), tenantID)))
		})
	}
}

func urlTenant(r *http.Request) string {
	if tenant := strings.TrimSpace(chi.URLParam(r, TenantParam)); tenant != "" {
		return tenant
	}
	return strings.TrimSpace(r.URL.Query().Get(TenantParam))
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}
