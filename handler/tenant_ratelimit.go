package handler

import (
	"net/http"

	"github.com/mstgnz/gocips/infra/middle"
	"github.com/mstgnz/gocips/infra/response"
)

// TenantRateLimitHandler reports the per-tenant request budgets
type TenantRateLimitHandler struct {
	rateLimiter *middle.TenantRateLimiter
}

// NewTenantRateLimitHandler creates a new tenant rate limit handler
func NewTenantRateLimitHandler(rateLimiter *middle.TenantRateLimiter) *TenantRateLimitHandler {
	return &TenantRateLimitHandler{
		rateLimiter: rateLimiter,
	}
}

// GetTenantStats returns rate limiting statistics for the resolved tenant
func (h *TenantRateLimitHandler) GetTenantStats(w http.ResponseWriter, r *http.Request) {
	tenantID := middle.GetTenantIDFromContext(r.Context())
	if tenantID == "" {
		response.ErrorWithKind(w, http.StatusBadRequest, "Tenant ID is required", "MISSING_REQUIRED_FIELD", nil)
		return
	}

	response.Success(w, http.StatusOK, "Tenant rate limiting statistics retrieved", h.rateLimiter.GetTenantRateLimitStats(tenantID))
}
