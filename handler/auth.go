package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/gocips/infra/auth"
	"github.com/mstgnz/gocips/infra/response"
	"github.com/mstgnz/gocips/provider"
)

// ConfigLoader resolves a configuration by selector
type ConfigLoader interface {
	LoadConfig(ctx context.Context, selector string) (*provider.GatewayConfig, error)
}

// AuthHandler issues tenant-scoped tokens for the payment routes
type AuthHandler struct {
	configs    ConfigLoader
	jwtService *auth.JWTService
	validate   *validator.Validate
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(configs ConfigLoader, jwtService *auth.JWTService, validate *validator.Validate) *AuthHandler {
	return &AuthHandler{
		configs:    configs,
		jwtService: jwtService,
		validate:   validate,
	}
}

// IssueTokenRequest names the configuration a token is bound to
type IssueTokenRequest struct {
	TenantID string `json:"tenant_id" validate:"required,selector"`
}

// RefreshTokenRequest represents the refresh token request structure
type RefreshTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// TokenResponse is returned by the issue and refresh endpoints
type TokenResponse struct {
	Token     string    `json:"token"`
	TenantID  string    `json:"tenant_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueToken handles POST /v1/auth/token. Tokens are only issued for
// configured tenants.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req IssueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ErrorWithKind(w, http.StatusBadRequest, "Invalid request format", KindInvalidRequest, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if _, err := h.configs.LoadConfig(r.Context(), req.TenantID); err != nil {
		writeError(w, "Cannot issue token", err)
		return
	}

	token, err := h.jwtService.GenerateToken(req.TenantID)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}

	response.Success(w, http.StatusCreated, "Token issued", TokenResponse{
		Token:     token,
		TenantID:  req.TenantID,
		ExpiresAt: time.Now().Add(h.jwtService.Expiry()),
	})
}

// RefreshToken handles POST /v1/auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ErrorWithKind(w, http.StatusBadRequest, "Invalid request format", KindInvalidRequest, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	claims, err := h.jwtService.ValidateToken(req.Token)
	if err != nil {
		writeTokenError(w, err)
		return
	}

	token, err := h.jwtService.GenerateToken(claims.TenantID)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to refresh token", err)
		return
	}

	response.Success(w, http.StatusOK, "Token refreshed successfully", TokenResponse{
		Token:     token,
		TenantID:  claims.TenantID,
		ExpiresAt: time.Now().Add(h.jwtService.Expiry()),
	})
}

// ValidateToken handles GET /v1/auth/validate
func (h *AuthHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		response.Error(w, http.StatusBadRequest, "Invalid authorization format. Use: Bearer <jwt_token>", nil)
		return
	}

	claims, err := h.jwtService.ValidateToken(strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")))
	if err != nil {
		writeTokenError(w, err)
		return
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	response.Success(w, http.StatusOK, "Token is valid", map[string]any{
		"valid":       true,
		"tenant_id":   claims.TenantID,
		"expires_at":  expiresAt,
		"time_to_exp": time.Until(expiresAt).Round(time.Second).String(),
	})
}

func writeTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		response.Error(w, http.StatusUnauthorized, "Token has expired", nil)
	case errors.Is(err, auth.ErrMissingTenant):
		response.Error(w, http.StatusUnauthorized, "Missing tenant information in token", nil)
	case errors.Is(err, auth.ErrInvalidClaims):
		response.Error(w, http.StatusUnauthorized, "Invalid token claims", nil)
	default:
		response.Error(w, http.StatusUnauthorized, "Invalid token", nil)
	}
}
