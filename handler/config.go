package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/gocips/infra/logger"
	"github.com/mstgnz/gocips/infra/middle"
	"github.com/mstgnz/gocips/infra/response"
	"github.com/mstgnz/gocips/provider"
	"github.com/mstgnz/gocips/provider/connectips"
)

const maxCertificateSize = 1 << 20

// ConfigStore is the admin side of the credential store
type ConfigStore interface {
	CreateConfig(ctx context.Context, cfg *provider.GatewayConfig) (*provider.GatewayConfig, error)
	LoadConfig(ctx context.Context, selector string) (*provider.GatewayConfig, error)
	ListConfigs(ctx context.Context) ([]provider.GatewayConfig, error)
	UpdateConfig(ctx context.Context, selector string, cfg *provider.GatewayConfig) (*provider.GatewayConfig, error)
	PatchConfig(ctx context.Context, selector string, patch provider.ConfigPatch) (*provider.GatewayConfig, error)
	SaveCertificate(ctx context.Context, selector string, data []byte) (*provider.GatewayConfig, error)
	DeleteConfig(ctx context.Context, selector string) error
	GetStats(ctx context.Context) (map[string]any, error)
}

// ConfigHandler manages ConnectIPS configurations and creditor certificates
type ConfigHandler struct {
	store    ConfigStore
	validate *validator.Validate
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(store ConfigStore, validate *validator.Validate) *ConfigHandler {
	return &ConfigHandler{
		store:    store,
		validate: validate,
	}
}

// ConfigRequest is the full set of credentials of one installation
type ConfigRequest struct {
	TenantID         string `json:"tenant_id" validate:"required,selector"`
	GatewayURL       string `json:"gateway_url" validate:"required,url"`
	MerchantID       string `json:"merchant_id" validate:"required,max=255"`
	AppID            string `json:"app_id" validate:"required,max=255"`
	AppName          string `json:"app_name" validate:"required,max=255"`
	ValidationURL    string `json:"validation_url" validate:"required,url"`
	Username         string `json:"username" validate:"required,max=255"`
	Password         string `json:"password" validate:"required,max=255"`
	CreditorPassword string `json:"creditor_password" validate:"required,max=255"`
}

func (r ConfigRequest) toConfig() *provider.GatewayConfig {
	return &provider.GatewayConfig{
		TenantID:         r.TenantID,
		GatewayURL:       r.GatewayURL,
		MerchantID:       r.MerchantID,
		AppID:            r.AppID,
		AppName:          r.AppName,
		ValidationURL:    r.ValidationURL,
		Username:         r.Username,
		Password:         r.Password,
		CreditorPassword: r.CreditorPassword,
	}
}

// present renders a configuration for the admin API. dashboard=false returns
// only the payer-facing fields; otherwise secrets are masked.
func present(r *http.Request, cfg provider.GatewayConfig) any {
	if dashboard, err := strconv.ParseBool(r.URL.Query().Get("dashboard")); err == nil && !dashboard {
		return cfg.PublicView()
	}
	return cfg.Masked()
}

// ListConfigs handles GET /v1/cips
func (h *ConfigHandler) ListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.store.ListConfigs(r.Context())
	if err != nil {
		writeError(w, "Failed to list configurations", err)
		return
	}

	data := make([]any, 0, len(configs))
	for _, cfg := range configs {
		data = append(data, present(r, cfg))
	}
	response.Success(w, http.StatusOK, "Configurations retrieved", data)
}

// CreateConfig handles POST /v1/cips. A multipart body may carry the
// certificate in a "file" part; it must unlock with the creditor password.
func (h *ConfigHandler) CreateConfig(w http.ResponseWriter, r *http.Request) {
	var req ConfigRequest
	var certificate []byte

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxCertificateSize); err != nil {
			response.ErrorWithKind(w, http.StatusBadRequest, "Invalid multipart form", KindInvalidRequest, err)
			return
		}
		req = ConfigRequest{
			TenantID:         r.FormValue("tenant_id"),
			GatewayURL:       r.FormValue("gateway_url"),
			MerchantID:       r.FormValue("merchant_id"),
			AppID:            r.FormValue("app_id"),
			AppName:          r.FormValue("app_name"),
			ValidationURL:    r.FormValue("validation_url"),
			Username:         r.FormValue("username"),
			Password:         r.FormValue("password"),
			CreditorPassword: r.FormValue("creditor_password"),
		}
		if len(r.MultipartForm.File["file"]) > 0 {
			data, err := readCertificate(r)
			if err != nil {
				writeError(w, "Invalid certificate", err)
				return
			}
			certificate = data
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ErrorWithKind(w, http.StatusBadRequest, "Invalid request format", KindInvalidRequest, err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if certificate != nil {
		if err := verifyCertificate(certificate, req.CreditorPassword); err != nil {
			writeError(w, "Certificate does not unlock with the creditor password", err)
			return
		}
	}

	cfg, err := h.store.CreateConfig(r.Context(), req.toConfig())
	if err != nil {
		writeError(w, "Failed to create configuration", err)
		return
	}

	if certificate != nil {
		saved, err := h.store.SaveCertificate(r.Context(), cfg.TenantID, certificate)
		if err != nil {
			if rbErr := h.store.DeleteConfig(r.Context(), cfg.TenantID); rbErr != nil {
				logger.Error("Failed to roll back configuration", rbErr, logger.LogContext{
					TenantID: cfg.TenantID,
					Provider: connectips.Name,
				})
			}
			writeError(w, "Failed to store certificate", err)
			return
		}
		cfg = saved
	}

	logger.Info("Gateway configuration created", logger.LogContext{
		TenantID: cfg.TenantID,
		Provider: connectips.Name,
		Fields:   map[string]any{"with_certificate": certificate != nil},
	})
	response.Success(w, http.StatusCreated, "Created successfully", cfg.Masked())
}

// GetConfig handles GET /v1/cips/{tenant}
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.LoadConfig(r.Context(), chi.URLParam(r, "tenant"))
	if err != nil {
		writeError(w, "Failed to get configuration", err)
		return
	}
	response.Success(w, http.StatusOK, "Configuration retrieved", present(r, *cfg))
}

// UpdateConfig handles PUT /v1/cips/{tenant}
func (h *ConfigHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	selector := chi.URLParam(r, "tenant")

	var req ConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ErrorWithKind(w, http.StatusBadRequest, "Invalid request format", KindInvalidRequest, err)
		return
	}
	if req.TenantID == "" {
		req.TenantID = selector
	}
	if req.TenantID != selector {
		writeError(w, "Tenant cannot be changed", provider.Errorf(provider.KindInvalidConfig, "tenant_id %q does not match %q", req.TenantID, selector))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	cfg, err := h.store.UpdateConfig(r.Context(), selector, req.toConfig())
	if err != nil {
		writeError(w, "Failed to update configuration", err)
		return
	}
	response.Success(w, http.StatusOK, "Updated successfully", cfg.Masked())
}

// PatchConfig handles PATCH /v1/cips/{tenant}
func (h *ConfigHandler) PatchConfig(w http.ResponseWriter, r *http.Request) {
	var patch provider.ConfigPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.ErrorWithKind(w, http.StatusBadRequest, "Invalid request format", KindInvalidRequest, err)
		return
	}
	for name, value := range map[string]*string{"gateway_url": patch.GatewayURL, "validation_url": patch.ValidationURL} {
		if value != nil && h.validate.Var(*value, "required,url") != nil {
			response.ErrorWithKind(w, http.StatusBadRequest, "Validation error", KindInvalidRequest, errors.New("invalid fields: "+name+" (url)"))
			return
		}
	}

	cfg, err := h.store.PatchConfig(r.Context(), chi.URLParam(r, "tenant"), patch)
	if err != nil {
		writeError(w, "Failed to update configuration", err)
		return
	}
	response.Success(w, http.StatusOK, "Partially updated successfully", cfg.Masked())
}

// DeleteConfig handles DELETE /v1/cips/{tenant}
func (h *ConfigHandler) DeleteConfig(w http.ResponseWriter, r *http.Request) {
	selector := chi.URLParam(r, "tenant")
	if err := h.store.DeleteConfig(r.Context(), selector); err != nil {
		writeError(w, "Failed to delete configuration", err)
		return
	}

	logger.Info("Gateway configuration deleted", logger.LogContext{TenantID: selector, Provider: connectips.Name})
	response.Success(w, http.StatusOK, "Deleted successfully", nil)
}

// UploadCertificate handles POST /v1/cips-payment/upload (selector from the
// tenant header) and POST /v1/cips/{tenant}/certificate. The bundle replaces
// the stored one only when it unlocks with the stored creditor password.
func (h *ConfigHandler) UploadCertificate(w http.ResponseWriter, r *http.Request) {
	selector := chi.URLParam(r, "tenant")
	if selector == "" {
		selector = middle.GetTenantIDFromContext(r.Context())
	}
	if selector == "" {
		writeError(w, "Tenant not provided", provider.Errorf(provider.KindMissingRequiredField, "missing required fields: %s", middle.TenantHeader))
		return
	}

	cfg, err := h.store.LoadConfig(r.Context(), selector)
	if err != nil {
		writeError(w, "Failed to load configuration", err)
		return
	}

	data, err := readCertificate(r)
	if err != nil {
		writeError(w, "Invalid certificate", err)
		return
	}

	if err := verifyCertificate(data, cfg.CreditorPassword); err != nil {
		writeError(w, "Certificate does not unlock with the creditor password", err)
		return
	}

	if _, err := h.store.SaveCertificate(r.Context(), selector, data); err != nil {
		writeError(w, "Failed to store certificate", err)
		return
	}

	logger.Info("Creditor certificate uploaded", logger.LogContext{
		TenantID: selector,
		Provider: connectips.Name,
		Fields:   map[string]any{"size": len(data)},
	})
	response.Success(w, http.StatusOK, "PFX uploaded successfully", nil)
}

// GetStats handles GET /v1/stats
func (h *ConfigHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		writeError(w, "Failed to get statistics", err)
		return
	}
	response.Success(w, http.StatusOK, "Statistics retrieved", stats)
}

// readCertificate reads the "file" part of a multipart upload
func readCertificate(r *http.Request) ([]byte, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, provider.Errorf(provider.KindMissingRequiredField, "missing required fields: file")
		}
		return nil, provider.NewError(provider.KindMissingRequiredField, "no file uploaded", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".pfx", ".p12":
	default:
		return nil, provider.Errorf(provider.KindInvalidCertificate, "certificate must be a .pfx or .p12 file")
	}

	data, err := io.ReadAll(io.LimitReader(file, maxCertificateSize+1))
	if err != nil {
		return nil, provider.NewError(provider.KindInvalidCertificate, "failed to read uploaded file", err)
	}
	if len(data) > maxCertificateSize {
		return nil, provider.Errorf(provider.KindInvalidCertificate, "certificate is larger than %d bytes", maxCertificateSize)
	}
	if len(data) == 0 {
		return nil, provider.Errorf(provider.KindMissingRequiredField, "uploaded file is empty")
	}
	return data, nil
}

func verifyCertificate(data []byte, password string) error {
	_, _, err := connectips.LoadPrivateKey(data, password)
	return err
}
