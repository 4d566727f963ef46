package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/gocips/infra/response"
	"github.com/mstgnz/gocips/provider"
	"github.com/mstgnz/gocips/provider/connectips"
)

const (
	defaultLogHours = 24
	maxLogHours     = 24 * 30
)

// AuditQuerier reads gateway audit entries back
type AuditQuerier interface {
	SearchLogs(ctx context.Context, tenantID, providerName string, query map[string]any) ([]provider.AuditEntry, error)
	GetTransactionLogs(ctx context.Context, tenantID, providerName, txnID string) ([]provider.AuditEntry, error)
	GetRecentErrorLogs(ctx context.Context, tenantID, providerName string, hours int) ([]provider.AuditEntry, error)
	GetProviderStats(ctx context.Context, tenantID, providerName string, hours int) (map[string]any, error)
}

// LogsHandler exposes the audit log of each tenant
type LogsHandler struct {
	logs AuditQuerier
}

// NewLogsHandler creates a new logs handler
func NewLogsHandler(logs AuditQuerier) *LogsHandler {
	return &LogsHandler{logs: logs}
}

// ListLogs handles GET /v1/logs/{tenant}?operation=&success=&hours=
func (h *LogsHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	q := r.URL.Query()
	filters := []map[string]any{
		{"range": map[string]any{"timestamp": map[string]any{"gte": "now-" + strconv.Itoa(parseHours(r)) + "h"}}},
	}
	if operation := q.Get("operation"); operation != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"operation": operation}})
	}
	if raw := q.Get("success"); raw != "" {
		success, err := strconv.ParseBool(raw)
		if err != nil {
			response.ErrorWithKind(w, http.StatusBadRequest, "success must be true or false", KindInvalidRequest, err)
			return
		}
		filters = append(filters, map[string]any{"term": map[string]any{"success": success}})
	}

	entries, err := h.logs.SearchLogs(ctx, chi.URLParam(r, "tenant"), connectips.Name, map[string]any{
		"bool": map[string]any{"filter": filters},
	})
	if err != nil {
		response.Error(w, http.StatusServiceUnavailable, "Failed to search logs", err)
		return
	}

	response.Success(w, http.StatusOK, "Logs retrieved", map[string]any{
		"logs":  entries,
		"count": len(entries),
	})
}

// GetTransactionLogs handles GET /v1/logs/{tenant}/transactions/{txnID}
func (h *LogsHandler) GetTransactionLogs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	txnID := chi.URLParam(r, "txnID")
	entries, err := h.logs.GetTransactionLogs(ctx, chi.URLParam(r, "tenant"), connectips.Name, txnID)
	if err != nil {
		response.Error(w, http.StatusServiceUnavailable, "Failed to get transaction logs", err)
		return
	}

	response.Success(w, http.StatusOK, "Transaction logs retrieved", map[string]any{
		"txn_id": txnID,
		"logs":   entries,
		"count":  len(entries),
	})
}

// GetErrorLogs handles GET /v1/logs/{tenant}/errors?hours=
func (h *LogsHandler) GetErrorLogs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	hours := parseHours(r)
	entries, err := h.logs.GetRecentErrorLogs(ctx, chi.URLParam(r, "tenant"), connectips.Name, hours)
	if err != nil {
		response.Error(w, http.StatusServiceUnavailable, "Failed to get error logs", err)
		return
	}

	response.Success(w, http.StatusOK, "Error logs retrieved", map[string]any{
		"logs":  entries,
		"count": len(entries),
		"hours": hours,
	})
}

// GetLogStats handles GET /v1/logs/{tenant}/stats?hours=
func (h *LogsHandler) GetLogStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	hours := parseHours(r)
	stats, err := h.logs.GetProviderStats(ctx, chi.URLParam(r, "tenant"), connectips.Name, hours)
	if err != nil {
		response.Error(w, http.StatusServiceUnavailable, "Failed to get log statistics", err)
		return
	}

	response.Success(w, http.StatusOK, "Log statistics retrieved", map[string]any{
		"stats": stats,
		"hours": hours,
	})
}

// parseHours reads the hours query parameter, clamped to the retention window
func parseHours(r *http.Request) int {
	hours, err := strconv.Atoi(r.URL.Query().Get("hours"))
	if err != nil || hours <= 0 {
		return defaultLogHours
	}
	return min(hours, maxLogHours)
}
