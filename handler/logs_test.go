package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/gocips/provider"
	"github.com/mstgnz/gocips/provider/connectips"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock audit querier for testing
type mockAuditQuerier struct {
	entries []provider.AuditEntry
	err     error

	tenantID string
	provider string
	query    map[string]any
	txnID    string
	hours    int
}

func (m *mockAuditQuerier) SearchLogs(_ context.Context, tenantID, providerName string, query map[string]any) ([]provider.AuditEntry, error) {
	m.tenantID, m.provider, m.query = tenantID, providerName, query
	return m.entries, m.err
}

func (m *mockAuditQuerier) GetTransactionLogs(_ context.Context, tenantID, providerName, txnID string) ([]provider.AuditEntry, error) {
	m.tenantID, m.provider, m.txnID = tenantID, providerName, txnID
	return m.entries, m.err
}

func (m *mockAuditQuerier) GetRecentErrorLogs(_ context.Context, tenantID, providerName string, hours int) ([]provider.AuditEntry, error) {
	m.tenantID, m.provider, m.hours = tenantID, providerName, hours
	return m.entries, m.err
}

func (m *mockAuditQuerier) GetProviderStats(_ context.Context, tenantID, providerName string, hours int) (map[string]any, error) {
	m.tenantID, m.provider, m.hours = tenantID, providerName, hours
	if m.err != nil {
		return nil, m.err
	}
	return map[string]any{"total": len(m.entries)}, nil
}

func newLogsRouter(q AuditQuerier) http.Handler {
	h := NewLogsHandler(q)
	r := chi.NewRouter()
	r.Get("/v1/logs/{tenant}", h.ListLogs)
	r.Get("/v1/logs/{tenant}/transactions/{txnID}", h.GetTransactionLogs)
	r.Get("/v1/logs/{tenant}/errors", h.GetErrorLogs)
	r.Get("/v1/logs/{tenant}/stats", h.GetLogStats)
	return r
}

func sampleEntries() []provider.AuditEntry {
	return []provider.AuditEntry{
		{TenantID: "APP1", Provider: connectips.Name, Operation: provider.OperationGenerateToken, TxnID: "T1", Success: true},
		{TenantID: "APP1", Provider: connectips.Name, Operation: provider.OperationValidateTransaction, TxnID: "T1", ErrorKind: "BAD_CREDENTIALS"},
	}
}

func TestLogsHandler_ListLogs(t *testing.T) {
	q := &mockAuditQuerier{entries: sampleEntries()}
	router := newLogsRouter(q)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/v1/logs/APP1?operation=validate_transaction&success=false&hours=2", nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "APP1", q.tenantID)
	assert.Equal(t, connectips.Name, q.provider)

	filters := q.query["bool"].(map[string]any)["filter"].([]map[string]any)
	require.Len(t, filters, 3)
	assert.Equal(t, map[string]any{"term": map[string]any{"operation": "validate_transaction"}}, filters[1])
	assert.Equal(t, map[string]any{"term": map[string]any{"success": false}}, filters[2])
	assert.Equal(t, "now-2h", filters[0]["range"].(map[string]any)["timestamp"].(map[string]any)["gte"])

	data := decodeResponse(t, w).Data.(map[string]any)
	assert.EqualValues(t, 2, data["count"])
}

func TestLogsHandler_ListLogsInvalidFilter(t *testing.T) {
	router := newLogsRouter(&mockAuditQuerier{})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/v1/logs/APP1?success=maybe", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, KindInvalidRequest, decodeResponse(t, w).Kind)
}

func TestLogsHandler_GetTransactionLogs(t *testing.T) {
	q := &mockAuditQuerier{entries: sampleEntries()}
	router := newLogsRouter(q)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/v1/logs/APP1/transactions/T1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "T1", q.txnID)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, "T1", data["txn_id"])
	assert.Len(t, data["logs"], 2)
}

func TestLogsHandler_Hours(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "default", query: "", want: defaultLogHours},
		{name: "explicit", query: "?hours=6", want: 6},
		{name: "negative", query: "?hours=-1", want: defaultLogHours},
		{name: "not a number", query: "?hours=abc", want: defaultLogHours},
		{name: "clamped", query: "?hours=100000", want: maxLogHours},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &mockAuditQuerier{}
			router := newLogsRouter(q)

			w := serve(router, httptest.NewRequest(http.MethodGet, "/v1/logs/APP1/errors"+tt.query, nil))
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, q.hours)

			w = serve(router, httptest.NewRequest(http.MethodGet, "/v1/logs/APP1/stats"+tt.query, nil))
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, q.hours)
		})
	}
}

func TestLogsHandler_BackendErrors(t *testing.T) {
	router := newLogsRouter(&mockAuditQuerier{err: errors.New("opensearch unavailable")})

	for _, path := range []string{
		"/v1/logs/APP1",
		"/v1/logs/APP1/transactions/T1",
		"/v1/logs/APP1/errors",
		"/v1/logs/APP1/stats",
	} {
		t.Run(path, func(t *testing.T) {
			w := serve(router, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
			assert.False(t, decodeResponse(t, w).Success)
		})
	}
}
