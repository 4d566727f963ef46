package opensearch

import (
	"context"
	"testing"
	"time"

	"github.com/mstgnz/gocips/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_LogGatewayEvent(t *testing.T) {
	fake, server := newFakeOpenSearch(t)
	logger := NewLogger(newTestClient(t, server.URL, true))

	err := logger.LogGatewayEvent(context.Background(), provider.AuditEntry{
		TenantID:     "APP1",
		Provider:     "connectips",
		Operation:    provider.OperationValidateTransaction,
		RequestID:    "req-1",
		TxnID:        "T1",
		TxnAmt:       "100",
		ErrorKind:    string(provider.KindBadCredentials),
		ErrorMessage: `gateway said {"password":"hunter2"}`,
	})
	require.NoError(t, err)

	docs := fake.documents()
	require.Len(t, docs, 1)
	assert.Equal(t, "gocips-app1-connectips-logs", docs[0].index)
	assert.Equal(t, "/gocips-app1-connectips-logs/_doc/req-1-validate_transaction", docs[0].path)
	assert.Equal(t, "T1", docs[0].body["txn_id"])
	assert.Equal(t, "BAD_CREDENTIALS", docs[0].body["error_kind"])
	assert.NotContains(t, docs[0].body["error_message"], "hunter2")
	assert.NotEmpty(t, docs[0].body["timestamp"])
}

func TestLogger_Disabled(t *testing.T) {
	fake, server := newFakeOpenSearch(t)
	logger := NewLogger(newTestClient(t, server.URL, false))

	require.NoError(t, logger.LogGatewayEvent(context.Background(), provider.AuditEntry{TenantID: "APP1"}))
	require.NoError(t, logger.LogSystemEvent(context.Background(), map[string]any{"message": "x"}))
	assert.Empty(t, fake.documents())

	_, err := logger.SearchLogs(context.Background(), "APP1", "connectips", map[string]any{})
	assert.Error(t, err)
}

func TestLogger_IndexError(t *testing.T) {
	fake, server := newFakeOpenSearch(t)
	fake.failIndex = true
	logger := NewLogger(newTestClient(t, server.URL, true))

	err := logger.LogSystemEvent(context.Background(), map[string]any{"message": "x"})
	assert.Error(t, err)
}

func TestLogger_GetTransactionLogs(t *testing.T) {
	fake, server := newFakeOpenSearch(t)
	fake.searchRes = `{"hits":{"hits":[
		{"_source":{"tenant_id":"APP1","operation":"validate_transaction","txn_id":"T1","success":true}},
		{"_source":{"tenant_id":"APP1","operation":"generate_token","txn_id":"T1","success":true}}
	]}}`
	logger := NewLogger(newTestClient(t, server.URL, true))

	logs, err := logger.GetTransactionLogs(context.Background(), "APP1", "connectips", "T1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, provider.OperationValidateTransaction, logs[0].Operation)
	assert.True(t, logs[1].Success)

	require.Len(t, fake.searches, 1)
	assert.Equal(t, map[string]any{"txn_id": "T1"}, fake.searches[0]["query"].(map[string]any)["term"])
}

func TestLogger_GetProviderStats(t *testing.T) {
	fake, server := newFakeOpenSearch(t)
	fake.searchRes = `{"aggregations":{"success_count":{"doc_count":3}}}`
	logger := NewLogger(newTestClient(t, server.URL, true))

	stats, err := logger.GetProviderStats(context.Background(), "APP1", "connectips", 24)
	require.NoError(t, err)
	assert.Contains(t, stats, "aggregations")
}

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains string
		absent   string
	}{
		{"json_password", `{"password":"hunter2","app":"x"}`, `"password":"***REDACTED***"`, "hunter2"},
		{"json_token", `{"token": "c2lnbmF0dXJl"}`, `"token":"***REDACTED***"`, "c2lnbmF0dXJl"},
		{"message_token", `MERCHANTID=M1,TOKEN=abc123`, `TOKEN=***REDACTED***`, "abc123"},
		{"plain_text", `nothing secret here`, `nothing secret here`, "REDACTED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeForLog(tt.input)
			assert.Contains(t, result, tt.contains)
			assert.NotContains(t, result, tt.absent)
		})
	}
}

func TestLogger_LogSystemEvent(t *testing.T) {
	fake, server := newFakeOpenSearch(t)
	logger := NewLogger(newTestClient(t, server.URL, true))

	err := logger.LogSystemEvent(context.Background(), map[string]any{
		"timestamp": time.Now().UTC(),
		"message":   "started",
	})
	require.NoError(t, err)

	docs := fake.documents()
	require.Len(t, docs, 1)
	assert.Equal(t, "gocips-system-logs", docs[0].index)
}
