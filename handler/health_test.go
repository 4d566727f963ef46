package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStats struct {
	stats map[string]any
	err   error
}

func (s stubStats) GetStats(context.Context) (map[string]any, error) {
	return s.stats, s.err
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

func checkHealth(t *testing.T, h *HealthHandler) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	h.CheckHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	data, ok := decodeResponse(t, w).Data.(map[string]any)
	require.True(t, ok)
	return w, data
}

func TestHealthHandler_CheckHealth(t *testing.T) {
	h := NewHealthHandler(stubStats{stats: map[string]any{"total_configs": 2}}, stubPinger{}, t.TempDir(), "test")

	w, data := checkHealth(t, h)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, []string{"healthy", "degraded"}, data["status"])
	assert.Equal(t, "test", data["environment"])

	storage := data["storage"].(map[string]any)
	assert.Equal(t, "healthy", storage["status"])
	assert.EqualValues(t, 2, storage["stats"].(map[string]any)["total_configs"])

	audit := data["services"].(map[string]any)["audit_log"].(map[string]any)
	assert.Equal(t, "healthy", audit["status"])

	system := data["system"].(map[string]any)
	assert.NotNil(t, system["memory"])
	assert.NotEqual(t, "error", system["disk"].(map[string]any)["status"])
}

func TestHealthHandler_StorageFailure(t *testing.T) {
	h := NewHealthHandler(stubStats{err: errors.New("database is locked")}, nil, t.TempDir(), "test")

	w, data := checkHealth(t, h)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", data["status"])
	storage := data["storage"].(map[string]any)
	assert.Equal(t, "database is locked", storage["error"])

	audit := data["services"].(map[string]any)["audit_log"].(map[string]any)
	assert.Equal(t, "not_configured", audit["status"])
}

func TestHealthHandler_AuditLogDown(t *testing.T) {
	h := NewHealthHandler(stubStats{stats: map[string]any{}}, stubPinger{err: errors.New("connection refused")}, t.TempDir(), "test")

	w, data := checkHealth(t, h)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "degraded", data["status"])
}

func TestDetermineOverallStatus(t *testing.T) {
	tests := []struct {
		name   string
		health *HealthStatus
		want   string
	}{
		{
			name:   "all healthy",
			health: &HealthStatus{Storage: &StorageHealth{Status: "healthy"}},
			want:   "healthy",
		},
		{
			name:   "slow storage",
			health: &HealthStatus{Storage: &StorageHealth{Status: "degraded"}},
			want:   "degraded",
		},
		{
			name:   "storage down",
			health: &HealthStatus{Storage: &StorageHealth{Status: "unhealthy"}},
			want:   "unhealthy",
		},
		{
			name: "disk nearly full",
			health: &HealthStatus{
				Storage: &StorageHealth{Status: "healthy"},
				System:  &SystemHealth{Disk: &DiskHealth{UsagePercent: 95}},
			},
			want: "degraded",
		},
		{
			name: "audit log down",
			health: &HealthStatus{
				Storage:  &StorageHealth{Status: "healthy"},
				Services: map[string]*ServiceHealth{"audit_log": {Status: "unhealthy"}},
			},
			want: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, determineOverallStatus(tt.health))
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    uint64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatBytes(tt.bytes))
		})
	}
}

func TestDiskUsage_MissingPath(t *testing.T) {
	disk := diskUsage("/definitely/not/here")
	assert.Equal(t, "error", disk.Status)
}
