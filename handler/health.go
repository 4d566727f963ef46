package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"syscall"
	"time"

	"github.com/mstgnz/gocips/infra/response"
)

// StatsSource reports storage statistics; a failing call marks storage unhealthy
type StatsSource interface {
	GetStats(ctx context.Context) (map[string]any, error)
}

// Pinger is implemented by optional backing services such as OpenSearch
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	storage     StatsSource
	auditLog    Pinger
	certDir     string
	environment string
	startTime   time.Time
}

// HealthStatus represents overall system health
type HealthStatus struct {
	Status      string                    `json:"status"`
	Version     string                    `json:"version"`
	Timestamp   time.Time                 `json:"timestamp"`
	Uptime      string                    `json:"uptime"`
	Environment string                    `json:"environment"`
	Storage     *StorageHealth            `json:"storage"`
	System      *SystemHealth             `json:"system"`
	Services    map[string]*ServiceHealth `json:"services"`
}

// StorageHealth represents credential storage health
type StorageHealth struct {
	Status       string         `json:"status"`
	ResponseTime string         `json:"response_time"`
	Stats        map[string]any `json:"stats,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// SystemHealth represents system resource health
type SystemHealth struct {
	Memory     *MemoryHealth `json:"memory"`
	Disk       *DiskHealth   `json:"disk"`
	GoRoutines int           `json:"goroutines"`
}

// MemoryHealth represents memory usage
type MemoryHealth struct {
	Alloc        string  `json:"alloc"`
	Sys          string  `json:"sys"`
	GCRuns       uint32  `json:"gc_runs"`
	UsagePercent float64 `json:"usage_percent"`
}

// DiskHealth represents usage of the volume holding the certificates
type DiskHealth struct {
	Path         string  `json:"path"`
	Available    string  `json:"available"`
	Used         string  `json:"used"`
	Total        string  `json:"total"`
	UsagePercent float64 `json:"usage_percent"`
	Status       string  `json:"status"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status      string `json:"status"`
	Healthy     bool   `json:"healthy"`
	LastCheck   string `json:"last_check"`
	Description string `json:"description,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewHealthHandler creates a new health handler; auditLog may be nil
func NewHealthHandler(storage StatsSource, auditLog Pinger, certDir, environment string) *HealthHandler {
	return &HealthHandler{
		storage:     storage,
		auditLog:    auditLog,
		certDir:     certDir,
		environment: environment,
		startTime:   time.Now(),
	}
}

// CheckHealth handles GET /health
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := &HealthStatus{
		Version:     "1.0.0",
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Environment: h.environment,
		Storage:     h.checkStorageHealth(ctx),
		System:      h.checkSystemHealth(),
		Services:    h.checkServicesHealth(ctx),
	}
	health.Status = determineOverallStatus(health)

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	response.WriteJSON(w, statusCode, response.Response{
		Code:    statusCode,
		Success: health.Status != "unhealthy",
		Message: fmt.Sprintf("Service is %s", health.Status),
		Data:    health,
	})
}

func (h *HealthHandler) checkStorageHealth(ctx context.Context) *StorageHealth {
	if h.storage == nil {
		return &StorageHealth{Status: "not_configured"}
	}

	start := time.Now()
	stats, err := h.storage.GetStats(ctx)
	elapsed := time.Since(start)

	health := &StorageHealth{ResponseTime: fmt.Sprintf("%dms", elapsed.Milliseconds())}
	switch {
	case err != nil:
		health.Status = "unhealthy"
		health.Error = err.Error()
	case elapsed > time.Second:
		health.Status = "degraded"
		health.Stats = stats
	default:
		health.Status = "healthy"
		health.Stats = stats
	}
	return health
}

func (h *HealthHandler) checkSystemHealth() *SystemHealth {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &SystemHealth{
		Memory: &MemoryHealth{
			Alloc:        formatBytes(memStats.Alloc),
			Sys:          formatBytes(memStats.Sys),
			GCRuns:       memStats.NumGC,
			UsagePercent: float64(memStats.Alloc) / float64(memStats.Sys) * 100,
		},
		Disk:       diskUsage(h.certDir),
		GoRoutines: runtime.NumGoroutine(),
	}
}

func (h *HealthHandler) checkServicesHealth(ctx context.Context) map[string]*ServiceHealth {
	now := time.Now().UTC().Format(time.RFC3339)

	audit := &ServiceHealth{LastCheck: now, Description: "Gateway audit log in OpenSearch"}
	switch {
	case h.auditLog == nil:
		audit.Status = "not_configured"
	default:
		if err := h.auditLog.Ping(ctx); err != nil {
			audit.Status = "unhealthy"
			audit.Error = err.Error()
		} else {
			audit.Status = "healthy"
			audit.Healthy = true
		}
	}

	return map[string]*ServiceHealth{"audit_log": audit}
}

// determineOverallStatus fails on storage only; the audit log and resources can only degrade
func determineOverallStatus(health *HealthStatus) string {
	if health.Storage != nil && health.Storage.Status == "unhealthy" {
		return "unhealthy"
	}
	if health.Storage != nil && health.Storage.Status == "degraded" {
		return "degraded"
	}
	if audit, ok := health.Services["audit_log"]; ok && audit.Status == "unhealthy" {
		return "degraded"
	}
	if health.System != nil && health.System.Disk != nil && health.System.Disk.UsagePercent > 90 {
		return "degraded"
	}
	return "healthy"
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func diskUsage(path string) *DiskHealth {
	if path == "" {
		path = "/"
	}
	disk := &DiskHealth{Path: path, Status: "unknown"}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		disk.Status = "error"
		return disk
	}

	available := stat.Bavail * uint64(stat.Bsize)
	total := stat.Blocks * uint64(stat.Bsize)
	used := total - stat.Bfree*uint64(stat.Bsize)

	disk.Available = formatBytes(available)
	disk.Total = formatBytes(total)
	disk.Used = formatBytes(used)
	if total > 0 {
		disk.UsagePercent = float64(used) / float64(total) * 100
	}

	switch {
	case disk.UsagePercent > 90:
		disk.Status = "critical"
	case disk.UsagePercent > 80:
		disk.Status = "warning"
	default:
		disk.Status = "healthy"
	}
	return disk
}
