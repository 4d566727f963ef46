package middle

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mstgnz/gocips/infra/logger"
)

// RequestLoggingMiddleware writes one system log line per request. Query
// strings are not logged because callbacks carry transaction identifiers.
func RequestLoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			logCtx := logger.LogContext{
				TenantID:  GetTenantIDFromContext(r.Context()),
				RequestID: middleware.GetReqID(r.Context()),
				Fields: map[string]any{
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      status,
					"bytes":       ww.BytesWritten(),
					"duration_ms": time.Since(start).Milliseconds(),
					"client_ip":   GetClientIP(r),
				},
			}

			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("Request failed", nil, logCtx)
			case status >= http.StatusBadRequest:
				logger.Warn("Request rejected", logCtx)
			default:
				logger.Debug("Request served", logCtx)
			}
		})
	}
}
