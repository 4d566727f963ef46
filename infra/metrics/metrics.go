package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// GatewayOperationsTotal counts gateway operations by outcome; result is "ok" or an error kind
	GatewayOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gocips",
			Name:      "gateway_operations_total",
			Help:      "Gateway operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	GatewayOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gocips",
			Name:      "gateway_operation_duration_seconds",
			Help:      "Duration of gateway operations including certificate loading",
			Buckets: []float64{
				0.005, 0.01, 0.025, 0.05, 0.1, 0.25,
				0.5, 1, 2, 5, 10, 30,
			},
		},
		[]string{"operation"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gocips",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status",
		},
		[]string{"route", "method", "status"},
	)
)

func init() {
	prometheus.MustRegister(GatewayOperationsTotal, GatewayOperationDuration, HTTPRequestsTotal)
}

// ObserveOperation records one gateway operation
func ObserveOperation(operation, result string, elapsed time.Duration) {
	GatewayOperationsTotal.WithLabelValues(operation, result).Inc()
	GatewayOperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware counts requests by chi route pattern so path parameters do not explode cardinality
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
	})
}
