package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/mstgnz/gocips/handler"
	"github.com/mstgnz/gocips/infra/auth"
	"github.com/mstgnz/gocips/infra/config"
	"github.com/mstgnz/gocips/infra/logger"
	"github.com/mstgnz/gocips/infra/metrics"
	"github.com/mstgnz/gocips/infra/middle"
	"github.com/mstgnz/gocips/infra/opensearch"
	"github.com/mstgnz/gocips/infra/response"
	"github.com/mstgnz/gocips/infra/storage"
	"github.com/mstgnz/gocips/provider"
	"github.com/mstgnz/gocips/provider/connectips"
	v1 "github.com/mstgnz/gocips/router/v1"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	appConfig        *config.AppConfig
	openSearchClient *opensearch.Client
	openSearchLogger *opensearch.Logger
)

func init() {
	// Load Env
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file loaded (%v), using the process environment", err)
	}
	// init conf
	_ = config.App()
	appConfig = config.GetAppConfig()

	if appConfig.EnableLogging {
		client, err := opensearch.NewClient(appConfig)
		if err != nil {
			log.Printf("Failed to initialize OpenSearch client: %v", err)
			log.Println("Continuing without OpenSearch logging...")
		} else {
			openSearchClient = client
			openSearchLogger = opensearch.NewLogger(client)
			log.Println("OpenSearch logging initialized successfully")
		}
	} else {
		log.Println("OpenSearch logging is disabled")
	}

	if openSearchLogger != nil {
		logger.InitGlobalLogger(openSearchLogger)
	} else {
		logger.InitGlobalLogger(nil)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if appConfig.APIKey == "" {
		logger.Warn("API_KEY is not set; admin routes will refuse every request")
	}

	// Credential store
	configStorage, err := storage.Open(ctx, appConfig)
	if err != nil {
		logger.Fatal("Failed to open configuration storage", err)
	}
	certificates, err := storage.NewCertificateStore(appConfig.CertDir)
	if err != nil {
		logger.Fatal("Failed to prepare certificate directory", err)
	}
	store := storage.NewGatewayStore(configStorage, certificates, appConfig.ConfigCacheTTL)
	defer store.Close()

	// Gateway
	engine := connectips.NewEngine(store,
		connectips.WithTimeout(appConfig.ValidationTimeout),
		connectips.WithRejectionMarker(appConfig.RejectionMarker),
	)
	var audit provider.AuditLogger
	if openSearchLogger != nil {
		audit = openSearchLogger
	}
	paymentService := provider.NewPaymentService(connectips.Name, store, engine, audit)

	// Handlers
	validate := config.App().Validator
	jwtService := auth.NewJWTService(appConfig.JWTSecret, appConfig.JWTExpiry)
	tenantLimiter := middle.NewTenantRateLimiter(ctx, middle.LoadTenantRateLimitConfig())

	handlers := v1.Handlers{
		Payment:   handler.NewPaymentHandler(paymentService, validate),
		Config:    handler.NewConfigHandler(store, validate),
		Auth:      handler.NewAuthHandler(store, jwtService, validate),
		RateLimit: handler.NewTenantRateLimitHandler(tenantLimiter),
	}

	// a nil *opensearch.Client must not reach the health handler as a non-nil interface
	var auditPinger handler.Pinger
	if openSearchLogger != nil {
		handlers.Logs = handler.NewLogsHandler(openSearchLogger)
		auditPinger = openSearchClient
	}
	healthHandler := handler.NewHealthHandler(store, auditPinger, appConfig.CertDir, appConfig.Environment)

	// Chi Define Routes
	r := chi.NewRouter()

	// Basic Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middle.PanicRecoveryMiddleware())
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middle.RequestLoggingMiddleware())
	if appConfig.EnableMetrics {
		r.Use(metrics.Middleware)
	}

	// Security Middleware
	rateLimiter := middle.NewRateLimiter(ctx, appConfig.RateLimitPerMin)
	r.Use(middle.SecurityHeadersMiddleware())
	r.Use(middle.IPWhitelistMiddleware(appConfig.IPWhitelist))
	r.Use(middle.RateLimitMiddleware(rateLimiter))
	r.Use(middle.RequestValidationMiddleware())

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Origin", "X-Requested-With", middle.TenantHeader, middle.LegacyTenantHeader},
		ExposedHeaders:   []string{"Link", "Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300, // Preflight cache time (second)
	}))

	r.Get("/health", healthHandler.CheckHealth)
	if appConfig.EnableMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		v1.Routes(r, handlers, v1.Options{
			APIKey:        appConfig.APIKey,
			DefaultTenant: appConfig.DefaultTenant,
			JWT:           jwtService,
			TenantLimiter: tenantLimiter,
		})
	})

	// Not Found
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "Not Found", nil)
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", appConfig.Port),
		Handler:           r,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server stopped", err)
		}
	}()

	logger.Info("API is running on "+appConfig.Port, logger.LogContext{
		Provider: connectips.Name,
		Fields: map[string]any{
			"storage_driver": appConfig.StorageDriver,
			"environment":    appConfig.Environment,
			"audit_log":      openSearchLogger != nil,
		},
	})

	// Block until a signal is received
	<-ctx.Done()

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", err)
	}
}
