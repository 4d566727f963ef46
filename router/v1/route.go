package v1

import (
	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/gocips/handler"
	"github.com/mstgnz/gocips/infra/auth"
	"github.com/mstgnz/gocips/infra/middle"
)

// Handlers groups the HTTP handlers mounted under /v1. Logs may be nil when the
// audit log is disabled.
type Handlers struct {
	Payment   *handler.PaymentHandler
	Config    *handler.ConfigHandler
	Auth      *handler.AuthHandler
	Logs      *handler.LogsHandler
	RateLimit *handler.TenantRateLimitHandler
}

// Options carries the settings the route table needs
type Options struct {
	APIKey        string
	DefaultTenant string
	JWT           *auth.JWTService
	TenantLimiter *middle.TenantRateLimiter
}

// Routes registers all API routes
func Routes(r chi.Router, h Handlers, opts Options) {
	// Payer facing routes: the tenant comes from a token, the tenant header, the URL or the default
	r.Group(func(r chi.Router) {
		r.Use(middle.TenantMiddleware(opts.JWT, opts.DefaultTenant))
		r.Use(middle.TenantRateLimitMiddleware(opts.TenantLimiter))

		r.Post("/cips-payment/generate-token", h.Payment.GenerateToken)
		r.Get("/cips-payment/success", h.Payment.Success)
		r.Get("/cips-payment/failure", h.Payment.Failure)
		r.Get("/cips-payment/{tenant}/success", h.Payment.Success)
		r.Get("/cips-payment/{tenant}/failure", h.Payment.Failure)
		r.Get("/cips-payment/rate-limit", h.RateLimit.GetTenantStats)
	})

	// Token refresh and inspection only need a valid token
	r.Group(func(r chi.Router) {
		r.Use(middle.TenantRateLimitMiddleware(opts.TenantLimiter))

		r.Post("/auth/refresh", h.Auth.RefreshToken)
		r.Get("/auth/validate", h.Auth.ValidateToken)
	})

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(middle.AuthMiddleware(opts.APIKey))
		// the bearer here is the API key, so no token parsing
		r.Use(middle.TenantMiddleware(nil, opts.DefaultTenant))

		r.Post("/auth/token", h.Auth.IssueToken)
		r.Post("/cips-payment/upload", h.Config.UploadCertificate)
		r.Get("/stats", h.Config.GetStats)

		r.Route("/cips", func(r chi.Router) {
			r.Get("/", h.Config.ListConfigs)
			r.Post("/", h.Config.CreateConfig)
			r.Get("/{tenant}", h.Config.GetConfig)
			r.Put("/{tenant}", h.Config.UpdateConfig)
			r.Patch("/{tenant}", h.Config.PatchConfig)
			r.Delete("/{tenant}", h.Config.DeleteConfig)
			r.Post("/{tenant}/certificate", h.Config.UploadCertificate)
		})

		if h.Logs != nil {
			r.Route("/logs/{tenant}", func(r chi.Router) {
				r.Get("/", h.Logs.ListLogs)
				r.Get("/transactions/{txnID}", h.Logs.GetTransactionLogs)
				r.Get("/errors", h.Logs.GetErrorLogs)
				r.Get("/stats", h.Logs.GetLogStats)
			})
		}
	})
}
