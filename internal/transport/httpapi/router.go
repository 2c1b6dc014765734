package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ledgerlink/ledgerlink/internal/transport/httpapi/handler"
	"github.com/ledgerlink/ledgerlink/internal/transport/httpapi/middleware"
	"github.com/ledgerlink/ledgerlink/pkg/logger"
)

// Config holds router configuration
type Config struct {
	Logger             *logger.Logger
	AllowedOrigins     []string
	RateLimitRPS       float64
	RateLimitBurst     int
	ReadyHandler       *handler.ReadyHandler
	LedgerHandler      *handler.LedgerHandler
	AccountHandler     *handler.AccountHandler
	TransactionHandler *handler.TransactionHandler
	EntryHandler       *handler.EntryHandler
	APIKeyHandler      *handler.APIKeyHandler
	AuthMiddleware     func(http.Handler) http.Handler
}

// NewRouter creates the HTTP router. The probe endpoints and /metrics sit
// outside authentication and rate limiting; everything under /v1 requires an
// API key and the admin subtree additionally requires the ADMIN role.
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))

	// Probes and metrics (no authentication)
	r.Get("/health", handler.Health)
	if cfg.ReadyHandler != nil {
		r.Get("/ready", cfg.ReadyHandler.Ready)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Versioned API
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		r.Use(cfg.AuthMiddleware)

		r.Post("/ledgers", cfg.LedgerHandler.Create)
		r.Get("/ledgers", cfg.LedgerHandler.List)
		r.Get("/ledgers/{id}", cfg.LedgerHandler.Get)
		r.Get("/ledgers/{ledger_id}/trial-balance", cfg.LedgerHandler.TrialBalance)

		r.Post("/accounts", cfg.AccountHandler.Create)
		r.Get("/accounts", cfg.AccountHandler.List)

		r.Post("/transactions", cfg.TransactionHandler.Post)
		r.Get("/transactions", cfg.TransactionHandler.List)

		r.Get("/entries", cfg.EntryHandler.List)

		// Admin subtree
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Post("/api-keys", cfg.APIKeyHandler.Create)
			r.Get("/api-keys", cfg.APIKeyHandler.List)
			r.Post("/api-keys/{id}/revoke", cfg.APIKeyHandler.Revoke)
		})
	})

	return r
}
