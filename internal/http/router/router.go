package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gulfsetup/crm-api/internal/config"
	"github.com/gulfsetup/crm-api/internal/database"
	"github.com/gulfsetup/crm-api/internal/http/handler"
	"github.com/gulfsetup/crm-api/internal/http/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Router struct {
	cfg                 *config.Config
	logger              *zap.Logger
	db                  *gorm.DB
	rateLimiter         *middleware.RateLimiter
	leadHandler         *handler.LeadHandler
	publicHandler       *handler.PublicHandler
	notificationHandler *handler.NotificationHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	rateLimiter *middleware.RateLimiter,
	leadHandler *handler.LeadHandler,
	publicHandler *handler.PublicHandler,
	notificationHandler *handler.NotificationHandler,
) *Router {
	return &Router{
		cfg:                 cfg,
		logger:              logger,
		db:                  db,
		rateLimiter:         rateLimiter,
		leadHandler:         leadHandler,
		publicHandler:       publicHandler,
		notificationHandler: notificationHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Database health check (readiness probe with pool stats)
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(rt.db)
		if err != nil {
			rt.logger.Error("database health check failed", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"service": "database",
			"stats": map[string]interface{}{
				"max_open_connections": stats.MaxOpenConnections,
				"open_connections":     stats.OpenConnections,
				"in_use":               stats.InUse,
				"idle":                 stats.Idle,
				"wait_count":           stats.WaitCount,
				"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
			},
		})
	})

	// Customer-facing token links. Rate limited by IP; these are the
	// only unauthenticated mutating endpoints.
	r.Route("/public", func(r chi.Router) {
		r.Use(rt.rateLimiter.LimitByIP)

		r.Get("/quote", rt.publicHandler.ViewQuote)
		r.Post("/quote/decision", rt.publicHandler.Decide)
		r.Get("/invoice", rt.publicHandler.ViewInvoice)
	})

	// Operator API. Authentication is handled upstream by the identity
	// proxy; this service only sees trusted traffic on these routes.
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/leads", func(r chi.Router) {
			r.Get("/", rt.leadHandler.List)
			r.Post("/", rt.leadHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.leadHandler.Get)
				r.Patch("/", rt.leadHandler.Update)
				r.Delete("/", rt.leadHandler.Delete)
				r.Get("/sla", rt.leadHandler.GetSLA)
				r.Get("/activities", rt.leadHandler.ListActivities)
				r.Get("/invoices", rt.leadHandler.ListInvoices)

				r.Route("/tracks/{track}", func(r chi.Router) {
					r.Post("/contacted", rt.leadHandler.MarkAgentContacted)
					r.Post("/feasibility", rt.leadHandler.SetFeasibility)
					r.Put("/quote-amount", rt.leadHandler.SetQuoteAmount)
					r.Post("/send-quote", rt.leadHandler.SendQuote)
					r.Post("/decision", rt.leadHandler.RecordDecision)
					r.Post("/send-invoice", rt.leadHandler.SendInvoice)
					r.Post("/payment-received", rt.leadHandler.MarkPaymentReceived)
					r.Post("/complete", rt.leadHandler.MarkCompleted)
					r.Post("/reopen", rt.leadHandler.Reopen)
				})
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", rt.notificationHandler.List)
			r.Post("/{id}/read", rt.notificationHandler.MarkRead)
		})
	})

	return r
}
