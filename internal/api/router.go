package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Sahil21666x/KE-PersonasAI/internal/agents"
	"github.com/Sahil21666x/KE-PersonasAI/internal/api/middleware"
	"github.com/Sahil21666x/KE-PersonasAI/internal/engine"
	"github.com/Sahil21666x/KE-PersonasAI/internal/handlers"
	"github.com/Sahil21666x/KE-PersonasAI/internal/store"
)

// Deps are the services the router wires into handlers and middleware.
type Deps struct {
	Store        store.DataStore
	Redis        *store.RedisStore // optional; enables rate limiting
	Registry     *agents.Registry
	Orchestrator *engine.Orchestrator
	Verifier     middleware.TokenVerifier
	CORSOrigins  []string
	RateLimit    middleware.RateLimiterConfig
}

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, deps Deps) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(64 * 1024))
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(deps.Store, deps.Redis, deps.Registry, deps.Orchestrator, logger)
	auth := middleware.NewAuthMiddleware(deps.Verifier, logger)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes (no auth required)
	r.Get("/health", h.Health)
	r.Get("/api", h.Root)

	// Authenticated routes (require bearer token)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		if deps.Redis != nil {
			limiter := middleware.NewRateLimiter(deps.Redis.Client(), logger, deps.RateLimit)
			r.Use(limiter.Middleware)
		}

		r.Post("/api/conversations", h.SendMessage)
		r.Post("/api/conversations/stream", h.StreamMessage)
		r.Get("/api/conversations/history", h.History)
		r.Get("/api/conversations/{id}/messages", h.Messages)
		r.Delete("/api/conversations/{id}", h.DeleteConversation)
		r.Post("/api/conversations/{id}/read", h.MarkRead)
		r.Patch("/api/conversations/{id}/title", h.UpdateTitle)

		r.Get("/api/agents", h.ListAgents)
		r.Get("/api/agents/custom", h.ListCustomAgents)
		r.Post("/api/agents/custom", h.CreateCustomAgent)
		r.Delete("/api/agents/custom/{id}", h.DeleteCustomAgent)

		r.Get("/api/stats", h.Stats)
	})

	return r
}
