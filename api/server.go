/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:    Unique ID per request for tracing
  2. RealIP:       Client IP for rate limiting
  3. Logger:       zap request logging + latency histogram
  4. Recoverer:    Panic recovery (500 instead of crash)
  5. CORS:         Cross-origin requests for the planner UI
  6. Rate limit:   Token bucket per client IP (API routes only)

ROUTE GROUPS:
  /api/schedules/*      Schedules, directory, assignments, gaps, stats
  /api/people, /api/teams, /api/projects
                        Roster and catalog upserts
  /api/calendar/*       Holidays and annotated quarter weeks
  /api/limits/*         Tenure and cycle limit tables
  /api/progress         Tenure/cycle progress for every person
  /api/scenarios/*      Demo scenarios
  /api/admin/*          Coverage monitor trigger
  /health               Liveness + store ping
  /debug/prometheus     Metrics

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Logging and rate limiting
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig carries the HTTP-layer settings.
type RouterConfig struct {
	AllowedOrigins     []string
	RateLimitPerMinute int
	RateLimitBurst     int
}

// DefaultRouterConfig matches the config package defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		AllowedOrigins:     []string{"http://localhost:5173", "http://localhost:8080"},
		RateLimitPerMinute: 600,
		RateLimitBurst:     100,
	}
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log, h.metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)
	r.Method("GET", MetricsPath, h.metrics.Handler())

	limiter := newRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, h.log, h.metrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.Handler)

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", h.ListSchedules)
			r.Post("/", h.CreateSchedule)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSchedule)
				r.Delete("/", h.DeleteSchedule)
				r.Get("/directory", h.GetDirectory)
				r.Put("/assignments", h.SetAssignment)
				r.Post("/assignments/bulk", h.BulkSetAssignments)
				r.Get("/weeks", h.ListScheduleWeeks)
				r.Get("/gaps", h.GetCoverageGaps)
				r.Get("/stats", h.GetStats)
				r.Get("/reports", h.ListReports)
				r.Get("/outlook", h.GetOutlook)
			})
		})

		r.Route("/people", func(r chi.Router) {
			r.Get("/", h.ListPeople)
			r.Put("/{id}", h.SavePerson)
		})
		r.Put("/teams/{id}", h.SaveTeam)
		r.Put("/projects/{id}", h.SaveProject)

		r.Route("/calendar", func(r chi.Router) {
			r.Get("/holidays", h.ListHolidays)
			r.Get("/weeks", h.ListQuarterWeeks)
		})

		r.Route("/limits/{kind}", func(r chi.Router) {
			r.Get("/", h.GetLimits)
			r.Put("/", h.SetLimit)
		})
		r.Get("/progress", h.GetProgress)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})

		r.Post("/admin/coverage-check", h.RunCoverageCheck)
	})

	return r
}
