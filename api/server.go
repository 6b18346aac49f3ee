/*
server.go - HTTP routers and middleware configuration

PURPOSE:
  Configures one chi router per service binary. The wiring layer that
  connects URLs to handlers; business rules live in the service packages.

MIDDLEWARE STACK:
  1. Logger:    Request logging
  2. Recoverer: Panic recovery (500 instead of crash)
  3. RequestID: Unique ID per request for tracing
  4. CORS:      Cross-origin requests for frontend
  5. Bearer:    HS256 JWT identity (per-route, /metrics stays open)

ROUTE GROUPS:
  energy:   /api/energy/*     wallet, history, purchase, lock, return, forfeit
  job:      /api/jobs/*       postings and applications
  schedule: /api/schedules/*  shifts, check-in, no-show

SEE ALSO:
  - handlers_energy.go, handlers_job.go, handlers_schedule.go
  - middleware.go: bearer verification
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sparelink/gig-engine/auth"
	"github.com/sparelink/gig-engine/metrics"
)

func baseRouter() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Method("GET", "/metrics", metrics.Handler())
	return r
}

// NewEnergyRouter creates the energy service router.
func NewEnergyRouter(h *EnergyHandler, verifier *auth.Verifier) *chi.Mux {
	r := baseRouter()

	r.Route("/api/energy", func(r chi.Router) {
		r.Use(RequireIdentity(verifier))
		r.Get("/wallet", h.GetWallet)
		r.Get("/transactions", h.ListTransactions)
		r.Post("/purchase", h.Purchase)
		r.Post("/lock", h.Lock)
		r.Post("/return", h.Return)
		r.Post("/forfeit", h.Forfeit)
	})
	return r
}

// NewJobRouter creates the job service router.
func NewJobRouter(h *JobHandler, verifier *auth.Verifier) *chi.Mux {
	r := baseRouter()

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireIdentity(verifier))

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", h.ListJobs)
			r.Post("/", h.CreateJob)
			r.Get("/{id}", h.GetJob)
			r.Post("/{id}/close", h.CloseJob)
			r.Post("/{id}/apply", h.Apply)
			r.Get("/{id}/applications", h.ListApplications)
		})

		r.Route("/applications", func(r chi.Router) {
			r.Get("/mine", h.MyApplications)
			r.Post("/{id}/approve", h.Approve)
			r.Post("/{id}/reject", h.Reject)
		})
	})
	return r
}

// NewScheduleRouter creates the schedule service router.
func NewScheduleRouter(h *ScheduleHandler, verifier *auth.Verifier) *chi.Mux {
	r := baseRouter()

	r.Route("/api/schedules", func(r chi.Router) {
		r.Use(RequireIdentity(verifier))
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/checkin", h.CheckIn)
		r.Post("/{id}/no-show", h.MarkNoShow)
	})
	return r
}
