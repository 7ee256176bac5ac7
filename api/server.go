/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/calendar         Materialized schedule (read-only)
  /api/classes/*        Recurring class management
  /api/events/*         One-off events (exams, tournaments)
  /api/students/*       Roster and status
  /api/balances         Derived balances
  /api/ledger/*         Charges, payments, approvals
  /api/automation/*     Manual billing / late-fee runs
  /api/settings/*       Payment configuration
  /api/scenarios/*      Demo data

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-ID", "X-Actor-Role"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Calendar (derived, read-only)
		r.Get("/calendar", h.GetCalendar)

		// Class routes
		r.Route("/classes", func(r chi.Router) {
			r.Get("/", h.ListClasses)
			r.Post("/", h.CreateClass)
			r.Delete("/{id}", h.DeleteClass)
			r.Post("/{id}/exceptions", h.SetException)
			r.Post("/{id}/enroll", h.EnrollStudent)
			r.Post("/{id}/unenroll", h.UnenrollStudent)
		})

		// Event routes
		r.Route("/events", func(r chi.Router) {
			r.Post("/", h.CreateEvent)
			r.Delete("/{id}", h.DeleteEvent)
		})

		// Student routes
		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.Post("/", h.CreateStudent)
			r.Put("/{id}/status", h.SetStudentStatus)
			r.Get("/{id}/balance", h.GetBalance)
		})

		// Derived balances
		r.Get("/balances", h.ListBalances)

		// Ledger routes
		r.Route("/ledger", func(r chi.Router) {
			r.Get("/", h.ListLedger)
			r.Post("/charges", h.RecordCharge)
			r.Post("/payments", h.RecordPayment)
			r.Post("/{id}/approve", h.ApprovePayment)
			r.Post("/{id}/reject", h.RejectPayment)
		})

		// Manual automation triggers
		r.Route("/automation", func(r chi.Router) {
			r.Post("/billing", h.RunBilling)
			r.Post("/late-fees", h.RunLateFees)
		})

		// Settings routes
		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.GetSettings)
			r.Put("/trigger-days", h.UpdateTriggerDays)
			r.Put("/amounts", h.UpdateAmounts)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Academy Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Academy Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/calendar">/api/calendar</a> - Materialized schedule</li>
<li><a href="/api/students">/api/students</a> - Roster</li>
<li><a href="/api/balances">/api/balances</a> - Balances</li>
<li><a href="/api/ledger">/api/ledger</a> - Ledger</li>
</ul>
</body>
</html>`))
	})

	return r
}
