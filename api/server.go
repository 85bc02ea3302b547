/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/users, /api/tasks, /api/commission-plans, /api/kyc, /api/sales,
  /api/commissions, /api/referrals   Collection CRUD
  /api/users/{id}/wallet|network     Derived views
  /api/admin/*                       Adjustments, reconciliation
  /api/scenarios/*                   Demo data loading

SECURITY NOTE:
  The auth layer is an external collaborator: identity arrives resolved
  and this server trusts it verbatim. No auth middleware here.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pentagame/commission-engine/engine"
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
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// User routes: CRUD plus derived wallet/network views
		r.Route("/users", func(r chi.Router) {
			r.Get("/", listHandler(h.DB.Users))
			r.Post("/", createHandler(h.DB.Users))
			r.Get("/{id}", getHandler(h.DB.Users))
			r.Put("/{id}", updateHandler(h.DB.Users))
			r.Delete("/{id}", deleteHandler(h.DB.Users))
			r.Get("/{id}/wallet", h.GetWallet)
			r.Get("/{id}/network", h.GetNetwork)
		})

		// Sale routes: creation triggers commission generation
		r.Route("/sales", func(r chi.Router) {
			r.Get("/", listHandler(h.DB.Sales))
			r.Post("/", h.CreateSale)
			r.Get("/{id}", getHandler(h.DB.Sales))
			r.Put("/{id}", updateHandler(h.DB.Sales))
			r.Delete("/{id}", deleteHandler(h.DB.Sales))
		})

		mountCollection(r, "/tasks", h.DB.Tasks)
		mountCollection(r, "/commission-plans", h.DB.Plans)
		mountCollection(r, "/kyc", h.DB.KYC)
		mountCollection(r, "/commissions", h.DB.Commissions)
		mountCollection(r, "/referrals", h.DB.Referrals)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/adjustments", h.CreateAdjustment)
			r.Post("/reconcile", h.Reconcile)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

// mountCollection wires the generic CRUD contract for one collection.
func mountCollection[T any](r chi.Router, pattern string, col *engine.Collection[T]) {
	r.Route(pattern, func(r chi.Router) {
		r.Get("/", listHandler(col))
		r.Post("/", createHandler(col))
		r.Get("/{id}", getHandler(col))
		r.Put("/{id}", updateHandler(col))
		r.Delete("/{id}", deleteHandler(col))
	})
}
