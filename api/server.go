/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions. This
  is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request
  4. CORS:       Cross-origin requests for a dashboard frontend

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured.
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
		// Cash routes
		r.Route("/cash", func(r chi.Router) {
			r.Get("/balance", h.GetBalance)
			r.Post("/insert", h.InsertCash)
			r.Post("/refund", h.RefundAll)
		})

		// Inventory routes
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/{code}", h.GetProduct)
			r.Put("/{code}", h.UpdateProduct)
			r.Delete("/{code}", h.DeleteProduct)
			r.Put("/{code}/stock", h.SetStock)
			r.Post("/{code}/stock/add", h.AddStock)
			r.Post("/{code}/stock/remove", h.RemoveStock)
		})

		// Order routes
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.PlaceOrder)
			r.Get("/recent", h.RecentOrders)
		})

		// Reporting routes
		r.Route("/reporting", func(r chi.Router) {
			r.Get("/dashboard", h.Dashboard)
		})
	})

	return r
}
