package routes

import (
	"net/http"

	"github.com/davortega/attar/internal/router"
)

// RegisterAPIRoutes registers the cart and catalog JSON API routes.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	// Catalog
	r.Get("/api/products", deps.CatalogHandler.List)
	r.Get("/api/products/{slug}", deps.CatalogHandler.Get)

	// Cart
	r.Get("/api/cart", deps.CartHandler.Get)
	r.Post("/api/cart/items", deps.CartHandler.AddItem)
	r.Patch("/api/cart/items/{id}", deps.CartHandler.UpdateItem)
	r.Delete("/api/cart/items/{id}", deps.CartHandler.RemoveItem)
	r.Delete("/api/cart", deps.CartHandler.Clear)
	r.Post("/api/cart/merge", deps.CartHandler.Merge)

	// Operational
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle(http.MethodGet, "/metrics", deps.MetricsHandler)
}
