package routes

import (
	"net/http"

	"github.com/davortega/attar/internal/handler/api"
)

// APIDeps contains dependencies for the JSON API routes
type APIDeps struct {
	CartHandler    *api.CartHandler
	CatalogHandler *api.CatalogHandler
	MetricsHandler http.Handler
}
