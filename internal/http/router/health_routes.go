package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/imsauth/internal/http/middlewares"
)

// registerHealthRoutes: /readyz y /metrics son públicos y no se cachean.
func registerHealthRoutes(r chi.Router, deps Deps) {
	if deps.Health != nil {
		r.Get("/readyz", deps.Health.Readyz)
	}
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", mw.Chain(deps.Metrics, mw.WithNoStore()))
	}
}
