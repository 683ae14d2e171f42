// Package router arma el árbol de rutas chi del servidor.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	imshttp "github.com/dropDatabas3/imsauth/internal/http"
	healthctrl "github.com/dropDatabas3/imsauth/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/imsauth/internal/http/controllers/oauth"
	usersctrl "github.com/dropDatabas3/imsauth/internal/http/controllers/users"
	httperrors "github.com/dropDatabas3/imsauth/internal/http/errors"
	mw "github.com/dropDatabas3/imsauth/internal/http/middlewares"
	"github.com/dropDatabas3/imsauth/internal/rate"
)

// Deps contiene todas las dependencias del router.
type Deps struct {
	Users  *usersctrl.UsersController
	OAuth  *oauthctrl.Controllers
	Health *healthctrl.HealthController

	// Metrics es el handler de /metrics; nil no expone la ruta.
	Metrics http.Handler

	CORSAllowedOrigins []string

	// Verifier no nil activa la protección de /users/* (bearer + authority ADMIN).
	Verifier mw.TokenVerifier

	// RateLimiter opcional para /oauth/authorize y /oauth/token.
	RateLimiter rate.Limiter
}

// New devuelve el handler raíz con la cadena global de middlewares.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	// orden: el primero envuelve a todos
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
		imshttp.WithMetrics,
		mw.WithCORS(deps.CORSAllowedOrigins),
		mw.WithSecurityHeaders(),
	)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	registerHealthRoutes(r, deps)
	registerUsersRoutes(r, deps)
	registerOAuthRoutes(r, deps)

	return r
}
