package router

import (
	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/imsauth/internal/http/middlewares"
)

// AdminAuthority es la authority exigida en /users/* cuando la protección está activa.
const AdminAuthority = "ADMIN"

func registerUsersRoutes(r chi.Router, deps Deps) {
	c := deps.Users
	if c == nil {
		return
	}

	r.Route("/users", func(r chi.Router) {
		if deps.Verifier != nil {
			r.Use(mw.RequireBearer(deps.Verifier), mw.RequireAuthority(AdminAuthority))
		}

		r.Post("/add", c.Add)
		r.Get("/all", c.All)
		r.Get("/roles", c.Roles)
		r.Post("/password-reset/{id}", c.ResetPassword)
		r.Post("/update-details/{id}", c.UpdateDetails)
		r.Post("/password-change/{username}", c.ChangePassword)
	})
}
