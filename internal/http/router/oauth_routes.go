package router

import (
	"github.com/go-chi/chi/v5"

	imshttp "github.com/dropDatabas3/imsauth/internal/http"
	mw "github.com/dropDatabas3/imsauth/internal/http/middlewares"
)

func registerOAuthRoutes(r chi.Router, deps Deps) {
	c := deps.OAuth
	if c == nil {
		return
	}

	limited := mw.WithRateLimit(mw.RateLimitConfig{
		Limiter:  deps.RateLimiter,
		KeyFunc:  mw.IPPathRateKey,
		OnReject: imshttp.RecordRateLimitReject,
	})

	r.Route("/oauth", func(r chi.Router) {
		r.Use(mw.WithNoStore())

		r.Group(func(r chi.Router) {
			r.Use(limited)
			r.Get("/authorize", c.Authorize.Authorize)
			r.Post("/authorize", c.Authorize.Authorize)
			r.Post("/token", c.Token.Token)
		})

		r.Post("/check_token", c.CheckToken.CheckToken)
		r.Get("/token_key", c.TokenKey.TokenKey)
	})
}
