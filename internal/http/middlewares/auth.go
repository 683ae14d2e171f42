package middlewares

import (
	"errors"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/imsauth/internal/http/errors"
	jwtx "github.com/dropDatabas3/imsauth/internal/jwt"
)

// TokenVerifier valida un access token. *jwt.Issuer lo implementa.
type TokenVerifier interface {
	VerifyAccess(raw string) (*jwtx.Claims, error)
}

// RequireBearer valida Authorization: Bearer <JWT> (solo access tokens) y guarda las claims en el contexto.
func RequireBearer(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := strings.TrimSpace(r.Header.Get("Authorization"))
			if len(ah) < 7 || !strings.EqualFold(ah[:7], "bearer ") {
				w.Header().Set("WWW-Authenticate", `Bearer realm="imsauth"`)
				httperrors.WriteError(w, httperrors.ErrTokenMissing)
				return
			}
			raw := strings.TrimSpace(ah[7:])

			claims, err := v.VerifyAccess(raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="imsauth", error="invalid_token"`)
				if errors.Is(err, jwtx.ErrExpiredToken) {
					httperrors.WriteError(w, httperrors.ErrTokenExpired)
					return
				}
				httperrors.WriteError(w, httperrors.ErrTokenInvalid)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAuthority exige la authority en las claims. Debe ir después de RequireBearer.
func RequireAuthority(authority string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := GetClaims(r.Context())
			if c == nil || !c.HasAuthority(authority) {
				httperrors.WriteError(w, httperrors.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
