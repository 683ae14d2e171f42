package oauth

import (
	"errors"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/imsauth/internal/http/errors"
	"github.com/dropDatabas3/imsauth/internal/http/helpers"
	jwtx "github.com/dropDatabas3/imsauth/internal/jwt"
	"github.com/dropDatabas3/imsauth/internal/observability/logger"
	"github.com/dropDatabas3/imsauth/internal/util"
)

// CheckTokenController maneja POST /oauth/check_token (requiere cliente autenticado).
type CheckTokenController struct {
	engine Engine
}

func NewCheckTokenController(engine Engine) *CheckTokenController {
	return &CheckTokenController{engine: engine}
}

func (c *CheckTokenController) CheckToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("oauth.check_token"))

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		httperrors.WriteOAuthError(w, &httperrors.OAuthError{Status: http.StatusBadRequest, Code: httperrors.OAuthInvalidRequest, Description: "Invalid form data"})
		return
	}

	creds := helpers.ClientCredentials(r)
	if _, err := c.engine.AuthenticateClient(ctx, creds.ID, creds.Secret); err != nil {
		w.Header().Set("WWW-Authenticate", basicChallenge)
		httperrors.WriteOAuthError(w, httperrors.OAuthFromError(err))
		return
	}

	raw := strings.TrimSpace(r.Form.Get("token"))
	if raw == "" {
		httperrors.WriteOAuthError(w, &httperrors.OAuthError{Status: http.StatusBadRequest, Code: httperrors.OAuthInvalidRequest, Description: "token is required"})
		return
	}

	claims, err := c.engine.CheckToken(ctx, raw)
	if err != nil {
		log.Debug("token rejected", logger.String("token", util.MaskSecret(raw)), logger.Err(err))
		oe := httperrors.OAuthFromError(err)
		if oe.Code != httperrors.OAuthInvalidToken {
			oe = &httperrors.OAuthError{Status: http.StatusBadRequest, Code: httperrors.OAuthInvalidToken, Description: "Token was not recognised"}
		}
		httperrors.WriteOAuthError(w, oe)
		return
	}

	body := claims.AsMap()
	body["active"] = true
	helpers.WriteNoStoreJSON(w, http.StatusOK, body)
}

// TokenKeyController maneja GET /oauth/token_key.
type TokenKeyController struct {
	keys KeySource
}

func NewTokenKeyController(keys KeySource) *TokenKeyController {
	return &TokenKeyController{keys: keys}
}

func (c *TokenKeyController) TokenKey(w http.ResponseWriter, r *http.Request) {
	b, err := c.keys.JWKSJSON()
	if err != nil {
		if errors.Is(err, jwtx.ErrNoPublicKeySet) {
			httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("symmetric signing key: no public key to publish"))
			return
		}
		logger.From(r.Context()).Error("jwks failed", logger.Layer("controller"), logger.Op("oauth.token_key"), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(b)
}
