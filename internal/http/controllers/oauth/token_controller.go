package oauth

import (
	"errors"
	"net/http"
	"strings"

	imshttp "github.com/dropDatabas3/imsauth/internal/http"
	dto "github.com/dropDatabas3/imsauth/internal/http/dto"
	httperrors "github.com/dropDatabas3/imsauth/internal/http/errors"
	"github.com/dropDatabas3/imsauth/internal/http/helpers"
	"github.com/dropDatabas3/imsauth/internal/oauth"
	"github.com/dropDatabas3/imsauth/internal/observability/logger"

	"go.uber.org/zap"
)

// TokenController maneja POST /oauth/token.
type TokenController struct {
	engine Engine
}

func NewTokenController(engine Engine) *TokenController {
	return &TokenController{engine: engine}
}

// Token implementa los grants authorization_code, refresh_token y password.
func (c *TokenController) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		httperrors.WriteOAuthError(w, &httperrors.OAuthError{Status: http.StatusBadRequest, Code: httperrors.OAuthInvalidRequest, Description: "Invalid form data"})
		return
	}

	grantType := strings.TrimSpace(r.PostForm.Get("grant_type"))
	creds := helpers.ClientCredentials(r)
	ctx, log := logger.Scope(ctx, logger.Layer("controller"), logger.Op("oauth.token"),
		logger.GrantType(grantType), logger.ClientID(creds.ID))

	var (
		pair *oauth.TokenPair
		err  error
	)
	switch grantType {
	case oauth.GrantAuthorizationCode:
		pair, err = c.engine.Exchange(ctx, oauth.ExchangeRequest{
			Code:         strings.TrimSpace(r.PostForm.Get("code")),
			ClientID:     creds.ID,
			ClientSecret: creds.Secret,
			RedirectURI:  strings.TrimSpace(r.PostForm.Get("redirect_uri")),
		})
	case oauth.GrantRefreshToken:
		pair, err = c.engine.Refresh(ctx, oauth.RefreshRequest{
			RefreshToken: strings.TrimSpace(r.PostForm.Get("refresh_token")),
			ClientID:     creds.ID,
			ClientSecret: creds.Secret,
			Scopes:       oauth.ParseScope(r.PostForm.Get("scope")),
		})
	case oauth.GrantPassword:
		pair, err = c.engine.PasswordGrant(ctx, oauth.PasswordRequest{
			Username:     strings.TrimSpace(r.PostForm.Get("username")),
			Password:     r.PostForm.Get("password"),
			ClientID:     creds.ID,
			ClientSecret: creds.Secret,
			Scopes:       oauth.ParseScope(r.PostForm.Get("scope")),
		})
	case "":
		err = oauth.ErrInvalidRequest
	default:
		err = oauth.ErrUnsupportedGrant
	}

	if err != nil {
		c.writeError(log, w, grantType, creds, err)
		return
	}

	log.Debug("token issued", logger.JTI(pair.Access.JTI), logger.Scopes(pair.Scopes))
	imshttp.RecordTokenIssued(grantType)
	helpers.WriteNoStoreJSON(w, http.StatusOK, NewTokenResponse(pair))
}

func (c *TokenController) writeError(log *zap.Logger, w http.ResponseWriter, grantType string, creds helpers.Credentials, err error) {
	oe := httperrors.OAuthFromError(err)
	if oe.Status >= 500 {
		log.Error("token endpoint error", logger.Err(err))
	} else {
		log.Info("grant rejected", logger.String("error", oe.Code), logger.Err(err))
	}
	if errors.Is(err, oauth.ErrClientMismatch) && creds.Basic {
		w.Header().Set("WWW-Authenticate", basicChallenge)
	}
	label := grantType
	if !oauth.KnownGrant(label) {
		label = "other"
	}
	imshttp.RecordGrantFailure(label, oe.Code)
	httperrors.WriteOAuthError(w, oe)
}

// NewTokenResponse arma el cuerpo RFC 6749 §5.1.
func NewTokenResponse(p *oauth.TokenPair) dto.TokenResponse {
	resp := dto.TokenResponse{
		AccessToken: p.Access.Raw,
		TokenType:   "bearer",
		ExpiresIn:   p.Access.ExpiresIn(),
		Scope:       strings.Join(p.Scopes, " "),
		JTI:         p.Access.JTI,
	}
	if p.Refresh != nil {
		resp.RefreshToken = p.Refresh.Raw
	}
	return resp
}
