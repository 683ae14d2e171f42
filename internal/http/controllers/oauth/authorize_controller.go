package oauth

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/dropDatabas3/imsauth/internal/auth"
	imshttp "github.com/dropDatabas3/imsauth/internal/http"
	dto "github.com/dropDatabas3/imsauth/internal/http/dto"
	httperrors "github.com/dropDatabas3/imsauth/internal/http/errors"
	"github.com/dropDatabas3/imsauth/internal/http/helpers"
	"github.com/dropDatabas3/imsauth/internal/oauth"
	"github.com/dropDatabas3/imsauth/internal/observability/logger"
)

// ApprovalParam es el parámetro con el que el usuario aprueba el consentimiento.
const ApprovalParam = "user_oauth_approval"

// AuthorizeController maneja GET|POST /oauth/authorize. No hay UI de login:
// el usuario se autentica con HTTP Basic o los campos username/password.
type AuthorizeController struct {
	engine Engine
	users  UserAuthenticator
}

func NewAuthorizeController(engine Engine, users UserAuthenticator) *AuthorizeController {
	return &AuthorizeController{engine: engine, users: users}
}

func (c *AuthorizeController) Authorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("oauth.authorize"))

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		httperrors.WriteOAuthError(w, &httperrors.OAuthError{Status: http.StatusBadRequest, Code: httperrors.OAuthInvalidRequest, Description: "Invalid form data"})
		return
	}

	if rt := strings.TrimSpace(r.Form.Get("response_type")); rt != "code" {
		httperrors.WriteOAuthError(w, &httperrors.OAuthError{Status: http.StatusBadRequest, Code: httperrors.OAuthUnsupportedRespType, Description: "Only response_type=code is supported"})
		return
	}

	identity, err := c.identify(r)
	if err != nil {
		log.Error("user authentication failed", logger.Err(err))
		httperrors.WriteOAuthError(w, httperrors.OAuthFromError(err))
		return
	}

	state := r.Form.Get("state")
	req := oauth.AuthorizeRequest{
		ClientID:    strings.TrimSpace(r.Form.Get("client_id")),
		RedirectURI: strings.TrimSpace(r.Form.Get("redirect_uri")),
		Scopes:      oauth.ParseScope(r.Form.Get("scope")),
		Identity:    identity,
		Approved:    strings.EqualFold(r.Form.Get(ApprovalParam), "true"),
	}

	ac, err := c.engine.Authorize(ctx, req)
	if err != nil {
		c.writeAuthorizeError(w, r, req, state, err)
		return
	}

	imshttp.RecordCodeIssued()
	http.Redirect(w, r, withQuery(ac.RedirectURI, map[string]string{"code": ac.Code, "state": state}), http.StatusFound)
}

// identify devuelve nil (sin error) si no hay credenciales o son incorrectas.
func (c *AuthorizeController) identify(r *http.Request) (*auth.Identity, error) {
	creds, ok := helpers.UserCredentials(r)
	if !ok {
		return nil, nil
	}
	id, err := c.users.Authenticate(r.Context(), creds.ID, creds.Secret)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) || errors.Is(err, auth.ErrBadCredentials) {
			return nil, nil
		}
		return nil, err
	}
	return id, nil
}

func (c *AuthorizeController) writeAuthorizeError(w http.ResponseWriter, r *http.Request, req oauth.AuthorizeRequest, state string, err error) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("oauth.authorize"), logger.ClientID(req.ClientID))

	var ae *oauth.AuthorizeError
	if !errors.As(err, &ae) {
		// antes de validar el redirect_uri: nunca se redirige
		oe := httperrors.OAuthFromError(err)
		if errors.Is(err, oauth.ErrUnknownClient) {
			oe.Status = http.StatusBadRequest
		}
		if oe.Status >= 500 {
			log.Error("authorize failed", logger.Err(err))
		}
		httperrors.WriteOAuthError(w, oe)
		return
	}

	switch {
	case errors.Is(ae.Err, oauth.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", basicChallenge)
		httperrors.WriteOAuthError(w, &httperrors.OAuthError{Status: http.StatusUnauthorized, Code: httperrors.OAuthAccessDenied, Description: "Full authentication is required"})
	case errors.Is(ae.Err, oauth.ErrConsentRequired):
		helpers.WriteNoStoreJSON(w, http.StatusOK, dto.ConsentResponse{
			ConsentRequired: true,
			ClientID:        req.ClientID,
			Scopes:          ae.Scopes,
			RedirectURI:     ae.RedirectURI,
			State:           state,
			ApprovalParam:   ApprovalParam,
		})
	default:
		oe := httperrors.OAuthFromError(ae.Err)
		if oe.Status >= 500 {
			log.Error("authorize failed", logger.Err(err))
			httperrors.WriteOAuthError(w, oe)
			return
		}
		http.Redirect(w, r, withQuery(ae.RedirectURI, map[string]string{
			"error":             oe.Code,
			"error_description": oe.Description,
			"state":             state,
		}), http.StatusFound)
	}
}

// withQuery agrega los parámetros no vacíos al redirect_uri registrado.
func withQuery(raw string, params map[string]string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
