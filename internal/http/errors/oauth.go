package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	jwtx "github.com/dropDatabas3/imsauth/internal/jwt"
	"github.com/dropDatabas3/imsauth/internal/oauth"
)

// Códigos RFC 6749 §5.2 (+ invalid_token de RFC 6750).
const (
	OAuthInvalidRequest       = "invalid_request"
	OAuthInvalidClient        = "invalid_client"
	OAuthInvalidGrant         = "invalid_grant"
	OAuthUnauthorizedClient   = "unauthorized_client"
	OAuthUnsupportedGrantType = "unsupported_grant_type"
	OAuthUnsupportedRespType  = "unsupported_response_type"
	OAuthInvalidScope         = "invalid_scope"
	OAuthAccessDenied         = "access_denied"
	OAuthInvalidToken         = "invalid_token"
	OAuthServerError          = "server_error"
)

// OAuthError es el cuerpo {error, error_description}. Nunca lleva detalle interno.
type OAuthError struct {
	Status      int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *OAuthError) Error() string { return e.Code + ": " + e.Description }

// OAuthFromError traduce los sentinels del engine/issuer al error OAuth2 que ve el cliente.
func OAuthFromError(err error) *OAuthError {
	switch {
	case errors.Is(err, oauth.ErrClientMismatch), errors.Is(err, oauth.ErrUnknownClient):
		return &OAuthError{http.StatusUnauthorized, OAuthInvalidClient, "Client authentication failed"}
	case errors.Is(err, oauth.ErrInvalidGrant):
		return &OAuthError{http.StatusBadRequest, OAuthInvalidGrant, "Invalid or expired grant"}
	case errors.Is(err, oauth.ErrGrantTypeNotAllowed):
		return &OAuthError{http.StatusBadRequest, OAuthUnauthorizedClient, "Client not authorized for this grant type"}
	case errors.Is(err, oauth.ErrUnsupportedGrant):
		return &OAuthError{http.StatusBadRequest, OAuthUnsupportedGrantType, "Grant type not supported"}
	case errors.Is(err, oauth.ErrInvalidScope):
		return &OAuthError{http.StatusBadRequest, OAuthInvalidScope, "Requested scope is invalid or not allowed"}
	case errors.Is(err, oauth.ErrRedirectURIMismatch):
		return &OAuthError{http.StatusBadRequest, OAuthInvalidRequest, "Invalid redirect_uri"}
	case errors.Is(err, oauth.ErrInvalidRequest):
		return &OAuthError{http.StatusBadRequest, OAuthInvalidRequest, "Missing or invalid parameters"}
	case errors.Is(err, oauth.ErrConsentRequired):
		return &OAuthError{http.StatusForbidden, OAuthAccessDenied, "User denied access"}
	case errors.Is(err, jwtx.ErrExpiredToken):
		return &OAuthError{http.StatusBadRequest, OAuthInvalidToken, "Token has expired"}
	case errors.Is(err, jwtx.ErrInvalidSignature), errors.Is(err, jwtx.ErrWrongTokenType):
		return &OAuthError{http.StatusBadRequest, OAuthInvalidToken, "Token was not recognised"}
	default:
		return &OAuthError{http.StatusInternalServerError, OAuthServerError, "An unexpected error occurred"}
	}
}

// WriteOAuthError escribe el error con los headers no-store de RFC 6749 §5.1.
func WriteOAuthError(w http.ResponseWriter, e *OAuthError) {
	h := w.Header()
	h.Set("Cache-Control", "no-store")
	h.Set("Pragma", "no-cache")
	h.Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(e)
}
