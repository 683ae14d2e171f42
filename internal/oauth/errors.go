package oauth

import "errors"

// Errores del registry y del flujo authorization-code.
var (
	ErrUnknownClient       = errors.New("unknown client")
	ErrGrantTypeNotAllowed = errors.New("grant type not allowed for client")
	ErrRedirectURIMismatch = errors.New("redirect_uri mismatch")
	ErrInvalidScope        = errors.New("invalid scope")

	// ErrInvalidGrant: code o refresh token desconocido, vencido o ya usado.
	ErrInvalidGrant = errors.New("invalid grant")
	// ErrClientMismatch: client id/secret o redirect_uri no coinciden.
	ErrClientMismatch = errors.New("client mismatch")

	ErrUnauthenticated  = errors.New("user not authenticated")
	ErrConsentRequired  = errors.New("user consent required")
	ErrUnsupportedGrant = errors.New("unsupported grant type")
	ErrInvalidRequest   = errors.New("invalid request")
)

// AuthorizeError envuelve los errores de Authorize que ocurren después de validar
// el redirect_uri: el cliente puede recibirlos por redirect.
type AuthorizeError struct {
	RedirectURI string
	Scopes      []string
	Err         error
}

func (e *AuthorizeError) Error() string { return e.Err.Error() }
func (e *AuthorizeError) Unwrap() error { return e.Err }
