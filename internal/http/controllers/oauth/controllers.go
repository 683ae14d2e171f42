// Package oauth contiene los controllers de /oauth/*.
package oauth

import (
	"context"

	"github.com/dropDatabas3/imsauth/internal/auth"
	jwtx "github.com/dropDatabas3/imsauth/internal/jwt"
	"github.com/dropDatabas3/imsauth/internal/oauth"
)

// Engine es lo que los controllers necesitan de *oauth.Engine.
type Engine interface {
	Authorize(ctx context.Context, req oauth.AuthorizeRequest) (*oauth.AuthorizationCode, error)
	Exchange(ctx context.Context, req oauth.ExchangeRequest) (*oauth.TokenPair, error)
	Refresh(ctx context.Context, req oauth.RefreshRequest) (*oauth.TokenPair, error)
	PasswordGrant(ctx context.Context, req oauth.PasswordRequest) (*oauth.TokenPair, error)
	CheckToken(ctx context.Context, raw string) (*jwtx.Claims, error)
	AuthenticateClient(ctx context.Context, clientID, secret string) (*oauth.Client, error)
}

// UserAuthenticator autentica al resource owner en /oauth/authorize.
type UserAuthenticator interface {
	Authenticate(ctx context.Context, username, password string) (*auth.Identity, error)
}

// KeySource expone el JWKS (EdDSA). Con HS256 devuelve jwt.ErrNoPublicKeySet.
type KeySource interface {
	JWKSJSON() ([]byte, error)
}

// Controllers agrupa los controllers OAuth.
type Controllers struct {
	Authorize  *AuthorizeController
	Token      *TokenController
	CheckToken *CheckTokenController
	TokenKey   *TokenKeyController
}

func NewControllers(engine Engine, users UserAuthenticator, keys KeySource) *Controllers {
	return &Controllers{
		Authorize:  NewAuthorizeController(engine, users),
		Token:      NewTokenController(engine),
		CheckToken: NewCheckTokenController(engine),
		TokenKey:   NewTokenKeyController(keys),
	}
}

const basicChallenge = `Basic realm="imsauth"`
