package oauth

import (
	"crypto/subtle"
	"slices"
	"strings"
	"time"

	"github.com/dropDatabas3/imsauth/internal/security/password"
)

// Grant types soportados.
const (
	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"
	GrantPassword          = "password"
)

// KnownGrant indica si gt es un grant type soportado.
func KnownGrant(gt string) bool {
	switch gt {
	case GrantAuthorizationCode, GrantRefreshToken, GrantPassword:
		return true
	}
	return false
}

// Client es un cliente OAuth2 registrado.
type Client struct {
	ID           string
	Secret       string // en claro o hash bcrypt ($2a$...)
	GrantTypes   []string
	Scopes       []string
	RedirectURIs []string
	AutoApprove  bool

	// Overrides de TTL; 0 usa el default del issuer.
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

func (c *Client) AllowsGrant(gt string) bool {
	return slices.Contains(c.GrantTypes, gt)
}

// ValidateRedirect compara uri contra los registrados sin wildcards.
// Si uri viene vacío y hay un solo registrado, se usa ese.
func (c *Client) ValidateRedirect(uri string) (string, error) {
	if uri == "" {
		if len(c.RedirectURIs) == 1 {
			return c.RedirectURIs[0], nil
		}
		return "", ErrRedirectURIMismatch
	}
	if slices.Contains(c.RedirectURIs, uri) {
		return uri, nil
	}
	return "", ErrRedirectURIMismatch
}

// ResolveScopes devuelve los scopes otorgados. Pedido vacío = todos los del cliente.
func (c *Client) ResolveScopes(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return slices.Clone(c.Scopes), nil
	}
	out := make([]string, 0, len(requested))
	for _, s := range requested {
		if !slices.Contains(c.Scopes, s) {
			return nil, ErrInvalidScope
		}
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out, nil
}

// CheckSecret compara en tiempo constante (o vía bcrypt si el secreto está hasheado).
func (c *Client) CheckSecret(secret string) bool {
	if password.IsHash(c.Secret) {
		return (&password.Hasher{}).Verify(secret, c.Secret)
	}
	return subtle.ConstantTimeCompare([]byte(c.Secret), []byte(secret)) == 1
}

// ParseScope separa un parámetro scope ("read write" o "read,write").
func ParseScope(raw string) []string {
	f := strings.FieldsFunc(raw, func(r rune) bool { return r == ' ' || r == ',' })
	if len(f) == 0 {
		return nil
	}
	return f
}
