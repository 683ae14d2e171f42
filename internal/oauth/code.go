package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dropDatabas3/imsauth/internal/cache"
	tokens "github.com/dropDatabas3/imsauth/internal/security/token"
)

const (
	// DefaultCodeTTL es la vida de un authorization code.
	DefaultCodeTTL = 10 * time.Minute

	cacheKeyPrefixCode = "code:"
)

// AuthorizationCode es lo que se guarda por cada code emitido.
// El code en claro solo viaja al cliente; en la tabla se indexa por su SHA-256.
type AuthorizationCode struct {
	Code string `json:"-"`

	ClientID    string   `json:"client_id"`
	UserID      int64    `json:"uid"`
	Username    string   `json:"user_name"`
	Authorities []string `json:"authorities"`
	Scopes      []string `json:"scopes"`

	// RedirectURI es el resuelto; RedirectGiven indica si vino explícito en /authorize.
	RedirectURI   string `json:"redirect_uri"`
	RedirectGiven bool   `json:"redirect_given"`

	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// Expired: estrictamente después de ExpiresAt.
func (c *AuthorizationCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// codeTable guarda codes en el cache con consumo atómico.
type codeTable struct {
	c cache.Client
}

func codeKey(code string) string {
	return cacheKeyPrefixCode + tokens.SHA256Base64URL(code)
}

func (t codeTable) put(ctx context.Context, ac *AuthorizationCode, ttl time.Duration) error {
	b, err := json.Marshal(ac)
	if err != nil {
		return fmt.Errorf("encode code: %w", err)
	}
	return t.c.Set(ctx, codeKey(ac.Code), string(b), ttl)
}

// consume lee y borra el code en una sola operación. Desconocido o ya usado → ErrInvalidGrant.
func (t codeTable) consume(ctx context.Context, code string) (*AuthorizationCode, error) {
	raw, err := t.c.GetDel(ctx, codeKey(code))
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, ErrInvalidGrant
		}
		return nil, fmt.Errorf("consume code: %w", err)
	}
	var ac AuthorizationCode
	if err := json.Unmarshal([]byte(raw), &ac); err != nil {
		return nil, fmt.Errorf("decode code: %w", err)
	}
	ac.Code = code
	return &ac, nil
}
