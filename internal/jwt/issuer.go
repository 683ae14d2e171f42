package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Tipos de token (claim "typ").
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

var (
	// ErrInvalidSignature cubre firma inválida, algoritmo inesperado o token malformado.
	ErrInvalidSignature = errors.New("invalid_signature")
	// ErrExpiredToken: now > exp.
	ErrExpiredToken   = errors.New("expired_token")
	ErrWrongTokenType = errors.New("wrong_token_type")
)

// Subject es la identidad que se embebe en los tokens.
type Subject struct {
	UserID      int64
	Username    string
	Authorities []string
}

// Claims son los claims que emite el Issuer (nombres compatibles con Spring OAuth2).
type Claims struct {
	UserName    string   `json:"user_name"`
	UserID      int64    `json:"uid"`
	ClientID    string   `json:"client_id"`
	Scope       []string `json:"scope"`
	Authorities []string `json:"authorities"`
	Type        string   `json:"typ"`
	ATI         string   `json:"ati,omitempty"`
	jwtv5.RegisteredClaims
}

// Token es un JWT firmado más su metadata.
type Token struct {
	Raw       string
	JTI       string
	Type      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ExpiresIn devuelve los segundos restantes respecto de IssuedAt.
func (t Token) ExpiresIn() int64 {
	return int64(t.ExpiresAt.Sub(t.IssuedAt) / time.Second)
}

// Issuer firma y valida tokens con el KeySet del proceso.
type Issuer struct {
	Iss        string
	Keys       *KeySet
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	now func() time.Time
}

type Option func(*Issuer)

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

func WithAccessTTL(d time.Duration) Option {
	return func(i *Issuer) {
		if d > 0 {
			i.AccessTTL = d
		}
	}
}

func WithRefreshTTL(d time.Duration) Option {
	return func(i *Issuer) {
		if d > 0 {
			i.RefreshTTL = d
		}
	}
}

func NewIssuer(iss string, keys *KeySet, opts ...Option) *Issuer {
	i := &Issuer{
		Iss:        iss,
		Keys:       keys,
		AccessTTL:  DefaultAccessTTL,
		RefreshTTL: DefaultRefreshTTL,
		now:        time.Now,
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Now expone el reloj del issuer para que otros componentes compartan la misma noción de tiempo.
func (i *Issuer) Now() time.Time { return i.now() }

// IssueOption ajusta una emisión puntual.
type IssueOption func(*issueParams)

type issueParams struct {
	ttl time.Duration
}

// WithTTL pisa el TTL por defecto (override por cliente).
func WithTTL(d time.Duration) IssueOption {
	return func(p *issueParams) {
		if d > 0 {
			p.ttl = d
		}
	}
}

// IssueAccessToken emite un access token para subject/scopes/client.
func (i *Issuer) IssueAccessToken(sub Subject, scopes []string, clientID string, opts ...IssueOption) (Token, error) {
	return i.issue(TypeAccess, sub, scopes, clientID, "", i.AccessTTL, opts)
}

// IssueRefreshToken emite un refresh token. accessJTI vincula el refresh con el access emitido junto a él.
func (i *Issuer) IssueRefreshToken(sub Subject, scopes []string, clientID, accessJTI string, opts ...IssueOption) (Token, error) {
	return i.issue(TypeRefresh, sub, scopes, clientID, accessJTI, i.RefreshTTL, opts)
}

func (i *Issuer) issue(typ string, sub Subject, scopes []string, clientID, ati string, ttl time.Duration, opts []IssueOption) (Token, error) {
	p := issueParams{ttl: ttl}
	for _, o := range opts {
		o(&p)
	}

	now := i.now().UTC().Truncate(time.Second)
	exp := now.Add(p.ttl)
	jti := uuid.NewString()

	claims := Claims{
		UserName:    sub.Username,
		UserID:      sub.UserID,
		ClientID:    clientID,
		Scope:       nonNil(scopes),
		Authorities: nonNil(sub.Authorities),
		Type:        typ,
		ATI:         ati,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    i.Iss,
			Subject:   sub.Username,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
			ID:        jti,
		},
	}

	tk := jwtv5.NewWithClaims(i.Keys.method(), claims)
	tk.Header["typ"] = "JWT"
	if i.Keys.KID != "" {
		tk.Header["kid"] = i.Keys.KID
	}
	signed, err := tk.SignedString(i.Keys.signingKey())
	if err != nil {
		return Token{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return Token{Raw: signed, JTI: jti, Type: typ, IssuedAt: now, ExpiresAt: exp}, nil
}

// Verify chequea firma (solo el algoritmo configurado), issuer y expiración.
// Un token es válido hasta exp inclusive; estrictamente después falla con ErrExpiredToken.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	c := &Claims{}
	tok, err := jwtv5.ParseWithClaims(raw, c,
		func(*jwtv5.Token) (any, error) { return i.Keys.verifyKey(), nil },
		jwtv5.WithValidMethods([]string{i.Keys.Alg}),
		// exp lo validamos a mano con el reloj inyectado
		jwtv5.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidSignature
	}
	if c.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp", ErrInvalidSignature)
	}
	if i.Iss != "" && c.Issuer != i.Iss {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrInvalidSignature)
	}
	if i.now().After(c.ExpiresAt.Time) {
		return nil, ErrExpiredToken
	}
	return c, nil
}

// VerifyAccess es Verify + typ == access.
func (i *Issuer) VerifyAccess(raw string) (*Claims, error) {
	return i.verifyType(raw, TypeAccess)
}

// VerifyRefresh es Verify + typ == refresh.
func (i *Issuer) VerifyRefresh(raw string) (*Claims, error) {
	return i.verifyType(raw, TypeRefresh)
}

func (i *Issuer) verifyType(raw, typ string) (*Claims, error) {
	c, err := i.Verify(raw)
	if err != nil {
		return nil, err
	}
	if c.Type != typ {
		return nil, ErrWrongTokenType
	}
	return c, nil
}

// JWKSJSON expone el JWKS de la clave actual.
func (i *Issuer) JWKSJSON() ([]byte, error) {
	return i.Keys.JWKSJSON()
}

// AsMap devuelve los claims como mapa plano (respuesta de check_token).
func (c *Claims) AsMap() map[string]any {
	out := map[string]any{
		"iss":         c.Issuer,
		"sub":         c.Subject,
		"user_name":   c.UserName,
		"uid":         c.UserID,
		"client_id":   c.ClientID,
		"scope":       nonNil(c.Scope),
		"authorities": nonNil(c.Authorities),
		"typ":         c.Type,
		"jti":         c.ID,
	}
	if c.IssuedAt != nil {
		out["iat"] = c.IssuedAt.Unix()
	}
	if c.ExpiresAt != nil {
		out["exp"] = c.ExpiresAt.Unix()
	}
	if c.ATI != "" {
		out["ati"] = c.ATI
	}
	return out
}

// HasAuthority indica si el token lleva la authority (case-sensitive, como Spring).
func (c *Claims) HasAuthority(a string) bool {
	for _, x := range c.Authorities {
		if x == a {
			return true
		}
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
