// Package oauth implementa el registry de clientes y el flujo
// authorization-code / refresh-token / password que emite los JWT.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dropDatabas3/imsauth/internal/auth"
	"github.com/dropDatabas3/imsauth/internal/cache"
	jwtx "github.com/dropDatabas3/imsauth/internal/jwt"
	"github.com/dropDatabas3/imsauth/internal/observability/logger"
	tokens "github.com/dropDatabas3/imsauth/internal/security/token"
)

// State es el estado de un intento de autorización; se loguea en el campo "state".
type State string

const (
	StateRequestReceived   State = "request_received"
	StateClientValidated   State = "client_validated"
	StateUserAuthenticated State = "user_authenticated"
	StateCodeIssued        State = "code_issued"
	StateExchanged         State = "exchanged"
	StateExpired           State = "expired"
)

// Authenticator verifica credenciales de usuario (password grant).
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*auth.Identity, error)
}

// TokenPair es el resultado de un canje. Refresh es nil si el cliente no tiene el grant refresh_token.
type TokenPair struct {
	Access  jwtx.Token
	Refresh *jwtx.Token
	Scopes  []string
}

type AuthorizeRequest struct {
	ClientID    string
	RedirectURI string
	Scopes      []string
	// Identity es el usuario ya autenticado; nil si no hay sesión.
	Identity *auth.Identity
	// Approved es la aprobación explícita del usuario (user_oauth_approval).
	Approved bool
}

type ExchangeRequest struct {
	Code         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type RefreshRequest struct {
	RefreshToken string
	ClientID     string
	ClientSecret string
	// Scopes opcional: subconjunto de los del refresh token.
	Scopes []string
}

type PasswordRequest struct {
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Deps agrupa las dependencias del Engine.
type Deps struct {
	Registry      Registry
	Issuer        *jwtx.Issuer
	Codes         cache.Client
	Authenticator Authenticator // opcional: sin él el password grant se rechaza
	CodeTTL       time.Duration
}

// Engine orquesta los grants. Es seguro para uso concurrente.
type Engine struct {
	registry Registry
	issuer   *jwtx.Issuer
	codes    codeTable
	authn    Authenticator
	codeTTL  time.Duration
	now      func() time.Time
}

func NewEngine(d Deps) *Engine {
	ttl := d.CodeTTL
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &Engine{
		registry: d.Registry,
		issuer:   d.Issuer,
		codes:    codeTable{c: d.Codes},
		authn:    d.Authenticator,
		codeTTL:  ttl,
		now:      d.Issuer.Now,
	}
}

// Authorize valida cliente, redirect, scopes, usuario y consentimiento, y emite un code.
// Los errores posteriores a validar el redirect vienen envueltos en *AuthorizeError.
func (e *Engine) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizationCode, error) {
	log := logger.From(ctx).With(logger.Layer("oauth"), logger.Op("Engine.Authorize"), logger.ClientID(req.ClientID))
	log.Debug("authorize", logger.State(string(StateRequestReceived)))

	client, err := e.registry.Lookup(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if !client.AllowsGrant(GrantAuthorizationCode) {
		return nil, ErrGrantTypeNotAllowed
	}
	redirect, err := client.ValidateRedirect(req.RedirectURI)
	if err != nil {
		return nil, err
	}
	fail := func(err error, scopes []string) error {
		return &AuthorizeError{RedirectURI: redirect, Scopes: scopes, Err: err}
	}

	scopes, err := client.ResolveScopes(req.Scopes)
	if err != nil {
		return nil, fail(err, nil)
	}
	log.Debug("client validated", logger.State(string(StateClientValidated)), logger.Scopes(scopes))

	if req.Identity == nil {
		return nil, fail(ErrUnauthenticated, scopes)
	}
	log = log.With(logger.UserID(req.Identity.UserID))
	log.Debug("user authenticated", logger.State(string(StateUserAuthenticated)))

	if !client.AutoApprove && !req.Approved {
		return nil, fail(ErrConsentRequired, scopes)
	}

	code, err := tokens.GenerateOpaqueToken(tokens.CodeBytes)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	now := e.now().UTC()
	ac := &AuthorizationCode{
		Code:          code,
		ClientID:      client.ID,
		UserID:        req.Identity.UserID,
		Username:      req.Identity.Username,
		Authorities:   slices.Clone(req.Identity.Authorities),
		Scopes:        scopes,
		RedirectURI:   redirect,
		RedirectGiven: req.RedirectURI != "",
		IssuedAt:      now,
		ExpiresAt:     now.Add(e.codeTTL),
	}
	if err := e.codes.put(ctx, ac, e.codeTTL); err != nil {
		return nil, err
	}

	log.Info("auth code issued", logger.State(string(StateCodeIssued)))
	return ac, nil
}

// Exchange canjea un code por tokens. El code se consume antes de cualquier otra
// verificación: un code nunca sirve para un segundo intento, ni siquiera si el primero falló.
func (e *Engine) Exchange(ctx context.Context, req ExchangeRequest) (*TokenPair, error) {
	log := logger.From(ctx).With(logger.Layer("oauth"), logger.Op("Engine.Exchange"),
		logger.ClientID(req.ClientID), logger.GrantType(GrantAuthorizationCode))

	if req.Code == "" {
		return nil, ErrInvalidGrant
	}
	ac, err := e.codes.consume(ctx, req.Code)
	if err != nil {
		if errors.Is(err, ErrInvalidGrant) {
			log.Debug("code unknown or already used")
		}
		return nil, err
	}
	if ac.Expired(e.now()) {
		log.Info("code expired", logger.State(string(StateExpired)))
		return nil, fmt.Errorf("%w: code expired", ErrInvalidGrant)
	}

	if ac.ClientID != req.ClientID {
		return nil, fmt.Errorf("%w: code issued to another client", ErrClientMismatch)
	}
	client, err := e.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}
	if ac.RedirectGiven || req.RedirectURI != "" {
		if req.RedirectURI != ac.RedirectURI {
			return nil, fmt.Errorf("%w: redirect_uri", ErrClientMismatch)
		}
	}
	if !client.AllowsGrant(GrantAuthorizationCode) {
		return nil, ErrGrantTypeNotAllowed
	}

	sub := jwtx.Subject{UserID: ac.UserID, Username: ac.Username, Authorities: ac.Authorities}
	pair, err := e.issuePair(client, sub, ac.Scopes)
	if err != nil {
		return nil, err
	}
	log.Info("code exchanged", logger.State(string(StateExchanged)), logger.UserID(ac.UserID), logger.JTI(pair.Access.JTI))
	return pair, nil
}

// Refresh emite un par nuevo a partir de un refresh token válido.
// El refresh token anterior no se invalida: sigue sirviendo hasta su exp.
func (e *Engine) Refresh(ctx context.Context, req RefreshRequest) (*TokenPair, error) {
	log := logger.From(ctx).With(logger.Layer("oauth"), logger.Op("Engine.Refresh"),
		logger.ClientID(req.ClientID), logger.GrantType(GrantRefreshToken))

	claims, err := e.issuer.VerifyRefresh(req.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGrant, err)
	}
	client, err := e.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}
	if claims.ClientID != client.ID {
		return nil, fmt.Errorf("%w: refresh token issued to another client", ErrClientMismatch)
	}
	if !client.AllowsGrant(GrantRefreshToken) {
		return nil, ErrGrantTypeNotAllowed
	}

	scopes := claims.Scope
	if len(req.Scopes) > 0 {
		for _, s := range req.Scopes {
			if !slices.Contains(claims.Scope, s) {
				return nil, ErrInvalidScope
			}
		}
		scopes = req.Scopes
	}

	sub := jwtx.Subject{UserID: claims.UserID, Username: claims.UserName, Authorities: claims.Authorities}
	pair, err := e.issuePair(client, sub, scopes)
	if err != nil {
		return nil, err
	}
	log.Info("token refreshed", logger.UserID(claims.UserID), logger.JTI(pair.Access.JTI))
	return pair, nil
}

// PasswordGrant autentica usuario y cliente en un paso (solo clientes con grant password).
func (e *Engine) PasswordGrant(ctx context.Context, req PasswordRequest) (*TokenPair, error) {
	log := logger.From(ctx).With(logger.Layer("oauth"), logger.Op("Engine.PasswordGrant"),
		logger.ClientID(req.ClientID), logger.GrantType(GrantPassword))

	client, err := e.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}
	if !client.AllowsGrant(GrantPassword) || e.authn == nil {
		return nil, ErrGrantTypeNotAllowed
	}
	scopes, err := client.ResolveScopes(req.Scopes)
	if err != nil {
		return nil, err
	}
	id, err := e.authn.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) || errors.Is(err, auth.ErrBadCredentials) {
			// mismo error para usuario inexistente y password incorrecto
			return nil, fmt.Errorf("%w: %w", ErrInvalidGrant, auth.ErrBadCredentials)
		}
		return nil, err
	}

	sub := jwtx.Subject{UserID: id.UserID, Username: id.Username, Authorities: id.Authorities}
	pair, err := e.issuePair(client, sub, scopes)
	if err != nil {
		return nil, err
	}
	log.Info("password grant", logger.UserID(id.UserID), logger.JTI(pair.Access.JTI))
	return pair, nil
}

// CheckToken verifica un access token (firma + exp) y devuelve sus claims.
func (e *Engine) CheckToken(ctx context.Context, raw string) (*jwtx.Claims, error) {
	return e.issuer.VerifyAccess(raw)
}

// AuthenticateClient verifica client_id/secret. Desconocido o secreto inválido → ErrClientMismatch.
func (e *Engine) AuthenticateClient(ctx context.Context, clientID, secret string) (*Client, error) {
	return e.authenticateClient(ctx, clientID, secret)
}

func (e *Engine) authenticateClient(ctx context.Context, clientID, secret string) (*Client, error) {
	client, err := e.registry.Lookup(ctx, clientID)
	if err != nil {
		if errors.Is(err, ErrUnknownClient) {
			return nil, fmt.Errorf("%w: %w", ErrClientMismatch, err)
		}
		return nil, err
	}
	if !client.CheckSecret(secret) {
		return nil, fmt.Errorf("%w: bad client secret", ErrClientMismatch)
	}
	return client, nil
}

func (e *Engine) issuePair(client *Client, sub jwtx.Subject, scopes []string) (*TokenPair, error) {
	access, err := e.issuer.IssueAccessToken(sub, scopes, client.ID, jwtx.WithTTL(client.AccessTokenTTL))
	if err != nil {
		return nil, err
	}
	pair := &TokenPair{Access: access, Scopes: scopes}
	if client.AllowsGrant(GrantRefreshToken) {
		refresh, err := e.issuer.IssueRefreshToken(sub, scopes, client.ID, access.JTI, jwtx.WithTTL(client.RefreshTokenTTL))
		if err != nil {
			return nil, err
		}
		pair.Refresh = &refresh
	}
	return pair, nil
}
