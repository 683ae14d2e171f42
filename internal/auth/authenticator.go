// Package auth autentica usuarios contra el credential store.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/imsauth/internal/domain/repository"
	"github.com/dropDatabas3/imsauth/internal/observability/logger"
	"github.com/dropDatabas3/imsauth/internal/security/password"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrBadCredentials = errors.New("bad credentials")
)

// Identity es el usuario autenticado; alimenta sub/authorities de los tokens.
type Identity struct {
	UserID      int64
	Username    string
	Authorities []string
}

// Authenticator verifica username/password.
type Authenticator struct {
	users  repository.UserRepository
	hasher *password.Hasher
}

func NewAuthenticator(users repository.UserRepository, hasher *password.Hasher) *Authenticator {
	return &Authenticator{users: users, hasher: hasher}
}

// Authenticate busca el usuario sin distinguir mayúsculas y verifica el password.
// El Identity devuelto lleva el username tal como está guardado.
func (a *Authenticator) Authenticate(ctx context.Context, username, plain string) (*Identity, error) {
	log := logger.From(ctx).With(logger.Layer("auth"), logger.Op("Authenticator.Authenticate"))

	u, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Debug("unknown user", logger.Username(username))
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !a.hasher.Verify(plain, u.PasswordHash) {
		log.Debug("password mismatch", logger.UserID(u.ID))
		return nil, ErrBadCredentials
	}
	return &Identity{
		UserID:      u.ID,
		Username:    u.Username,
		Authorities: u.RoleNames(),
	}, nil
}
