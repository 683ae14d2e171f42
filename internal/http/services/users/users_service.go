// Package users contiene el service de la API de gestión de usuarios.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dropDatabas3/imsauth/internal/domain/repository"
	dto "github.com/dropDatabas3/imsauth/internal/http/dto"
	"github.com/dropDatabas3/imsauth/internal/observability/logger"
	"github.com/dropDatabas3/imsauth/internal/security/password"
	"github.com/dropDatabas3/imsauth/internal/util"
)

var (
	ErrMissingFields = errors.New("username and password are required")
	// ErrWeakPassword envuelve las razones de la política en el mensaje.
	ErrWeakPassword = errors.New("password does not satisfy policy")
)

// Service define las operaciones de /users/*. Los "no encontrado" vuelven como repository.ErrNotFound.
type Service interface {
	Add(ctx context.Context, req dto.UserRequest) (*repository.User, error)
	All(ctx context.Context) ([]repository.User, error)
	Roles(ctx context.Context) ([]repository.Role, error)
	ResetPassword(ctx context.Context, id int64) (*repository.User, error)
	UpdateDetails(ctx context.Context, id int64, req dto.UserRequest) (*repository.User, error)
	ChangePassword(ctx context.Context, username, plain string) (*repository.User, error)
}

type Deps struct {
	Store         repository.Store
	Hasher        *password.Hasher
	Policy        password.Policy
	ResetPassword string
}

type service struct {
	store         repository.Store
	hasher        *password.Hasher
	policy        password.Policy
	resetPassword string
}

func NewService(d Deps) Service {
	reset := d.ResetPassword
	if reset == "" {
		reset = "password"
	}
	return &service{store: d.Store, hasher: d.Hasher, policy: d.Policy, resetPassword: reset}
}

const componentUsers = "users"

func (s *service) log(ctx context.Context, op string) *zap.Logger {
	return logger.From(ctx).With(logger.Layer("service"), logger.Component(componentUsers), logger.Op(op))
}

// resolveRoles busca el rol por nombre; inexistente o vacío = sin roles (no es error).
func (s *service) resolveRoles(ctx context.Context, name string) ([]repository.Role, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	role, err := s.store.Roles().GetByName(ctx, name)
	if err != nil {
		if repository.IsNotFound(err) {
			s.log(ctx, "resolveRoles").Warn("role not found, user left without role", logger.Role(name))
			return nil, nil
		}
		return nil, err
	}
	return []repository.Role{*role}, nil
}

func (s *service) hash(plain string) (string, error) {
	if s.policy.Enabled() {
		if ok, reasons := s.policy.Validate(plain); !ok {
			return "", fmt.Errorf("%w: %s", ErrWeakPassword, strings.Join(reasons, ", "))
		}
	}
	return s.hasher.Hash(plain)
}

func (s *service) Add(ctx context.Context, req dto.UserRequest) (*repository.User, error) {
	log := s.log(ctx, "Add").With(logger.Username(req.Username))

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return nil, ErrMissingFields
	}
	roles, err := s.resolveRoles(ctx, req.Role)
	if err != nil {
		return nil, err
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	u, err := s.store.Users().Create(ctx, repository.CreateUserInput{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		Roles:        roles,
	})
	if err != nil {
		return nil, err
	}
	log.Info("user added", logger.UserID(u.ID), logger.String("email", util.MaskEmail(u.Email)))
	return u, nil
}

func (s *service) All(ctx context.Context) ([]repository.User, error) {
	return s.store.Users().List(ctx)
}

func (s *service) Roles(ctx context.Context) ([]repository.Role, error) {
	return s.store.Roles().List(ctx)
}

func (s *service) ResetPassword(ctx context.Context, id int64) (*repository.User, error) {
	// el hash se calcula fuera del read-modify-write
	hash, err := s.hasher.Hash(s.resetPassword)
	if err != nil {
		return nil, err
	}
	u, err := s.store.Users().Update(ctx, id, func(u *repository.User) error {
		u.PasswordHash = hash
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log(ctx, "ResetPassword").Info("password reset", logger.UserID(u.ID))
	return u, nil
}

// UpdateDetails reemplaza username, email y roles. El password del request se ignora.
func (s *service) UpdateDetails(ctx context.Context, id int64, req dto.UserRequest) (*repository.User, error) {
	if strings.TrimSpace(req.Username) == "" {
		return nil, ErrMissingFields
	}
	roles, err := s.resolveRoles(ctx, req.Role)
	if err != nil {
		return nil, err
	}
	u, err := s.store.Users().Update(ctx, id, func(u *repository.User) error {
		u.Username = strings.TrimSpace(req.Username)
		u.Email = strings.TrimSpace(req.Email)
		u.Roles = roles
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log(ctx, "UpdateDetails").Info("user details updated", logger.UserID(u.ID), logger.Username(u.Username))
	return u, nil
}

func (s *service) ChangePassword(ctx context.Context, username, plain string) (*repository.User, error) {
	if plain == "" {
		return nil, ErrMissingFields
	}
	hash, err := s.hash(plain)
	if err != nil {
		return nil, err
	}
	u, err := s.store.Users().UpdateByUsername(ctx, username, func(u *repository.User) error {
		u.PasswordHash = hash
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log(ctx, "ChangePassword").Info("password changed", logger.UserID(u.ID))
	return u, nil
}
