// Package users contiene el controller de /users/*.
package users

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/imsauth/internal/domain/repository"
	dto "github.com/dropDatabas3/imsauth/internal/http/dto"
	httperrors "github.com/dropDatabas3/imsauth/internal/http/errors"
	"github.com/dropDatabas3/imsauth/internal/http/helpers"
	svc "github.com/dropDatabas3/imsauth/internal/http/services/users"
	"github.com/dropDatabas3/imsauth/internal/observability/logger"
)

// UsersController maneja las rutas /users/*.
type UsersController struct {
	service svc.Service
}

func NewUsersController(service svc.Service) *UsersController {
	return &UsersController{service: service}
}

// Add maneja POST /users/add
func (c *UsersController) Add(w http.ResponseWriter, r *http.Request) {
	var req dto.UserRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	u, err := c.service.Add(r.Context(), req)
	if err != nil {
		c.writeError(w, r, "UsersController.Add", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.NewUserResponse(u))
}

// All maneja GET /users/all
func (c *UsersController) All(w http.ResponseWriter, r *http.Request) {
	users, err := c.service.All(r.Context())
	if err != nil {
		c.writeError(w, r, "UsersController.All", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.NewUsersResponse(users))
}

// Roles maneja GET /users/roles
func (c *UsersController) Roles(w http.ResponseWriter, r *http.Request) {
	roles, err := c.service.Roles(r.Context())
	if err != nil {
		c.writeError(w, r, "UsersController.Roles", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.NewRolesResponse(roles))
}

// ResetPassword maneja POST /users/password-reset/{id}
func (c *UsersController) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathInt64(r, "id")
	if !ok {
		httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail("id debe ser numérico"))
		return
	}
	u, err := c.service.ResetPassword(r.Context(), id)
	if err != nil {
		c.writeError(w, r, "UsersController.ResetPassword", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.NewUserResponse(u))
}

// UpdateDetails maneja POST /users/update-details/{id}
func (c *UsersController) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathInt64(r, "id")
	if !ok {
		httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail("id debe ser numérico"))
		return
	}
	var req dto.UserRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	u, err := c.service.UpdateDetails(r.Context(), id, req)
	if err != nil {
		c.writeError(w, r, "UsersController.UpdateDetails", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.NewUserResponse(u))
}

// ChangePassword maneja POST /users/password-change/{username}. Body: texto plano o string JSON.
func (c *UsersController) ChangePassword(w http.ResponseWriter, r *http.Request) {
	username := helpers.PathString(r, "username")
	plain, ok := helpers.ReadPlainOrJSONString(w, r)
	if !ok {
		return
	}
	u, err := c.service.ChangePassword(r.Context(), username, plain)
	if err != nil {
		c.writeError(w, r, "UsersController.ChangePassword", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.NewUserResponse(u))
}

// writeError: "no encontrado" responde 200 con el usuario vacío.
func (c *UsersController) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case repository.IsNotFound(err):
		helpers.WriteJSON(w, http.StatusOK, dto.EmptyUser())
	case repository.IsConflict(err):
		httperrors.WriteError(w, httperrors.ErrUsernameTaken)
	case errors.Is(err, svc.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail(err.Error()))
	case errors.Is(err, svc.ErrWeakPassword):
		detail := strings.TrimPrefix(err.Error(), svc.ErrWeakPassword.Error()+": ")
		httperrors.WriteError(w, httperrors.ErrPasswordTooWeak.WithDetail(detail))
	default:
		logger.From(r.Context()).Error("users request failed",
			logger.Layer("controller"), logger.Op(op), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}
