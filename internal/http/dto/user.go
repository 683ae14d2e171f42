// Package dto define los cuerpos JSON de request/response de la API.
package dto

import "github.com/dropDatabas3/imsauth/internal/domain/repository"

// UserRequest es el body de /users/add y /users/update-details/{id}.
type UserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type RoleResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// UserResponse usa punteros para que el usuario vacío se serialice con todos los campos en null.
// password lleva el hash bcrypt; los clientes de /users/all lo reciben tal cual.
type UserResponse struct {
	ID       *int64         `json:"id"`
	Username *string        `json:"username"`
	Email    *string        `json:"email"`
	Password *string        `json:"password"`
	Roles    []RoleResponse `json:"roles"`
}

// EmptyUser es la respuesta para ids/usernames inexistentes.
func EmptyUser() UserResponse { return UserResponse{} }

func NewUserResponse(u *repository.User) UserResponse {
	if u == nil {
		return EmptyUser()
	}
	id, name, email, hash := u.ID, u.Username, u.Email, u.PasswordHash
	return UserResponse{
		ID:       &id,
		Username: &name,
		Email:    &email,
		Password: &hash,
		Roles:    NewRolesResponse(u.Roles),
	}
}

func NewUsersResponse(users []repository.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}

func NewRolesResponse(roles []repository.Role) []RoleResponse {
	out := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, RoleResponse{ID: r.ID, Name: r.Name})
	}
	return out
}
