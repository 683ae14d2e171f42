package repository

import (
	"context"
	"strings"
)

// User representa un usuario del sistema.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Roles        []Role
}

// RoleNames devuelve los nombres de los roles del usuario.
func (u *User) RoleNames() []string {
	if u == nil {
		return nil
	}
	out := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		out = append(out, r.Name)
	}
	return out
}

// Clone devuelve una copia profunda (los stores no comparten slices con el caller).
func (u User) Clone() User {
	c := u
	if u.Roles != nil {
		c.Roles = append([]Role(nil), u.Roles...)
	}
	return c
}

// CreateUserInput contiene los datos para crear un usuario.
// PasswordHash ya debe venir hasheado.
type CreateUserInput struct {
	Username     string
	Email        string
	PasswordHash string
	Roles        []Role
}

// UserMutation modifica un usuario dentro de una operación read-modify-write.
// Si devuelve error, el cambio se descarta.
type UserMutation func(u *User) error

// UserRepository define operaciones sobre usuarios.
type UserRepository interface {
	// Create crea un nuevo usuario.
	// Retorna ErrConflict si el username (case-insensitive) ya existe.
	Create(ctx context.Context, input CreateUserInput) (*User, error)

	// GetByID busca un usuario por ID.
	// Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByUsername busca un usuario por username sin distinguir mayúsculas.
	// Retorna ErrNotFound si no existe.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// List lista todos los usuarios ordenados por ID.
	List(ctx context.Context) ([]User, error)

	// Update aplica fn sobre el usuario con ID dado y persiste el resultado.
	// Dos Update concurrentes sobre el mismo ID no intercalan lectura y escritura.
	// Retorna ErrNotFound si no existe, ErrConflict si el nuevo username colisiona.
	Update(ctx context.Context, id int64, fn UserMutation) (*User, error)

	// UpdateByUsername es como Update pero resolviendo el usuario por username.
	UpdateByUsername(ctx context.Context, username string, fn UserMutation) (*User, error)
}

// NormalizeName normaliza username/nombre de rol para comparaciones.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
