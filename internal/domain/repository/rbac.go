package repository

import "context"

// Role representa un rol definido en el sistema (ADMIN, SUPERVISOR, USER).
type Role struct {
	ID   int64
	Name string
}

// Roles por defecto sembrados por las migraciones.
const (
	RoleAdmin      = "ADMIN"
	RoleSupervisor = "SUPERVISOR"
	RoleUser       = "USER"
)

// DefaultRoles lista los roles sembrados al crear el schema.
var DefaultRoles = []string{RoleAdmin, RoleSupervisor, RoleUser}

// RoleRepository define operaciones sobre roles.
// Los roles son inmutables una vez creados.
type RoleRepository interface {
	// GetByName busca un rol por nombre sin distinguir mayúsculas.
	// Retorna ErrNotFound si no existe.
	GetByName(ctx context.Context, name string) (*Role, error)

	// List lista todos los roles ordenados por ID.
	List(ctx context.Context) ([]Role, error)

	// Create crea un rol. Retorna ErrConflict si ya existe.
	Create(ctx context.Context, name string) (*Role, error)
}

// Store agrupa los repositorios de credenciales.
type Store interface {
	Users() UserRepository
	Roles() RoleRepository
	Ping(ctx context.Context) error
	Close() error
}
