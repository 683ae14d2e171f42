// Package memory implementa el credential store en memoria.
// Útil para desarrollo y tests; los datos se pierden al reiniciar.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dropDatabas3/imsauth/internal/domain/repository"
)

// Store guarda usuarios y roles en mapas protegidos por un único mutex.
// Un solo lock para usuarios y roles mantiene atómico el read-modify-write de Update.
type Store struct {
	mu sync.Mutex

	users      map[int64]repository.User
	byUsername map[string]int64 // nombre normalizado -> id
	nextUserID int64

	roles      map[int64]repository.Role
	byRoleName map[string]int64
	nextRoleID int64
}

var _ repository.Store = (*Store)(nil)

// New crea un store vacío con los roles por defecto sembrados.
func New() *Store {
	s := &Store{
		users:      make(map[int64]repository.User),
		byUsername: make(map[string]int64),
		roles:      make(map[int64]repository.Role),
		byRoleName: make(map[string]int64),
	}
	for _, name := range repository.DefaultRoles {
		s.insertRoleLocked(name)
	}
	return s
}

func (s *Store) Users() repository.UserRepository { return (*userRepo)(s) }
func (s *Store) Roles() repository.RoleRepository { return (*roleRepo)(s) }

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close() error                   { return nil }

func (s *Store) insertRoleLocked(name string) repository.Role {
	s.nextRoleID++
	r := repository.Role{ID: s.nextRoleID, Name: name}
	s.roles[r.ID] = r
	s.byRoleName[repository.NormalizeName(name)] = r.ID
	return r
}

// ─── users ───

type userRepo Store

func (r *userRepo) Create(ctx context.Context, in repository.CreateUserInput) (*repository.User, error) {
	s := (*Store)(r)
	key := repository.NormalizeName(in.Username)
	if key == "" {
		return nil, repository.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.byUsername[key]; dup {
		return nil, repository.ErrConflict
	}
	s.nextUserID++
	u := repository.User{
		ID:           s.nextUserID,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Roles:        append([]repository.Role(nil), in.Roles...),
	}
	s.users[u.ID] = u
	s.byUsername[key] = u.ID

	out := u.Clone()
	return &out, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*repository.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := u.Clone()
	return &out, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*repository.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUsername[repository.NormalizeName(username)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := s.users[id].Clone()
	return &out, nil
}

func (r *userRepo) List(ctx context.Context) ([]repository.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]repository.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *userRepo) Update(ctx context.Context, id int64, fn repository.UserMutation) (*repository.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(id, fn)
}

func (r *userRepo) UpdateByUsername(ctx context.Context, username string, fn repository.UserMutation) (*repository.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUsername[repository.NormalizeName(username)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.updateLocked(id, fn)
}

func (s *Store) updateLocked(id int64, fn repository.UserMutation) (*repository.User, error) {
	cur, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	next := cur.Clone()
	if err := fn(&next); err != nil {
		return nil, err
	}
	next.ID = cur.ID

	oldKey := repository.NormalizeName(cur.Username)
	newKey := repository.NormalizeName(next.Username)
	if newKey == "" {
		return nil, repository.ErrInvalidInput
	}
	if newKey != oldKey {
		if _, dup := s.byUsername[newKey]; dup {
			return nil, repository.ErrConflict
		}
		delete(s.byUsername, oldKey)
		s.byUsername[newKey] = id
	}
	s.users[id] = next

	out := next.Clone()
	return &out, nil
}

// ─── roles ───

type roleRepo Store

func (r *roleRepo) GetByName(ctx context.Context, name string) (*repository.Role, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byRoleName[repository.NormalizeName(name)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	role := s.roles[id]
	return &role, nil
}

func (r *roleRepo) List(ctx context.Context) ([]repository.Role, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]repository.Role, 0, len(s.roles))
	for _, role := range s.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *roleRepo) Create(ctx context.Context, name string) (*repository.Role, error) {
	s := (*Store)(r)
	if repository.NormalizeName(name) == "" {
		return nil, repository.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.byRoleName[repository.NormalizeName(name)]; dup {
		return nil, repository.ErrConflict
	}
	role := s.insertRoleLocked(name)
	return &role, nil
}
