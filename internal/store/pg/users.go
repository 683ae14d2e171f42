package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/imsauth/internal/domain/repository"
)

type userRepo struct{ pool *pgxpool.Pool }

const userColumns = `id, username, email, password_hash`

func (r *userRepo) Create(ctx context.Context, in repository.CreateUserInput) (*repository.User, error) {
	key := repository.NormalizeName(in.Username)
	if key == "" {
		return nil, repository.ErrInvalidInput
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer rollback(ctx, tx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO app_user (username, username_key, email, password_hash) VALUES ($1, $2, $3, $4) RETURNING id`,
		in.Username, key, in.Email, in.PasswordHash,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	if err := replaceRoles(ctx, tx, id, in.Roles); err != nil {
		return nil, err
	}
	u, err := loadUser(ctx, tx, `WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*repository.User, error) {
	return loadUser(ctx, r.pool, `WHERE id = $1`, id)
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*repository.User, error) {
	return loadUser(ctx, r.pool, `WHERE username_key = $1`, repository.NormalizeName(username))
}

func (r *userRepo) List(ctx context.Context) ([]repository.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM app_user ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (repository.User, error) {
		var u repository.User
		err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}

	rows, err = r.pool.Query(ctx, `
SELECT ur.user_id, r.id, r.name
FROM user_role ur
JOIN role r ON r.id = ur.role_id
ORDER BY ur.user_id, r.id`)
	if err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	defer rows.Close()
	byUser := make(map[int64][]repository.Role)
	for rows.Next() {
		var uid int64
		var role repository.Role
		if err := rows.Scan(&uid, &role.ID, &role.Name); err != nil {
			return nil, err
		}
		byUser[uid] = append(byUser[uid], role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Roles = byUser[users[i].ID]
	}
	return users, nil
}

func (r *userRepo) Update(ctx context.Context, id int64, fn repository.UserMutation) (*repository.User, error) {
	return r.update(ctx, `WHERE id = $1`, id, fn)
}

func (r *userRepo) UpdateByUsername(ctx context.Context, username string, fn repository.UserMutation) (*repository.User, error) {
	return r.update(ctx, `WHERE username_key = $1`, repository.NormalizeName(username), fn)
}

// update bloquea la fila (FOR UPDATE) durante todo el read-modify-write.
func (r *userRepo) update(ctx context.Context, where string, arg any, fn repository.UserMutation) (*repository.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer rollback(ctx, tx)

	cur, err := loadUserForUpdate(ctx, tx, where, arg)
	if err != nil {
		return nil, err
	}
	next := cur.Clone()
	if err := fn(&next); err != nil {
		return nil, err
	}
	key := repository.NormalizeName(next.Username)
	if key == "" {
		return nil, repository.ErrInvalidInput
	}

	_, err = tx.Exec(ctx,
		`UPDATE app_user SET username = $1, username_key = $2, email = $3, password_hash = $4 WHERE id = $5`,
		next.Username, key, next.Email, next.PasswordHash, cur.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	if err := replaceRoles(ctx, tx, cur.ID, next.Roles); err != nil {
		return nil, err
	}
	out, err := loadUser(ctx, tx, `WHERE id = $1`, cur.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func loadUserForUpdate(ctx context.Context, q querier, where string, arg any) (*repository.User, error) {
	var id int64
	err := q.QueryRow(ctx, `SELECT id FROM app_user `+where+` FOR UPDATE`, arg).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}
	return loadUser(ctx, q, `WHERE id = $1`, id)
}

func loadUser(ctx context.Context, q querier, where string, arg any) (*repository.User, error) {
	var u repository.User
	err := q.QueryRow(ctx, `SELECT `+userColumns+` FROM app_user `+where, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	rows, err := q.Query(ctx, `
SELECT r.id, r.name
FROM user_role ur
JOIN role r ON r.id = ur.role_id
WHERE ur.user_id = $1
ORDER BY r.id`, u.ID)
	if err != nil {
		return nil, fmt.Errorf("load user roles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var role repository.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		u.Roles = append(u.Roles, role)
	}
	return &u, rows.Err()
}

func replaceRoles(ctx context.Context, tx pgx.Tx, userID int64, roles []repository.Role) error {
	if _, err := tx.Exec(ctx, `DELETE FROM user_role WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear user roles: %w", err)
	}
	seen := make(map[int64]bool, len(roles))
	for _, role := range roles {
		if seen[role.ID] {
			continue
		}
		seen[role.ID] = true
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_role (user_id, role_id) VALUES ($1, $2)`, userID, role.ID,
		); err != nil {
			return fmt.Errorf("insert user role %s: %w", role.Name, err)
		}
	}
	return nil
}
