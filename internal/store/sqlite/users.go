package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dropDatabas3/imsauth/internal/domain/repository"
)

type userRepo struct {
	db *sql.DB
}

const userColumns = `id, username, email, password_hash`

func (r *userRepo) Create(ctx context.Context, in repository.CreateUserInput) (*repository.User, error) {
	key := repository.NormalizeName(in.Username)
	if key == "" {
		return nil, repository.ErrInvalidInput
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO app_user (username, username_key, email, password_hash) VALUES (?, ?, ?, ?)`,
		in.Username, key, in.Email, in.PasswordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}
	if err := replaceRoles(ctx, tx, id, in.Roles); err != nil {
		return nil, err
	}

	u, err := loadUser(ctx, tx, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*repository.User, error) {
	return loadUser(ctx, r.db, `WHERE id = ?`, id)
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*repository.User, error) {
	return loadUser(ctx, r.db, `WHERE username_key = ?`, repository.NormalizeName(username))
}

func (r *userRepo) List(ctx context.Context) ([]repository.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM app_user ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	var users []repository.User
	for rows.Next() {
		var u repository.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	// una sola conexión: hay que cerrar rows antes de la segunda query
	byUser, err := rolesByUser(ctx, r.db)
	if err != nil {
		return nil, err
	}
	out := make([]repository.User, 0, len(users))
	for _, u := range users {
		u.Roles = byUser[u.ID]
		out = append(out, u)
	}
	return out, nil
}

func (r *userRepo) Update(ctx context.Context, id int64, fn repository.UserMutation) (*repository.User, error) {
	return r.update(ctx, `WHERE id = ?`, id, fn)
}

func (r *userRepo) UpdateByUsername(ctx context.Context, username string, fn repository.UserMutation) (*repository.User, error) {
	return r.update(ctx, `WHERE username_key = ?`, repository.NormalizeName(username), fn)
}

func (r *userRepo) update(ctx context.Context, where string, arg any, fn repository.UserMutation) (*repository.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	cur, err := loadUser(ctx, tx, where, arg)
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

	_, err = tx.ExecContext(ctx,
		`UPDATE app_user SET username = ?, username_key = ?, email = ?, password_hash = ? WHERE id = ?`,
		next.Username, key, next.Email, next.PasswordHash, cur.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("updating user: %w", err)
	}
	if err := replaceRoles(ctx, tx, cur.ID, next.Roles); err != nil {
		return nil, err
	}

	out, err := loadUser(ctx, tx, `WHERE id = ?`, cur.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return out, nil
}

func loadUser(ctx context.Context, q queryer, where string, arg any) (*repository.User, error) {
	var u repository.User
	err := q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM app_user `+where, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT r.id, r.name
		FROM user_role ur
		JOIN role r ON r.id = ur.role_id
		WHERE ur.user_id = ?
		ORDER BY r.id`, u.ID)
	if err != nil {
		return nil, fmt.Errorf("loading user roles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var role repository.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		u.Roles = append(u.Roles, role)
	}
	return &u, rows.Err()
}

func rolesByUser(ctx context.Context, q queryer) (map[int64][]repository.Role, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT ur.user_id, r.id, r.name
		FROM user_role ur
		JOIN role r ON r.id = ur.role_id
		ORDER BY ur.user_id, r.id`)
	if err != nil {
		return nil, fmt.Errorf("listing user roles: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]repository.Role)
	for rows.Next() {
		var uid int64
		var role repository.Role
		if err := rows.Scan(&uid, &role.ID, &role.Name); err != nil {
			return nil, fmt.Errorf("scanning user role: %w", err)
		}
		out[uid] = append(out[uid], role)
	}
	return out, rows.Err()
}

func replaceRoles(ctx context.Context, tx *sql.Tx, userID int64, roles []repository.Role) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_role WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clearing user roles: %w", err)
	}
	seen := make(map[int64]bool, len(roles))
	for _, role := range roles {
		if seen[role.ID] {
			continue
		}
		seen[role.ID] = true
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_role (user_id, role_id) VALUES (?, ?)`, userID, role.ID,
		); err != nil {
			return fmt.Errorf("inserting user role %s: %w", role.Name, err)
		}
	}
	return nil
}
