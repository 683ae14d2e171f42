package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dropDatabas3/imsauth/internal/domain/repository"
)

type roleRepo struct {
	db *sql.DB
}

func (r *roleRepo) GetByName(ctx context.Context, name string) (*repository.Role, error) {
	var role repository.Role
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM role WHERE name_key = ?`, repository.NormalizeName(name),
	).Scan(&role.ID, &role.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading role: %w", err)
	}
	return &role, nil
}

func (r *roleRepo) List(ctx context.Context) ([]repository.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM role ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	defer rows.Close()

	var out []repository.Role
	for rows.Next() {
		var role repository.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (r *roleRepo) Create(ctx context.Context, name string) (*repository.Role, error) {
	key := repository.NormalizeName(name)
	if key == "" {
		return nil, repository.ErrInvalidInput
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO role (name, name_key) VALUES (?, ?)`, name, key)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("inserting role: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting role id: %w", err)
	}
	return &repository.Role{ID: id, Name: name}, nil
}
