package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/imsauth/internal/domain/repository"
)

type roleRepo struct{ pool *pgxpool.Pool }

// GetByName busca por name_key (repository.NormalizeName), igual que los otros drivers.
func (r *roleRepo) GetByName(ctx context.Context, name string) (*repository.Role, error) {
	var role repository.Role
	err := r.pool.QueryRow(ctx,
		`SELECT id, name FROM role WHERE name_key = $1`, repository.NormalizeName(name),
	).Scan(&role.ID, &role.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load role: %w", err)
	}
	return &role, nil
}

func (r *roleRepo) List(ctx context.Context) ([]repository.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM role ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (repository.Role, error) {
		var role repository.Role
		err := row.Scan(&role.ID, &role.Name)
		return role, err
	})
}

func (r *roleRepo) Create(ctx context.Context, name string) (*repository.Role, error) {
	key := repository.NormalizeName(name)
	if key == "" {
		return nil, repository.ErrInvalidInput
	}
	role := repository.Role{Name: name}
	err := r.pool.QueryRow(ctx, `INSERT INTO role (name, name_key) VALUES ($1, $2) RETURNING id`, name, key).Scan(&role.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("insert role: %w", err)
	}
	return &role, nil
}
