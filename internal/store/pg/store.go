// Package pg implementa el credential store sobre PostgreSQL (pgx/pgxpool).
package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/dropDatabas3/imsauth/internal/domain/repository"
	"github.com/dropDatabas3/imsauth/internal/observability/logger"
	"github.com/dropDatabas3/imsauth/migrations"
)

// PoolConfig ajusta el pool de pgx.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type Store struct{ pool *pgxpool.Pool }

var _ repository.Store = (*Store)(nil)

// New abre el pool y hace ping. Si migrate es true aplica las migraciones pendientes.
func New(ctx context.Context, dsn string, pc PoolConfig, migrate bool) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgxpool config: %w", err)
	}
	if pc.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(pc.MaxOpenConns)
	}
	// Mapear MaxIdleConns → MinConns (pgxpool)
	if pc.MaxIdleConns > 0 {
		pcfg.MinConns = int32(pc.MaxIdleConns)
	}
	if pc.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = pc.ConnMaxLifetime
		pcfg.MaxConnIdleTime = pc.ConnMaxLifetime
	}
	if pcfg.MinConns > pcfg.MaxConns {
		pcfg.MinConns = pcfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("new pgxpool: %w", err)
	}
	// Conectar para fallar rápido si hay problema
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgxpool ping: %w", err)
	}
	logger.L().Info("pg pool ready", logger.Int("max_conns", int(pcfg.MaxConns)))

	s := &Store{pool: pool}
	if migrate {
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

// Migrate aplica las migraciones goose usando un *sql.DB sobre el mismo pool.
func (s *Store) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()
	n, err := migrations.Up(ctx, db, migrations.Postgres)
	if err != nil {
		return err
	}
	logger.L().Info("pg migrations applied", logger.Count(n))
	return nil
}

// MigrateDown revierte la última migración.
func (s *Store) MigrateDown(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()
	return migrations.Down(ctx, db, migrations.Postgres)
}

// Pool expone el pool para el collector de métricas y los tests.
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

func (s *Store) Users() repository.UserRepository { return &userRepo{pool: s.pool} }
func (s *Store) Roles() repository.RoleRepository { return &roleRepo{pool: s.pool} }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool subyacente (idempotente).
func (s *Store) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// querier lo cumplen *pgxpool.Pool y pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func rollback(ctx context.Context, tx pgx.Tx) { _ = tx.Rollback(ctx) }
