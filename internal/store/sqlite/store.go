// Package sqlite implementa el credential store sobre SQLite (modernc, sin cgo).
//
// El pool se limita a una conexión: las transacciones quedan serializadas,
// que es lo que necesita Update para no intercalar lectura y escritura.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqlite3 "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/dropDatabas3/imsauth/internal/domain/repository"
	"github.com/dropDatabas3/imsauth/migrations"
)

// MemoryDSN abre una base en memoria privada de la conexión.
const MemoryDSN = ":memory:"

type Store struct {
	db *sql.DB
}

var _ repository.Store = (*Store)(nil)

// Open abre (o crea) la base y aplica las migraciones pendientes.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = MemoryDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	if _, err := migrations.Up(ctx, db, migrations.SQLite); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Migrate aplica migraciones pendientes (Open ya lo hace; útil para el CLI).
func (s *Store) Migrate(ctx context.Context) error {
	_, err := migrations.Up(ctx, s.db, migrations.SQLite)
	return err
}

// MigrateDown revierte la última migración.
func (s *Store) MigrateDown(ctx context.Context) error {
	return migrations.Down(ctx, s.db, migrations.SQLite)
}

// DB expone la conexión (migraciones/CLI).
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Users() repository.UserRepository { return &userRepo{db: s.db} }
func (s *Store) Roles() repository.RoleRepository { return &roleRepo{db: s.db} }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *Store) Close() error                   { return s.db.Close() }

// queryer lo cumplen *sql.DB y *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// rollback ignora el error (la tx puede estar ya commiteada).
func rollback(tx *sql.Tx) { _ = tx.Rollback() }
