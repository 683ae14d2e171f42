// Package migrations embebe los SQL de schema y los aplica con goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

//go:embed postgres/*.sql sqlite/*.sql
var embedded embed.FS

// Dialectos soportados.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

func provider(db *sql.DB, dialect string) (*goose.Provider, error) {
	var (
		d   database.Dialect
		dir string
	)
	switch dialect {
	case Postgres:
		d, dir = database.DialectPostgres, "postgres"
	case SQLite:
		d, dir = database.DialectSQLite3, "sqlite"
	default:
		return nil, fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}

	// los archivos están bajo "<dir>/"; goose quiere un FS plano
	sub, err := fs.Sub(embedded, dir)
	if err != nil {
		return nil, fmt.Errorf("migrations: sub filesystem: %w", err)
	}
	p, err := goose.NewProvider(d, db, sub)
	if err != nil {
		return nil, fmt.Errorf("migrations: goose provider: %w", err)
	}
	return p, nil
}

// Up aplica todas las migraciones pendientes. Devuelve cuántas aplicó.
func Up(ctx context.Context, db *sql.DB, dialect string) (int, error) {
	p, err := provider(db, dialect)
	if err != nil {
		return 0, err
	}
	res, err := p.Up(ctx)
	if err != nil {
		return len(res), fmt.Errorf("migrations: up: %w", err)
	}
	return len(res), nil
}

// Down revierte la última migración aplicada.
func Down(ctx context.Context, db *sql.DB, dialect string) error {
	p, err := provider(db, dialect)
	if err != nil {
		return err
	}
	if _, err := p.Down(ctx); err != nil {
		return fmt.Errorf("migrations: down: %w", err)
	}
	return nil
}

// Version devuelve la versión actual del schema.
func Version(ctx context.Context, db *sql.DB, dialect string) (int64, error) {
	p, err := provider(db, dialect)
	if err != nil {
		return 0, err
	}
	return p.GetDBVersion(ctx)
}
