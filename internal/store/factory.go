// Package store abre el credential store según el driver configurado.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/imsauth/internal/domain/repository"
	"github.com/dropDatabas3/imsauth/internal/store/memory"
	"github.com/dropDatabas3/imsauth/internal/store/pg"
	"github.com/dropDatabas3/imsauth/internal/store/sqlite"
)

// Drivers soportados.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver   string
	DSN      string
	Postgres struct {
		MaxOpenConns, MaxIdleConns int
		ConnMaxLifetime            time.Duration
	}
	// AutoMigrate aplica migraciones al abrir (SQLite siempre migra).
	AutoMigrate bool
}

// NormalizeDriver acepta los alias habituales.
func NormalizeDriver(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "", "memory", "mem":
		return DriverMemory
	case "sqlite", "sqlite3":
		return DriverSQLite
	case "postgres", "pg", "postgresql":
		return DriverPostgres
	default:
		return d
	}
}

// Open devuelve el repository.Store del driver pedido.
func Open(ctx context.Context, cfg Config) (repository.Store, error) {
	switch NormalizeDriver(cfg.Driver) {
	case DriverMemory:
		return memory.New(), nil
	case DriverSQLite:
		return sqlite.Open(ctx, cfg.DSN)
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres: %w", repository.ErrNoDatabase)
		}
		return pg.New(ctx, cfg.DSN, pg.PoolConfig{
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		}, cfg.AutoMigrate)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}

// Migrator lo implementan los stores con schema versionado.
type Migrator interface {
	Migrate(ctx context.Context) error
	MigrateDown(ctx context.Context) error
}

var (
	_ Migrator = (*pg.Store)(nil)
	_ Migrator = (*sqlite.Store)(nil)
)
