// Package server arma las dependencias del servidor a partir de la config y
// maneja su ciclo de vida.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/imsauth/internal/auth"
	"github.com/dropDatabas3/imsauth/internal/cache"
	"github.com/dropDatabas3/imsauth/internal/config"
	"github.com/dropDatabas3/imsauth/internal/domain/repository"
	imshttp "github.com/dropDatabas3/imsauth/internal/http"
	healthctrl "github.com/dropDatabas3/imsauth/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/imsauth/internal/http/controllers/oauth"
	usersctrl "github.com/dropDatabas3/imsauth/internal/http/controllers/users"
	"github.com/dropDatabas3/imsauth/internal/http/router"
	healthsvc "github.com/dropDatabas3/imsauth/internal/http/services/health"
	userssvc "github.com/dropDatabas3/imsauth/internal/http/services/users"
	jwtx "github.com/dropDatabas3/imsauth/internal/jwt"
	"github.com/dropDatabas3/imsauth/internal/oauth"
	"github.com/dropDatabas3/imsauth/internal/observability/logger"
	"github.com/dropDatabas3/imsauth/internal/rate"
	"github.com/dropDatabas3/imsauth/internal/security/password"
	"github.com/dropDatabas3/imsauth/internal/store"
	"github.com/dropDatabas3/imsauth/internal/store/pg"
)

// App es el resultado del wiring: handler listo y recursos a cerrar.
type App struct {
	Handler http.Handler
	Store   repository.Store
	Cache   cache.Client
	Issuer  *jwtx.Issuer
	Engine  *oauth.Engine

	cleanup []func() error
}

// Options permite inyectar piezas en tests.
type Options struct {
	// Registry para métricas; nil usa el registry global de prometheus.
	Registry prometheus.Registerer
	// Clock opcional compartido por issuer y engine.
	Clock func() time.Time
}

// Close libera store y cache en orden inverso al de apertura.
func (a *App) Close() error {
	var errs []error
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build construye store, code table, issuer, engine y el router.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	log := logger.From(ctx).With(logger.Layer("server"), logger.Op("Build"))
	app := &App{}

	// 1. Credential store
	st, err := store.Open(ctx, StoreConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	app.Store = st
	app.cleanup = append(app.cleanup, st.Close)

	// 2. Code table
	cc, err := cache.New(ctx, cache.Config{
		Driver:   strings.ToLower(cfg.Cache.Kind),
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}
	app.Cache = cc
	app.cleanup = append(app.cleanup, cc.Close)

	// 3. Keys & issuer
	keys, err := loadKeys(cfg)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("signing keys: %w", err)
	}
	issuerOpts := []jwtx.Option{jwtx.WithAccessTTL(cfg.AccessTTL()), jwtx.WithRefreshTTL(cfg.RefreshTTL())}
	if opts.Clock != nil {
		issuerOpts = append(issuerOpts, jwtx.WithClock(opts.Clock))
	}
	app.Issuer = jwtx.NewIssuer(cfg.JWT.Issuer, keys, issuerOpts...)

	// 4. Clients & engine
	registry, err := oauth.NewStaticRegistry(clientsFromConfig(cfg)...)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("client registry: %w", err)
	}
	hasher := password.NewHasher(cfg.Auth.BcryptCost)
	authn := auth.NewAuthenticator(st.Users(), hasher)
	app.Engine = oauth.NewEngine(oauth.Deps{
		Registry:      registry,
		Issuer:        app.Issuer,
		Codes:         cc,
		Authenticator: authn,
		CodeTTL:       cfg.AuthCodeTTL(),
	})

	// 5. Metrics (antes del router: WithMetrics se resuelve al envolver)
	metricsCfg := imshttp.MetricsConfig{Registry: opts.Registry}
	if ps, ok := st.(*pg.Store); ok {
		metricsCfg.PGPool = func() *pgxpool.Pool { return ps.Pool() }
	}
	metricsHandler, err := imshttp.RegisterMetrics(metricsCfg)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	// 6. Services & controllers
	users := userssvc.NewService(userssvc.Deps{
		Store:         st,
		Hasher:        hasher,
		Policy:        passwordPolicy(cfg),
		ResetPassword: cfg.Auth.DefaultResetPassword,
	})
	health := healthsvc.NewHealthService(healthsvc.Deps{
		Critical: map[string]healthsvc.Check{"store": st.Ping},
		Optional: map[string]healthsvc.Check{"cache": cc.Ping},
	})

	deps := router.Deps{
		Users:              usersctrl.NewUsersController(users),
		OAuth:              oauthctrl.NewControllers(app.Engine, authn, app.Issuer),
		Health:             healthctrl.NewHealthController(health),
		Metrics:            metricsHandler,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		RateLimiter:        newLimiter(cfg, cc),
	}
	if cfg.Auth.ProtectUsersAPI {
		deps.Verifier = app.Issuer
	}
	app.Handler = router.New(deps)

	log.Info("server wired",
		logger.String("storage", store.NormalizeDriver(cfg.Storage.Driver)),
		logger.String("cache", cfg.Cache.Kind),
		logger.String("alg", keys.Alg),
		logger.Count(len(registry.IDs())),
		logger.Bool("users_api_protected", cfg.Auth.ProtectUsersAPI),
		logger.Bool("rate_limit", deps.RateLimiter != nil),
	)
	return app, nil
}

func loadKeys(cfg *config.Config) (*jwtx.KeySet, error) {
	if strings.EqualFold(cfg.JWT.Alg, jwtx.AlgEdDSA) && cfg.JWT.Ed25519Seed == "" && cfg.IsDev() {
		logger.L().Warn("EdDSA sin seed: usando clave efímera de desarrollo")
		return jwtx.NewDevEd25519(cfg.JWT.KID)
	}
	return jwtx.LoadKeySet(cfg.JWT.Alg, cfg.JWT.SigningKey, cfg.JWT.Ed25519Seed, cfg.JWT.KID)
}

// StoreConfig traduce la sección storage; SQLite y Postgres migran si flags.migrate.
func StoreConfig(cfg *config.Config) store.Config {
	sc := store.Config{
		Driver:      cfg.Storage.Driver,
		DSN:         cfg.Storage.DSN,
		AutoMigrate: cfg.Flags.Migrate,
	}
	sc.Postgres.MaxOpenConns = cfg.Storage.Postgres.MaxOpenConns
	sc.Postgres.MaxIdleConns = cfg.Storage.Postgres.MaxIdleConns
	sc.Postgres.ConnMaxLifetime = cfg.ConnMaxLifetime()
	return sc
}

func clientsFromConfig(cfg *config.Config) []oauth.Client {
	out := make([]oauth.Client, 0, len(cfg.Clients))
	for _, c := range cfg.Clients {
		out = append(out, oauth.Client{
			ID:              c.ID,
			Secret:          c.Secret,
			GrantTypes:      c.GrantTypes,
			Scopes:          c.Scopes,
			RedirectURIs:    c.RedirectURIs,
			AutoApprove:     c.AutoApprove,
			AccessTokenTTL:  c.AccessTTL(),
			RefreshTokenTTL: c.RefreshTTL(),
		})
	}
	return out
}

func passwordPolicy(cfg *config.Config) password.Policy {
	p := cfg.Auth.PasswordPolicy
	return password.Policy{
		MinLength:     p.MinLength,
		RequireUpper:  p.RequireUpper,
		RequireLower:  p.RequireLower,
		RequireDigit:  p.RequireDigit,
		RequireSymbol: p.RequireSymbol,
	}
}

// newLimiter: con cache redis comparte la conexión; si no, limiter en memoria.
func newLimiter(cfg *config.Config, cc cache.Client) rate.Limiter {
	if !cfg.Rate.Enabled {
		return nil
	}
	if r, ok := cc.(interface{ Raw() *redis.Client }); ok {
		return rate.NewRedisLimiter(r.Raw(), cfg.Cache.Redis.Prefix+":rl", cfg.Rate.MaxRequests, cfg.RateWindow())
	}
	return rate.NewMemoryLimiter(cfg.Rate.MaxRequests, cfg.RateWindow())
}
