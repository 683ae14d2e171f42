package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Valores por defecto del cliente authorization-code que se crea si el YAML no declara ninguno.
const (
	DefaultClientID          = "imsauth-web"
	DefaultClientSecret      = "secret"
	DefaultClientRedirectURI = "http://localhost:3000/oauth_callback"
	DefaultSigningKey        = "secret"
	DefaultResetPassword     = "password"
)

type ClientConfig struct {
	ID           string   `yaml:"id"`
	Secret       string   `yaml:"secret"`
	GrantTypes   []string `yaml:"grant_types"`
	Scopes       []string `yaml:"scopes"`
	RedirectURIs []string `yaml:"redirect_uris"`
	AutoApprove  bool     `yaml:"auto_approve"`
	// TTLs propios del cliente; vacío = los de jwt.
	AccessTokenTTL  string `yaml:"access_token_ttl"`
	RefreshTokenTTL string `yaml:"refresh_token_ttl"`
}

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | test | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
		ShutdownTimeout    string   `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Storage struct {
		Driver   string `yaml:"driver"` // memory | sqlite | postgres
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MaxIdleConns    int    `yaml:"max_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	JWT struct {
		Issuer      string `yaml:"issuer"`
		Alg         string `yaml:"alg"` // HS256 | EdDSA
		SigningKey  string `yaml:"signing_key"`
		Ed25519Seed string `yaml:"ed25519_seed"` // base64 (32 bytes)
		KID         string `yaml:"kid"`
		AccessTTL   string `yaml:"access_ttl"`
		RefreshTTL  string `yaml:"refresh_ttl"`
		AuthCodeTTL string `yaml:"auth_code_ttl"`
	} `yaml:"jwt"`

	Clients []ClientConfig `yaml:"clients"`

	Auth struct {
		ProtectUsersAPI      bool   `yaml:"protect_users_api"`
		DefaultResetPassword string `yaml:"default_reset_password"`
		BcryptCost           int    `yaml:"bcrypt_cost"`
		PasswordPolicy       struct {
			MinLength     int  `yaml:"min_length"`
			RequireUpper  bool `yaml:"require_upper"`
			RequireLower  bool `yaml:"require_lower"`
			RequireDigit  bool `yaml:"require_digit"`
			RequireSymbol bool `yaml:"require_symbol"`
		} `yaml:"password_policy"`
	} `yaml:"auth"`

	Rate struct {
		Enabled     bool   `yaml:"enabled"`
		Window      string `yaml:"window"`
		MaxRequests int    `yaml:"max_requests"`
	} `yaml:"rate"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // console | json; vacío = según app_env
	} `yaml:"log"`

	Flags struct {
		Migrate bool `yaml:"migrate"`
	} `yaml:"flags"`
}

// Load lee el YAML en path (vacío = solo defaults + env), aplica defaults,
// overrides por env y valida.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default devuelve la config sin YAML ni env. Útil en tests.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	// CORS abierto a cualquier origen salvo que se restrinja
	if c.Server.CORSAllowedOrigins == nil {
		c.Server.CORSAllowedOrigins = []string{"*"}
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "imsauth"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "imsauth"
	}
	if c.JWT.Alg == "" {
		c.JWT.Alg = "HS256"
	}
	if c.JWT.SigningKey == "" && c.JWT.Ed25519Seed == "" {
		c.JWT.SigningKey = DefaultSigningKey
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "1h"
	}
	if c.JWT.RefreshTTL == "" {
		c.JWT.RefreshTTL = "720h" // 30d
	}
	if c.JWT.AuthCodeTTL == "" {
		c.JWT.AuthCodeTTL = "10m"
	}
	if len(c.Clients) == 0 {
		c.Clients = []ClientConfig{{
			ID:           DefaultClientID,
			Secret:       DefaultClientSecret,
			GrantTypes:   []string{"authorization_code", "refresh_token"},
			Scopes:       []string{"read"},
			RedirectURIs: []string{DefaultClientRedirectURI},
			AutoApprove:  true,
		}}
	}
	if c.Auth.DefaultResetPassword == "" {
		c.Auth.DefaultResetPassword = DefaultResetPassword
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = 10
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 60
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		if strings.TrimSpace(s) == "" {
			return []string{}, true
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_IDLE_CONNS"); ok {
		c.Storage.Postgres.MaxIdleConns = v
	}
	if v, ok := getEnvStr("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// JWT
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("JWT_ALG"); ok {
		c.JWT.Alg = v
	}
	if v, ok := getEnvStr("JWT_SIGNING_KEY"); ok {
		c.JWT.SigningKey = v
	}
	if v, ok := getEnvStr("JWT_ED25519_SEED"); ok {
		c.JWT.Ed25519Seed = v
	}
	if v, ok := getEnvStr("JWT_KID"); ok {
		c.JWT.KID = v
	}
	if v, ok := getEnvStr("JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = v
	}
	if v, ok := getEnvStr("JWT_REFRESH_TTL"); ok {
		c.JWT.RefreshTTL = v
	}
	if v, ok := getEnvStr("JWT_AUTH_CODE_TTL"); ok {
		c.JWT.AuthCodeTTL = v
	}

	// CLIENT: pisa id/secret del primer cliente
	if v, ok := getEnvStr("CLIENT_AUTHCODE_ID"); ok && len(c.Clients) > 0 {
		c.Clients[0].ID = v
	}
	if v, ok := getEnvStr("CLIENT_AUTHCODE_SECRET"); ok && len(c.Clients) > 0 {
		c.Clients[0].Secret = v
	}

	// AUTH
	if v, ok := getEnvBool("AUTH_PROTECT_USERS_API"); ok {
		c.Auth.ProtectUsersAPI = v
	}
	if v, ok := getEnvStr("AUTH_DEFAULT_RESET_PASSWORD"); ok {
		c.Auth.DefaultResetPassword = v
	}
	if v, ok := getEnvInt("AUTH_BCRYPT_COST"); ok {
		c.Auth.BcryptCost = v
	}
	if v, ok := getEnvInt("SECURITY_PASSWORD_POLICY_MIN_LENGTH"); ok {
		c.Auth.PasswordPolicy.MinLength = v
	}
	if v, ok := getEnvBool("SECURITY_PASSWORD_POLICY_REQUIRE_UPPER"); ok {
		c.Auth.PasswordPolicy.RequireUpper = v
	}
	if v, ok := getEnvBool("SECURITY_PASSWORD_POLICY_REQUIRE_LOWER"); ok {
		c.Auth.PasswordPolicy.RequireLower = v
	}
	if v, ok := getEnvBool("SECURITY_PASSWORD_POLICY_REQUIRE_DIGIT"); ok {
		c.Auth.PasswordPolicy.RequireDigit = v
	}
	if v, ok := getEnvBool("SECURITY_PASSWORD_POLICY_REQUIRE_SYMBOL"); ok {
		c.Auth.PasswordPolicy.RequireSymbol = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvStr("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvInt("RATE_MAX_REQUESTS"); ok {
		c.Rate.MaxRequests = v
	}

	// LOG
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_FORMAT"); ok {
		c.Log.Format = strings.ToLower(v)
	}

	// FLAGS
	if v, ok := getEnvBool("FLAGS_MIGRATE"); ok {
		c.Flags.Migrate = v
	}
}

// Validate revisa drivers, duraciones y clientes.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Storage.Driver) {
	case "memory", "mem", "sqlite", "sqlite3":
	case "postgres", "pg", "postgresql":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, errors.New("storage.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unsupported %q", c.Storage.Driver))
	}

	switch strings.ToLower(c.Cache.Kind) {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.kind: unsupported %q", c.Cache.Kind))
	}

	switch c.JWT.Alg {
	case "HS256":
		if c.JWT.SigningKey == "" {
			errs = append(errs, errors.New("jwt.signing_key is required for HS256"))
		}
	case "EdDSA":
		if c.JWT.Ed25519Seed == "" && !c.IsDev() {
			errs = append(errs, errors.New("jwt.ed25519_seed is required for EdDSA outside dev"))
		}
	default:
		errs = append(errs, fmt.Errorf("jwt.alg: unsupported %q", c.JWT.Alg))
	}

	switch c.Log.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unsupported %q", c.Log.Format))
	}

	durations := map[string]string{
		"server.shutdown_timeout":            c.Server.ShutdownTimeout,
		"storage.postgres.conn_max_lifetime": c.Storage.Postgres.ConnMaxLifetime,
		"jwt.access_ttl":                     c.JWT.AccessTTL,
		"jwt.refresh_ttl":                    c.JWT.RefreshTTL,
		"jwt.auth_code_ttl":                  c.JWT.AuthCodeTTL,
		"rate.window":                        c.Rate.Window,
	}
	for i, cl := range c.Clients {
		durations[fmt.Sprintf("clients[%d].access_token_ttl", i)] = cl.AccessTokenTTL
		durations[fmt.Sprintf("clients[%d].refresh_token_ttl", i)] = cl.RefreshTokenTTL
	}
	for key, v := range durations {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	seen := map[string]bool{}
	for i, cl := range c.Clients {
		if strings.TrimSpace(cl.ID) == "" {
			errs = append(errs, fmt.Errorf("clients[%d].id is required", i))
			continue
		}
		if seen[cl.ID] {
			errs = append(errs, fmt.Errorf("clients[%d]: duplicated id %q", i, cl.ID))
		}
		seen[cl.ID] = true
	}

	if c.Rate.Enabled && c.Rate.MaxRequests <= 0 {
		errs = append(errs, errors.New("rate.max_requests must be > 0"))
	}

	return errors.Join(errs...)
}

// IsDev: dev o vacío.
func (c *Config) IsDev() bool {
	e := strings.ToLower(c.App.Env)
	return e == "" || e == "dev" || e == "development"
}

// Duraciones ya validadas; un valor vacío o inválido devuelve 0.

func (c *Config) AccessTTL() time.Duration   { return parseDur(c.JWT.AccessTTL) }
func (c *Config) RefreshTTL() time.Duration  { return parseDur(c.JWT.RefreshTTL) }
func (c *Config) AuthCodeTTL() time.Duration { return parseDur(c.JWT.AuthCodeTTL) }
func (c *Config) RateWindow() time.Duration  { return parseDur(c.Rate.Window) }
func (c *Config) ShutdownTimeout() time.Duration {
	return parseDur(c.Server.ShutdownTimeout)
}
func (c *Config) ConnMaxLifetime() time.Duration {
	return parseDur(c.Storage.Postgres.ConnMaxLifetime)
}

func (cl ClientConfig) AccessTTL() time.Duration  { return parseDur(cl.AccessTokenTTL) }
func (cl ClientConfig) RefreshTTL() time.Duration { return parseDur(cl.RefreshTokenTTL) }

func parseDur(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
