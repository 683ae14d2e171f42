package logger

import (
	"errors"
	"os"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config del logger global. Se llena desde las secciones app y log de la config.
type Config struct {
	// Env: dev | test | prod. En test se descarta todo.
	Env string
	// Level: debug, info, warn, error.
	Level string
	// Format: console | json. Vacío elige json en prod y console en el resto.
	Format string

	ServiceName string
	Version     string
}

func (c Config) format() string {
	f := strings.ToLower(strings.TrimSpace(c.Format))
	if f == "json" || f == "console" {
		return f
	}
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "prod", "production":
		return "json"
	}
	return "console"
}

func build(cfg Config) *zap.Logger {
	if strings.EqualFold(strings.TrimSpace(cfg.Env), "test") {
		return zap.NewNop()
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder

	var enc zapcore.Encoder
	if cfg.format() == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(parseLevel(cfg.Level)))
	l := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	if cfg.ServiceName != "" {
		l = l.With(zap.String("service", cfg.ServiceName))
	}
	if cfg.Version != "" {
		l = l.With(zap.String("version", cfg.Version))
	}
	return l
}

func parseLevel(lvl string) zapcore.Level {
	lvl = strings.ToLower(strings.TrimSpace(lvl))
	if lvl == "warning" {
		lvl = "warn"
	}
	l, err := zapcore.ParseLevel(lvl)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// stderr no soporta fsync en varias plataformas (EINVAL/ENOTTY).
func isIgnorableSyncErr(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EBADF)
}
