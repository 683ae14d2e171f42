package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.RWMutex
	global *zap.Logger
)

// Init arma el logger global. Solo la primera llamada lo configura; la CLI
// la hace en PersistentPreRunE con los valores de config.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		global = build(cfg)
	}
}

// L devuelve el logger global (consola, info si nadie llamó a Init).
func L() *zap.Logger {
	mu.RLock()
	l := global
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(Config{Level: "info"})
	return L()
}

// Sync vacía buffers. Los errores de sync sobre stderr/tty se ignoran.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if global == nil {
		return nil
	}
	if err := global.Sync(); err != nil && !isIgnorableSyncErr(err) {
		return err
	}
	return nil
}
