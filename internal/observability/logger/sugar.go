package logger

import "go.uber.org/zap"

// S retorna el SugaredLogger del singleton, para logs clave/valor rápidos
// desde la CLI:
//
//	logger.S().Infow("schema migrated", "action", "up")
func S() *zap.SugaredLogger {
	return L().Sugar()
}
