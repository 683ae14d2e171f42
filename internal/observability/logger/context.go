package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ToContext guarda l en ctx. Los handlers lo recuperan con From.
func ToContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From devuelve el logger del request o, si no hay, el global.
func From(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return L()
}

// Scope deriva un logger con fields a partir del de ctx y lo deja en el
// contexto devuelto, para que las capas de abajo lo hereden.
func Scope(ctx context.Context, fields ...zap.Field) (context.Context, *zap.Logger) {
	l := From(ctx).With(fields...)
	return ToContext(ctx, l), l
}
