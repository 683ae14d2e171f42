package middlewares

import (
	"context"

	jwtx "github.com/dropDatabas3/imsauth/internal/jwt"
)

type ctxKey string

const (
	ctxClaimsKey    ctxKey = "claims"
	ctxRequestIDKey ctxKey = "request_id"
)

// WithClaims inyecta las claims del bearer token en el contexto.
func WithClaims(ctx context.Context, c *jwtx.Claims) context.Context {
	return context.WithValue(ctx, ctxClaimsKey, c)
}

// GetClaims devuelve nil si la ruta no pasó por RequireBearer.
func GetClaims(ctx context.Context) *jwtx.Claims {
	if c, ok := ctx.Value(ctxClaimsKey).(*jwtx.Claims); ok {
		return c
	}
	return nil
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetRequestID obtiene el request ID del contexto ("" si no hay).
func GetRequestID(ctx context.Context) string {
	if s, ok := ctx.Value(ctxRequestIDKey).(string); ok {
		return s
	}
	return ""
}
