package logger

import "go.uber.org/zap"

// Campos del request HTTP (los pone el middleware de logging).

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field { return zap.String("method", v) }
func Path(v string) zap.Field { return zap.String("path", v) }
func Status(v int) zap.Field { return zap.Int("status", v) }
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }
func Bytes(v int) zap.Field { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

// Campos de OAuth y del credential store.

func UserID(v int64) zap.Field { return zap.Int64("user_id", v) }

// Username nunca va acompañado del password.
func Username(v string) zap.Field { return zap.String("username", v) }
func ClientID(v string) zap.Field { return zap.String("client_id", v) }
func GrantType(v string) zap.Field { return zap.String("grant_type", v) }

// State es el paso del flujo authorization-code:
// request_received, client_validated, user_authenticated, code_issued, exchanged, expired.
func State(v string) zap.Field { return zap.String("state", v) }
func Scopes(v []string) zap.Field { return zap.Strings("scopes", v) }
func JTI(v string) zap.Field { return zap.String("jti", v) }
func Role(v string) zap.Field { return zap.String("role", v) }

// Ubicación en el código: layer (controller, service, oauth, store), op y component.

func Layer(v string) zap.Field { return zap.String("layer", v) }
func Op(v string) zap.Field { return zap.String("op", v) }
func Component(v string) zap.Field { return zap.String("component", v) }
func Err(err error) zap.Field { return zap.Error(err) }

// Genéricos.

func Count(v int) zap.Field { return zap.Int("count", v) }
func String(key, v string) zap.Field { return zap.String(key, v) }
func Int(key string, v int) zap.Field { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
