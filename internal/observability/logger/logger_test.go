package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFrom_FallsBackToSingleton(t *testing.T) {
	assert.Same(t, L(), From(context.Background()))
	//nolint:staticcheck
	assert.Same(t, L(), From(nil))
}

func TestToContext_ScopedFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).With(RequestID("r-1")))

	ctx, scoped := Scope(ctx, Layer("service"))
	assert.Same(t, scoped, From(ctx))
	scoped.Info("code issued",
		ClientID("web"), State("code_issued"), UserID(7), Scopes([]string{"read"}))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "r-1", fields["request_id"])
	assert.Equal(t, "service", fields["layer"])
	assert.Equal(t, "web", fields["client_id"])
	assert.Equal(t, "code_issued", fields["state"])
	assert.Equal(t, int64(7), fields["user_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel(" DEBUG "))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

func TestConfig_Format(t *testing.T) {
	assert.Equal(t, "json", Config{Env: "prod"}.format())
	assert.Equal(t, "console", Config{Env: "dev"}.format())
	assert.Equal(t, "json", Config{Env: "dev", Format: "JSON"}.format())
	assert.Equal(t, "console", Config{Env: "prod", Format: "console"}.format())
	assert.Equal(t, "console", Config{}.format())
}

func TestBuild_Envs(t *testing.T) {
	assert.NotNil(t, build(Config{Env: "prod", Level: "info", ServiceName: "imsauth"}))
	assert.NotNil(t, build(Config{Env: "dev"}))

	l := build(Config{Env: "test"})
	assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))
}
