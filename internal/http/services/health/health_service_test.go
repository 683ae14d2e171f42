package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ok(context.Context) error   { return nil }
func fail(context.Context) error { return errors.New("down") }

func TestCheck_Statuses(t *testing.T) {
	ctx := context.Background()

	r := NewHealthService(Deps{Critical: map[string]Check{"store": ok}, Optional: map[string]Check{"cache": ok}}).Check(ctx)
	assert.Equal(t, "ready", r.Status)
	assert.Equal(t, "ok", r.Components["store"].Status)

	r = NewHealthService(Deps{Critical: map[string]Check{"store": ok}, Optional: map[string]Check{"cache": fail}}).Check(ctx)
	assert.Equal(t, "degraded", r.Status)
	assert.Equal(t, "error", r.Components["cache"].Status)

	r = NewHealthService(Deps{Critical: map[string]Check{"store": fail}, Optional: map[string]Check{"cache": fail}}).Check(ctx)
	assert.Equal(t, "unavailable", r.Status)
}
