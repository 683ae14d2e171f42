package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dto "github.com/dropDatabas3/imsauth/internal/http/dto"
	svc "github.com/dropDatabas3/imsauth/internal/http/services/health"
)

func readyz(t *testing.T, deps svc.Deps) (*httptest.ResponseRecorder, dto.HealthResponse) {
	t.Helper()
	c := NewHealthController(svc.NewHealthService(deps))
	rec := httptest.NewRecorder()
	c.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var body dto.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestReadyz_UnavailableKeepsComponents(t *testing.T) {
	down := func(context.Context) error { return errors.New("dial tcp: refused") }
	rec, body := readyz(t, svc.Deps{Critical: map[string]svc.Check{"store": down}})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, dto.HealthStatus{Status: "error", Message: "unavailable"}, body.Components["store"])
	assert.NotContains(t, rec.Body.String(), "refused")
}

func TestReadyz_DegradedIsOK(t *testing.T) {
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("redis down") }
	rec, body := readyz(t, svc.Deps{
		Critical: map[string]svc.Check{"store": up},
		Optional: map[string]svc.Check{"cache": down},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "ok", body.Components["store"].Status)
}
