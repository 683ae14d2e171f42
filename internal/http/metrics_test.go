package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	iopc "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metricsHandler(t *testing.T) http.Handler {
	t.Helper()
	h, err := RegisterMetrics(MetricsConfig{Registry: prometheus.NewRegistry()})
	require.NoError(t, err)
	return h
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m iopc.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/":                                 "/",
		"/users/password-reset/42":          "/users/password-reset/:param",
		"/users/all?x=1":                    "/users/all",
		"/oauth/0123456789abcdef0123":       "/oauth/:param",
		"/a/" + strings.Repeat("x", 60):     "/a/:param",
		"/users/password-change/bob":        "/users/password-change/bob",
		"/x/AbCdEfGhIjKlMnOpQrStUvWxYz_123": "/x/:param",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizePath(in), in)
	}
}

func TestWithMetrics_UsesRoutePattern(t *testing.T) {
	metricsHandler(t)

	r := chi.NewRouter()
	r.Use(WithMetrics)
	r.Post("/users/password-reset/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	before := counterValue(t, httpRequestsTotal.WithLabelValues("POST", "/users/password-reset/{id}", "200"))
	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/password-reset/"+id, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	after := counterValue(t, httpRequestsTotal.WithLabelValues("POST", "/users/password-reset/{id}", "200"))
	assert.Equal(t, 3.0, after-before)
}

func TestRecorders(t *testing.T) {
	metricsHandler(t)

	before := counterValue(t, oauthTokensIssued.WithLabelValues("authorization_code"))
	RecordTokenIssued("authorization_code")
	assert.Equal(t, 1.0, counterValue(t, oauthTokensIssued.WithLabelValues("authorization_code"))-before)

	before = counterValue(t, oauthGrantFailures.WithLabelValues("refresh_token", "invalid_grant"))
	RecordGrantFailure("refresh_token", "invalid_grant")
	assert.Equal(t, 1.0, counterValue(t, oauthGrantFailures.WithLabelValues("refresh_token", "invalid_grant"))-before)

	before = counterValue(t, oauthCodesIssued)
	RecordCodeIssued()
	assert.Equal(t, 1.0, counterValue(t, oauthCodesIssued)-before)
}

func TestMetricsHandler_Serves(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := RegisterMetrics(MetricsConfig{Registry: reg})
	require.NoError(t, err)

	// collector propio para que el registry no esté vacío
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "imsauth_test_total", Help: "test"})
	require.NoError(t, reg.Register(c))
	c.Inc()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "imsauth_test_total 1")
}
