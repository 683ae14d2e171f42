package http

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/dropDatabas3/imsauth/internal/http/middlewares"
)

var (
	metricsOnce sync.Once
	metricsErr  error

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec

	// OAuth metrics
	oauthTokensIssued   *prometheus.CounterVec
	oauthGrantFailures  *prometheus.CounterVec
	oauthCodesIssued    prometheus.Counter
	rateLimitRejections *prometheus.CounterVec
)

// MetricsConfig agrupa dependencias necesarias para exponer /metrics.
type MetricsConfig struct {
	Registry prometheus.Registerer
	// PGPool es opcional; solo se usa con storage postgres.
	PGPool func() *pgxpool.Pool
}

// RegisterMetrics inicializa las métricas HTTP/OAuth y, si hay pool de Postgres,
// registra un collector con sus estadísticas. Devuelve el handler para /metrics.
func RegisterMetrics(cfg MetricsConfig) (http.Handler, error) {
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	metricsOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		httpInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests en vuelo por método",
		}, []string{"method"})

		oauthTokensIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oauth_tokens_issued_total",
			Help: "Pares de tokens emitidos por grant",
		}, []string{"grant_type"})

		oauthGrantFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oauth_grant_failures_total",
			Help: "Grants rechazados por código de error OAuth2",
		}, []string{"grant_type", "error"})

		oauthCodesIssued = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oauth_authorization_codes_issued_total",
			Help: "Authorization codes emitidos",
		})

		rateLimitRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Requests rechazadas por rate limit",
		}, []string{"path"})

		for _, c := range []prometheus.Collector{
			httpRequestsTotal, httpRequestDuration, httpInflight,
			oauthTokensIssued, oauthGrantFailures, oauthCodesIssued, rateLimitRejections,
		} {
			if err := registerCollector(registry, c); err != nil {
				metricsErr = err
				return
			}
		}
	})
	if metricsErr != nil {
		return nil, metricsErr
	}

	if cfg.PGPool != nil {
		if err := registerCollector(registry, newDBPoolCollector(cfg.PGPool)); err != nil {
			return nil, err
		}
	}

	if g, ok := registry.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{}), nil
	}
	return promhttp.Handler(), nil
}

// WithMetrics instrumenta requests HTTP (contadores, latencia, inflight).
// El label path es el patrón chi de la ruta para acotar la cardinalidad.
func WithMetrics(next http.Handler) http.Handler {
	if httpRequestsTotal == nil || httpRequestDuration == nil || httpInflight == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.ToUpper(r.Method)
		httpInflight.WithLabelValues(method).Inc()
		start := time.Now()

		rec := mw.NewStatusRecorder(w)
		defer func() {
			httpInflight.WithLabelValues(method).Dec()
			pathLabel := routeLabel(r)
			httpRequestDuration.WithLabelValues(method, pathLabel).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(method, pathLabel, strconv.Itoa(rec.Status)).Inc()
		}()

		next.ServeHTTP(rec, r)
	})
}

func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return normalizePath(r.URL.Path)
}

// RecordTokenIssued registra un par emitido por /oauth/token.
func RecordTokenIssued(grantType string) {
	if oauthTokensIssued != nil {
		oauthTokensIssued.WithLabelValues(grantType).Inc()
	}
}

// RecordGrantFailure registra un grant rechazado con su código OAuth2.
func RecordGrantFailure(grantType, code string) {
	if oauthGrantFailures != nil {
		oauthGrantFailures.WithLabelValues(grantType, code).Inc()
	}
}

// RecordCodeIssued registra un authorization code emitido.
func RecordCodeIssued() {
	if oauthCodesIssued != nil {
		oauthCodesIssued.Inc()
	}
}

// RecordRateLimitReject se usa como OnReject del middleware de rate limit.
func RecordRateLimitReject(r *http.Request) {
	if rateLimitRejections != nil {
		rateLimitRejections.WithLabelValues(normalizePath(r.URL.Path)).Inc()
	}
}

// registerCollector registra el collector en el registry indicado, ignorando duplicados.
func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) error {
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// dbPoolCollector expone gauges del pool de Postgres.
type dbPoolCollector struct {
	pool func() *pgxpool.Pool

	acquiredDesc *prometheus.Desc
	idleDesc     *prometheus.Desc
	totalDesc    *prometheus.Desc
}

func newDBPoolCollector(pool func() *pgxpool.Pool) *dbPoolCollector {
	return &dbPoolCollector{
		pool:         pool,
		acquiredDesc: prometheus.NewDesc("pg_pool_acquired", "Conexiones adquiridas", nil, nil),
		idleDesc:     prometheus.NewDesc("pg_pool_idle", "Conexiones inactivas", nil, nil),
		totalDesc:    prometheus.NewDesc("pg_pool_total", "Conexiones totales", nil, nil),
	}
}

func (c *dbPoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredDesc
	ch <- c.idleDesc
	ch <- c.totalDesc
}

func (c *dbPoolCollector) Collect(ch chan<- prometheus.Metric) {
	pool := c.pool()
	if pool == nil {
		return
	}
	stat := pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquiredDesc, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, float64(stat.TotalConns()))
}

var (
	hexSegmentRE   = regexp.MustCompile(`^[0-9a-fA-F]{16,}$`)
	tokenSegmentRE = regexp.MustCompile(`^[A-Za-z0-9_-]{24,}$`)
)

func normalizePath(p string) string {
	clean := strings.SplitN(p, "?", 2)[0]
	var out []string
	for _, seg := range strings.Split(clean, "/") {
		if seg == "" {
			continue
		}
		if isDynamicSegment(seg) {
			out = append(out, ":param")
		} else {
			out = append(out, seg)
		}
	}
	if len(out) == 0 {
		return "/"
	}
	return "/" + strings.Join(out, "/")
}

func isDynamicSegment(seg string) bool {
	if len(seg) > 48 || hexSegmentRE.MatchString(seg) || tokenSegmentRE.MatchString(seg) {
		return true
	}
	_, err := strconv.Atoi(seg)
	return err == nil
}
