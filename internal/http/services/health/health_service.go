// Package health contiene el service para health checks.
package health

import (
	"context"
	"os"
	"time"

	dto "github.com/dropDatabas3/imsauth/internal/http/dto"
	"github.com/dropDatabas3/imsauth/internal/observability/logger"
)

// HealthService define las operaciones de health check.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// Check es una sonda de un componente.
type Check func(ctx context.Context) error

// Deps: Critical tumba el servicio (unavailable), Optional solo lo degrada.
type Deps struct {
	Critical map[string]Check
	Optional map[string]Check
	Timeout  time.Duration
}

type healthService struct {
	deps Deps
}

func NewHealthService(deps Deps) HealthService {
	if deps.Timeout <= 0 {
		deps.Timeout = 2 * time.Second
	}
	return &healthService{deps: deps}
}

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("health"), logger.Op("Check"))

	resp := dto.HealthResponse{
		Status:     "ready",
		Components: make(map[string]dto.HealthStatus),
		Timestamp:  time.Now().UTC(),
		Version:    os.Getenv("SERVICE_VERSION"),
	}

	run := func(name string, c Check) bool {
		cctx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
		defer cancel()
		if err := c(cctx); err != nil {
			resp.Components[name] = dto.HealthStatus{Status: "error", Message: "unavailable"}
			log.Error("component unavailable", logger.Component(name), logger.Err(err))
			return false
		}
		resp.Components[name] = dto.HealthStatus{Status: "ok"}
		return true
	}

	for name, c := range s.deps.Critical {
		if !run(name, c) {
			resp.Status = "unavailable"
		}
	}
	for name, c := range s.deps.Optional {
		if !run(name, c) && resp.Status == "ready" {
			resp.Status = "degraded"
		}
	}
	return resp
}
