// Package health contiene el controller de /readyz.
package health

import (
	"net/http"

	"github.com/dropDatabas3/imsauth/internal/http/helpers"
	svc "github.com/dropDatabas3/imsauth/internal/http/services/health"
	"github.com/dropDatabas3/imsauth/internal/observability/logger"
)

type HealthController struct {
	service svc.HealthService
}

func NewHealthController(service svc.HealthService) *HealthController {
	return &HealthController{service: service}
}

// Readyz maneja GET /readyz: 503 si un componente crítico falla, 200 en ready/degraded.
// El 503 lleva el mismo cuerpo por componente, no el formato de error de la API.
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("HealthController.Readyz"))

	resp := c.service.Check(ctx)

	status := http.StatusOK
	if resp.Status == "unavailable" {
		status = http.StatusServiceUnavailable
	}
	log.Debug("health check completed", logger.String("status", resp.Status), logger.Count(len(resp.Components)))

	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, status, resp)
}
