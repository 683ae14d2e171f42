package dto

import "time"

type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse es la respuesta de /readyz. Status: ready | degraded | unavailable.
type HealthResponse struct {
	Status     string                  `json:"status"`
	Components map[string]HealthStatus `json:"components"`
	Timestamp  time.Time               `json:"timestamp"`
	Version    string                  `json:"version,omitempty"`
}
