package api

import (
	"net/http"
	"time"

	respond "github.com/intraylabs/intray/internal/api/respond"
)

// HealthStatus is the aggregate dependency health the handler reports.
// Satisfied by *health.ServiceHealthChecker.
type HealthStatus interface {
	IsHealthy() bool
	Unhealthy() []string
}

// HealthHandler handles the health check endpoint.
type HealthHandler struct {
	status    HealthStatus
	aiEnabled bool
}

func NewHealthHandler(status HealthStatus, aiEnabled bool) *HealthHandler {
	return &HealthHandler{status: status, aiEnabled: aiEnabled}
}

// CheckHealth GET /v0/health
// Always returns 200; the body reports healthy/unhealthy. 500 indicates
// handler failure only.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	healthy := h.status == nil || h.status.IsHealthy()
	status := "unhealthy"
	if healthy {
		status = "healthy"
	}
	response := map[string]interface{}{
		"status":    status,
		"aiEnabled": h.aiEnabled,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if !healthy {
		response["failing"] = h.status.Unhealthy()
	}
	respond.WriteJSON(w, http.StatusOK, response)
}
