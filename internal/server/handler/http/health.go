package http

import (
	"net/http"

	"github.com/akoreshkov/keybox/internal/response"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping() error
}

// HealthHandler answers liveness checks against the backing store.
type HealthHandler struct {
	DB Pinger
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.Ping(); err != nil {
		response.Write(w, response.StatusUnknownError, struct{}{})
		return
	}
	response.WriteSuccess(w, map[string]string{"status": "ok"})
}
