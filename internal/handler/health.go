// Package handler implements the daemon's diagnostics endpoints.
package handler

import (
	"net/http"

	"github.com/nikhil-31/rapidconsult-sub000/internal/socket"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	notifier *socket.Notifier
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(notifier *socket.Notifier) *HealthHandler {
	return &HealthHandler{notifier: notifier}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.notifier == nil || h.notifier.Status() != socket.StatusOpen {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "notification channel not open",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
