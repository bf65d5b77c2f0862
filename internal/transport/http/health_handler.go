package http

import (
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/render"
)

// SessionCounter reports the number of live sessions for health output.
type SessionCounter interface {
	Count() int
}

// HealthHandler serves liveness and version endpoints.
type HealthHandler struct {
	logger    *slog.Logger
	version   string
	startedAt time.Time
	sessions  SessionCounter
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(logger *slog.Logger, version string, sessions SessionCounter) *HealthHandler {
	return &HealthHandler{
		logger:    logger.With(slog.String("handler", "health")),
		version:   version,
		startedAt: time.Now().UTC(),
		sessions:  sessions,
	}
}

// HealthCheck handles GET /healthz.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":     "ok",
		"version":    h.version,
		"uptime":     time.Since(h.startedAt).String(),
		"goroutines": runtime.NumGoroutine(),
	}
	if h.sessions != nil {
		resp["active_sessions"] = h.sessions.Count()
	}
	render.JSON(w, r, resp)
}

// Version handles GET /api/version.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"version": h.version})
}
