package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/shopcore/shopcore/internal/response"
)

// Pinger defines an interface for checking service health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusHandler reports service and dependency health.
type StatusHandler struct {
	db    Pinger
	cache Pinger
}

// NewStatusHandler creates a new StatusHandler.
// Pass nil for db or cache if they are not yet initialized.
func NewStatusHandler(db, cache Pinger) *StatusHandler {
	return &StatusHandler{
		db:    db,
		cache: cache,
	}
}

// Status reports liveness plus per-dependency checks.
//
// GET /status/
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	healthy := true

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			checks["postgres"] = "error: " + err.Error()
			healthy = false
		} else {
			checks["postgres"] = "ok"
		}
	} else {
		checks["postgres"] = "not configured"
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["redis"] = "error: " + err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	} else {
		checks["redis"] = "not configured"
	}

	if !healthy {
		response.Write(w, response.ServiceUnavailable("a dependency check failed").
			With("checks", checks))
		return
	}

	response.Write(w, response.Success("API service is up and running.").
		With("checks", checks))
}
