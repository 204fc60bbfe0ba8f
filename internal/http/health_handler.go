package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves GET /healthz.
type HealthHandler struct {
	database  Pinger
	cache     Pinger
	timeout   time.Duration
	responder responder
	logger    *slog.Logger
}

// NewHealthHandler builds a liveness handler. cache may be nil when Redis is disabled.
func NewHealthHandler(database, cache Pinger, logger *slog.Logger) *HealthHandler {
	base := defaultLogger(logger)
	return &HealthHandler{
		database:  database,
		cache:     cache,
		timeout:   2 * time.Second,
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.database == nil {
		serviceUnavailable(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := healthDTO{Database: "ok", Cache: "disabled"}
	healthy := true
	if err := h.database.Ping(ctx); err != nil {
		handlerLogger(r.Context(), h.logger, "HealthHandler", "Healthz").ErrorContext(r.Context(), "database ping failed", "error", err)
		status.Database = "unavailable"
		healthy = false
	}
	if h.cache != nil {
		status.Cache = "ok"
		// The cache is optional; a failed ping degrades but does not fail liveness.
		if err := h.cache.Ping(ctx); err != nil {
			handlerLogger(r.Context(), h.logger, "HealthHandler", "Healthz").WarnContext(r.Context(), "cache ping failed", "error", err)
			status.Cache = "unavailable"
		}
	}

	if !healthy {
		h.responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, envelope{Success: false, Message: "service unavailable", Data: status})
		return
	}
	h.responder.success(r.Context(), w, http.StatusOK, "ok", status)
}

type healthDTO struct {
	Database string `json:"database"`
	Cache    string `json:"cache"`
}
