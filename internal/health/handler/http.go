// Package handler serves liveness and readiness probes.
package handler

import (
	"context"
	"net/http"
	"time"

	"veo-auth-service/internal/server/respond"
)

// Pinger reports whether a dependency is reachable (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves GET /healthz.
type Handler struct {
	db Pinger
}

// NewHandler returns a health Handler. db may be nil to skip the DB probe.
func NewHandler(db Pinger) *Handler {
	return &Handler{db: db}
}

// Check reports overall health. The DB probe gets a short deadline so a hung
// database turns into a fast 503 instead of a stuck probe.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	status := http.StatusOK

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			body["status"] = "degraded"
			body["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			body["database"] = "ok"
		}
	}
	respond.JSON(w, status, body)
}
