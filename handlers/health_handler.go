package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db           Pinger
	rateCacheTag string
}

// NewHealthHandler reports database reachability and which rate cache is in use.
func NewHealthHandler(db Pinger, rateCacheTag string) *HealthHandler {
	return &HealthHandler{db: db, rateCacheTag: rateCacheTag}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		errorResponse(w, r, http.StatusServiceUnavailable, jsonResponse{
			"database":   "unreachable",
			"rate_cache": h.rateCacheTag,
		})
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{
		"database":   "ok",
		"rate_cache": h.rateCacheTag,
	})
}
