package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fairlend/advisor/internal/session"
	"github.com/fairlend/advisor/internal/store"
)

// HealthHandler serves readiness probes.
type HealthHandler struct {
	repo     store.Repository
	sessions *session.Store
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(repo store.Repository, sessions *session.Store) *HealthHandler {
	return &HealthHandler{repo: repo, sessions: sessions}
}

// RegisterHealth mounts the readiness route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health/ready", h.ready)
}

func (h *HealthHandler) ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := "ok"
	code := http.StatusOK
	if err := h.repo.Ping(ctx); err != nil {
		status = "database unreachable"
		code = http.StatusServiceUnavailable
	}

	JSON(w, code, map[string]any{
		"status":          status,
		"active_sessions": h.sessions.Len(),
		"time":            time.Now().UTC(),
	})
}
