// Package api provides HTTP handlers for the intake advisor API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fairlend/advisor/internal/advisor"
	"github.com/fairlend/advisor/internal/analytics"
	"github.com/fairlend/advisor/internal/domain"
	"github.com/fairlend/advisor/internal/underwriting"
	"github.com/fairlend/advisor/internal/verify"
)

// maxRequestBodySize bounds request bodies (1MB).
const maxRequestBodySize = 1 << 20

// Handler serves the conversational core's external interface.
type Handler struct {
	orch *advisor.Orchestrator
}

// NewHandler creates a new Handler.
func NewHandler(orch *advisor.Orchestrator) *Handler {
	return &Handler{orch: orch}
}

// RegisterRoutes mounts the API routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/sessions", h.startSession)
	r.Route("/api/sessions/{sessionID}", func(r chi.Router) {
		r.Post("/messages", h.processMessage)
		r.Post("/facts", h.applyFacts)
		r.Post("/documents", h.recordDocument)
		r.Get("/analytics", h.getAnalytics)
		r.Delete("/", h.endSession)
	})
	r.Post("/api/underwrite", h.underwrite)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// sessionError maps orchestrator errors to HTTP responses. An unknown
// session is surfaced as a fresh-greeting instruction.
func sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, advisor.ErrSessionNotFound):
		JSON(w, http.StatusNotFound, map[string]string{
			"error":  "session not found",
			"action": "start_new_session",
		})
	case errors.Is(err, advisor.ErrPersistence):
		JSON(w, http.StatusBadGateway, map[string]string{
			"error":  "application records could not be created",
			"action": "retry_next_turn",
		})
	default:
		Error(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channel domain.Channel `json:"channel"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.orch.StartSession(r.Context(), req.Channel)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	JSON(w, http.StatusCreated, res)
}

func (h *Handler) processMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var req struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Text == "" {
		Error(w, http.StatusBadRequest, "text is required")
		return
	}
	result, err := h.orch.ProcessMessage(r.Context(), sessionID, req.Text)
	if err != nil {
		sessionError(w, err)
		return
	}
	JSON(w, http.StatusOK, result)
}

func (h *Handler) applyFacts(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var bundle verify.Bundle
	if !decodeBody(w, r, &bundle) {
		return
	}
	candidates, err := bundle.Candidates()
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	stage, err := h.orch.ApplyFacts(r.Context(), sessionID, candidates)
	if err != nil {
		sessionError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"stage": stage, "applied": len(candidates)})
}

func (h *Handler) recordDocument(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var req struct {
		DocumentType string `json:"document_type"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	stage, err := h.orch.RecordDocument(r.Context(), sessionID, req.DocumentType)
	if err != nil {
		if errors.Is(err, advisor.ErrSessionNotFound) {
			sessionError(w, err)
			return
		}
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]any{"stage": stage})
}

func (h *Handler) getAnalytics(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	snap, err := h.orch.Sessions().Snapshot(sessionID)
	if err != nil {
		sessionError(w, err)
		return
	}
	JSON(w, http.StatusOK, analytics.BuildReport(snap))
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.orch.EndSession(r.Context(), sessionID); err != nil {
		sessionError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

func (h *Handler) underwrite(w http.ResponseWriter, r *http.Request) {
	var snap underwriting.Snapshot
	if !decodeBody(w, r, &snap) {
		return
	}
	decision, err := underwriting.Decide(snap)
	if err != nil {
		if errors.Is(err, underwriting.ErrInvalidInput) {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, decision)
}
