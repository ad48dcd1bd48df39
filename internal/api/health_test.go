package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/fairlend/advisor/internal/session"
)

// downRepo fails its connectivity check.
type downRepo struct{ memoryRepo }

func (r *downRepo) Ping(ctx context.Context) error {
	return errors.New("connection refused")
}

func TestReadyEndpoint(t *testing.T) {
	sessions := session.NewStore()
	sessions.Create("web")

	r := chi.NewRouter()
	NewHealthHandler(&memoryRepo{}, sessions).RegisterHealth(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health/ready")
	if err != nil {
		t.Fatalf("GET /health/ready: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["active_sessions"] != 1.0 {
		t.Errorf("active_sessions = %v, want 1", body["active_sessions"])
	}
}

func TestReadyEndpoint_DatabaseDown(t *testing.T) {
	r := chi.NewRouter()
	NewHealthHandler(&downRepo{}, session.NewStore()).RegisterHealth(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health/ready")
	if err != nil {
		t.Fatalf("GET /health/ready: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", resp.StatusCode)
	}
}
