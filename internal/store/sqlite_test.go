package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fairlend/advisor/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "advisor.db"))
	if err != nil {
		t.Fatalf("NewSQLite() error: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo.(*SQLiteStore)
}

func TestCreateBorrower(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := &domain.Borrower{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@x.com",
		Phone:     "5550100100",
	}
	id, err := s.CreateBorrower(ctx, b)
	if err != nil {
		t.Fatalf("CreateBorrower() error: %v", err)
	}
	if !strings.HasPrefix(id, "bor_") {
		t.Errorf("Borrower id = %q, want bor_ prefix", id)
	}
	if b.ID != id || b.CreatedAt.IsZero() {
		t.Error("Expected id and timestamps to be set on the record")
	}

	var email, phone string
	row := s.db.QueryRow(`SELECT email, phone FROM borrowers WHERE id = ?`, id)
	if err := row.Scan(&email, &phone); err != nil {
		t.Fatalf("Scan borrower row: %v", err)
	}
	if email != "jane@x.com" || phone != "5550100100" {
		t.Errorf("Stored borrower = (%q, %q), want (jane@x.com, 5550100100)", email, phone)
	}
}

func TestCreateApplication(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	borrowerID, err := s.CreateBorrower(ctx, &domain.Borrower{
		FirstName: "Jane", Email: "jane@x.com", Phone: "5550100100",
	})
	if err != nil {
		t.Fatalf("CreateBorrower() error: %v", err)
	}
	propertyID, err := s.CreateProperty(ctx, &domain.Property{
		Type: "single_family", Address: "12 Oak Street",
	})
	if err != nil {
		t.Fatalf("CreateProperty() error: %v", err)
	}

	app := &domain.Application{
		BorrowerID:  borrowerID,
		PropertyID:  propertyID,
		LoanPurpose: "purchase",
		LoanAmount:  300000,
		DownPayment: 60000,
	}
	id, err := s.CreateApplication(ctx, app)
	if err != nil {
		t.Fatalf("CreateApplication() error: %v", err)
	}
	if !strings.HasPrefix(id, "app_") {
		t.Errorf("Application id = %q, want app_ prefix", id)
	}
	if app.Status != "started" {
		t.Errorf("Default status = %q, want started", app.Status)
	}

	var gotBorrower, gotStatus string
	var gotAmount float64
	row := s.db.QueryRow(`SELECT borrower_id, status, loan_amount FROM applications WHERE id = ?`, id)
	if err := row.Scan(&gotBorrower, &gotStatus, &gotAmount); err != nil {
		t.Fatalf("Scan application row: %v", err)
	}
	if gotBorrower != borrowerID || gotStatus != "started" || gotAmount != 300000 {
		t.Errorf("Stored application = (%q, %q, %v)", gotBorrower, gotStatus, gotAmount)
	}
}

func TestCreateApplication_WithoutProperty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	borrowerID, err := s.CreateBorrower(ctx, &domain.Borrower{
		FirstName: "Jane", Email: "jane@x.com", Phone: "5550100100",
	})
	if err != nil {
		t.Fatalf("CreateBorrower() error: %v", err)
	}

	id, err := s.CreateApplication(ctx, &domain.Application{
		BorrowerID:  borrowerID,
		LoanPurpose: "refinance",
		LoanAmount:  200000,
	})
	if err != nil {
		t.Fatalf("CreateApplication() error: %v", err)
	}

	var propertyID any
	row := s.db.QueryRow(`SELECT property_id FROM applications WHERE id = ?`, id)
	if err := row.Scan(&propertyID); err != nil {
		t.Fatalf("Scan application row: %v", err)
	}
	if propertyID != nil {
		t.Errorf("property_id = %v, want NULL", propertyID)
	}
}

func TestSaveSessionSummary_Upsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	started := time.Now().Add(-20 * time.Minute)

	sum := &domain.SessionSummary{
		SessionID:    "sess_abc",
		Channel:      domain.ChannelWeb,
		FinalStage:   domain.StageQualification,
		MessageCount: 6,
		StartedAt:    started,
		EndedAt:      time.Now(),
	}
	if err := s.SaveSessionSummary(ctx, sum); err != nil {
		t.Fatalf("SaveSessionSummary() error: %v", err)
	}

	// A second save for the same session overwrites, not duplicates.
	sum.FinalStage = domain.StageApplication
	sum.MessageCount = 14
	sum.ApplicationRef = "app_xyz"
	if err := s.SaveSessionSummary(ctx, sum); err != nil {
		t.Fatalf("SaveSessionSummary() upsert error: %v", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM session_summaries`).Scan(&count); err != nil {
		t.Fatalf("Count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("Row count = %d, want 1", count)
	}

	var stage, ref string
	var messages int
	row := s.db.QueryRow(`SELECT final_stage, application_ref, message_count FROM session_summaries WHERE session_id = ?`, "sess_abc")
	if err := row.Scan(&stage, &ref, &messages); err != nil {
		t.Fatalf("Scan summary row: %v", err)
	}
	if stage != string(domain.StageApplication) || ref != "app_xyz" || messages != 14 {
		t.Errorf("Stored summary = (%q, %q, %d)", stage, ref, messages)
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
}
