package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fairlend/advisor/internal/domain"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS borrowers (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT,
		email TEXT NOT NULL,
		phone TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_borrowers_email ON borrowers(email);

	CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		address TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS applications (
		id TEXT PRIMARY KEY,
		borrower_id TEXT NOT NULL REFERENCES borrowers(id),
		property_id TEXT,
		loan_purpose TEXT NOT NULL,
		loan_amount REAL NOT NULL,
		down_payment REAL NOT NULL,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_applications_borrower ON applications(borrower_id);

	CREATE TABLE IF NOT EXISTS session_summaries (
		session_id TEXT PRIMARY KEY,
		channel TEXT NOT NULL,
		final_stage TEXT NOT NULL,
		message_count INTEGER NOT NULL,
		application_ref TEXT,
		started_at INTEGER NOT NULL,
		ended_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_session_summaries_ended ON session_summaries(ended_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateBorrower persists a borrower record and returns its id.
func (s *SQLiteStore) CreateBorrower(ctx context.Context, b *domain.Borrower) (string, error) {
	id, err := newRecordID("bor")
	if err != nil {
		return "", err
	}
	now := time.Now()

	query := `
	INSERT INTO borrowers (id, first_name, last_name, email, phone, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		id, b.FirstName, b.LastName, b.Email, b.Phone, now.Unix(), now.Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("insert borrower: %w", err)
	}

	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
	return id, nil
}

// CreateProperty persists a property record and returns its id.
func (s *SQLiteStore) CreateProperty(ctx context.Context, p *domain.Property) (string, error) {
	id, err := newRecordID("prop")
	if err != nil {
		return "", err
	}
	now := time.Now()

	query := `INSERT INTO properties (id, type, address, created_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, id, p.Type, p.Address, now.Unix()); err != nil {
		return "", fmt.Errorf("insert property: %w", err)
	}

	p.ID = id
	p.CreatedAt = now
	return id, nil
}

// CreateApplication persists an application record and returns its id.
func (s *SQLiteStore) CreateApplication(ctx context.Context, app *domain.Application) (string, error) {
	id, err := newRecordID("app")
	if err != nil {
		return "", err
	}
	now := time.Now()
	if app.Status == "" {
		app.Status = "started"
	}

	var propertyID any
	if app.PropertyID != "" {
		propertyID = app.PropertyID
	}

	query := `
	INSERT INTO applications (id, borrower_id, property_id, loan_purpose, loan_amount, down_payment, status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		id, app.BorrowerID, propertyID, app.LoanPurpose,
		app.LoanAmount, app.DownPayment, app.Status, now.Unix(), now.Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("insert application: %w", err)
	}

	app.ID = id
	app.CreatedAt = now
	app.UpdatedAt = now
	return id, nil
}

// SaveSessionSummary upserts the audit row for an ended session.
func (s *SQLiteStore) SaveSessionSummary(ctx context.Context, sum *domain.SessionSummary) error {
	var applicationRef any
	if sum.ApplicationRef != "" {
		applicationRef = sum.ApplicationRef
	}

	query := `
	INSERT INTO session_summaries (session_id, channel, final_stage, message_count, application_ref, started_at, ended_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
		final_stage = excluded.final_stage,
		message_count = excluded.message_count,
		application_ref = excluded.application_ref,
		ended_at = excluded.ended_at`

	_, err := s.db.ExecContext(ctx, query,
		sum.SessionID, string(sum.Channel), string(sum.FinalStage),
		sum.MessageCount, applicationRef, sum.StartedAt.Unix(), sum.EndedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert session summary: %w", err)
	}
	return nil
}

func newRecordID(prefix string) (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate record id: %w", err)
	}
	return prefix + "_" + hex.EncodeToString(buf), nil
}
