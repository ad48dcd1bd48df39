package domain

import (
	"time"
)

// Borrower is the persisted borrower record created when the application
// stage is reached. The conversation keeps only a weak reference to it.
type Borrower struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Property is the persisted subject-property record. Optional: only
// created when the conversation has collected property details.
type Property struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// Application is the persisted loan application record.
type Application struct {
	ID          string    `json:"id"`
	BorrowerID  string    `json:"borrower_id"`
	PropertyID  string    `json:"property_id,omitempty"`
	LoanPurpose string    `json:"loan_purpose"`
	LoanAmount  float64   `json:"loan_amount"`
	DownPayment float64   `json:"down_payment"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SessionSummary is the audit row written when a session ends or is
// evicted by the TTL sweeper.
type SessionSummary struct {
	SessionID      string    `json:"session_id"`
	Channel        Channel   `json:"channel"`
	FinalStage     Stage     `json:"final_stage"`
	MessageCount   int       `json:"message_count"`
	ApplicationRef string    `json:"application_ref,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
}
