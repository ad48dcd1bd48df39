// Package store provides the persistence boundary for borrower,
// property and application records.
package store

import (
	"context"

	"github.com/fairlend/advisor/internal/domain"
)

// Repository defines the interface the conversational core requires from
// persistent storage. Each create returns the opaque reference id the
// conversation keeps as a weak link.
type Repository interface {
	// CreateBorrower persists a borrower record and returns its id.
	CreateBorrower(ctx context.Context, b *domain.Borrower) (string, error)

	// CreateProperty persists a subject-property record and returns its id.
	CreateProperty(ctx context.Context, p *domain.Property) (string, error)

	// CreateApplication persists a loan application record and returns its id.
	CreateApplication(ctx context.Context, app *domain.Application) (string, error)

	// SaveSessionSummary writes the audit row for an ended session.
	SaveSessionSummary(ctx context.Context, sum *domain.SessionSummary) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
