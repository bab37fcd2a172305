// Package store persists extracted loan profiles.
package store

import (
	"context"
	"errors"

	"github.com/loanguard/loanguard/internal/models"
)

// ErrNotFound is returned when the requested loan or requirement does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for loan profile persistence.
type Store interface {
	// Put inserts or replaces a loan profile.
	Put(ctx context.Context, profile *models.LoanProfile) error

	// Get retrieves a profile by loan ID.
	Get(ctx context.Context, loanID string) (*models.LoanProfile, error)

	// List returns all stored profiles ordered by loan ID.
	List(ctx context.Context) ([]*models.LoanProfile, error)

	// Delete removes a profile by loan ID.
	Delete(ctx context.Context, loanID string) error

	// UpdateStatus sets the compliance status of one requirement and
	// returns the updated requirement.
	UpdateStatus(ctx context.Context, loanID, reqID string, status models.Status, notes string) (*models.Requirement, error)

	// Close cleans up resources.
	Close(ctx context.Context) error
}
