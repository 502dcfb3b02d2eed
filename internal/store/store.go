// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dooriq/simserver/internal/domain"
)

// Sentinel errors surfaced by repository implementations.
var (
	// ErrAttemptNotFound is returned by write operations targeting an
	// attempt that does not exist.
	ErrAttemptNotFound = errors.New("attempt not found")

	// ErrVersionConflict is returned when an optimistic-version update
	// loses a race with a concurrent writer. Callers should reload and
	// decide whether to retry or drop the duplicate.
	ErrVersionConflict = errors.New("attempt version conflict")
)

// Repository defines the interface for persisting practice attempts.
type Repository interface {
	// CreateAttempt inserts a new attempt record.
	CreateAttempt(ctx context.Context, attempt *domain.Attempt) error

	// GetAttempt retrieves an attempt by ID. Returns (nil, nil) when the
	// attempt does not exist.
	GetAttempt(ctx context.Context, attemptID string) (*domain.Attempt, error)

	// UpdateAttempt persists the attempt's mutable fields (state, turn
	// count, messages, metrics, evaluation). The write only succeeds if
	// the stored version matches expectedVersion; on success the stored
	// version becomes attempt.Version.
	UpdateAttempt(ctx context.Context, attempt *domain.Attempt, expectedVersion int64) error

	// DeleteExpiredAttempts removes unfinished attempts idle longer than
	// ttl and returns how many were removed.
	DeleteExpiredAttempts(ctx context.Context, ttl time.Duration) (int64, error)

	// CountOpenAttempts returns the number of attempts not yet evaluated.
	CountOpenAttempts(ctx context.Context) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
