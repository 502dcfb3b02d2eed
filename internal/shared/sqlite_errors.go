// Package shared provides common utilities used across the codebase.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// IsSQLiteBusyError checks if the error is a SQLITE_BUSY error.
// This occurs when the database is locked by another connection.
func IsSQLiteBusyError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "SQLITE_BUSY")
}

// IsSQLiteLockedError checks if the error is a "database is locked" error.
// This is another form of SQLite concurrency error.
func IsSQLiteLockedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "database is locked")
}

// IsSQLiteConflictError checks if the error is either a SQLITE_BUSY
// or "database is locked" error. These are both SQLite concurrency
// errors that typically warrant retry logic.
func IsSQLiteConflictError(err error) bool {
	if err == nil {
		return false
	}
	return IsSQLiteBusyError(err) || IsSQLiteLockedError(err)
}

const (
	retryAttempts  = 3
	retryBaseDelay = 100 * time.Millisecond
)

// RetryOnBusy runs fn, retrying with exponential backoff (100ms, 200ms,
// 400ms) while it fails with a SQLite concurrency error. Any other error
// is returned immediately.
func RetryOnBusy(ctx context.Context, fn func() (sql.Result, error)) (sql.Result, error) {
	var res sql.Result
	var err error
	delay := retryBaseDelay

	for i := 0; i < retryAttempts; i++ {
		res, err = fn()
		if err == nil || !IsSQLiteConflictError(err) {
			return res, err
		}
		if i == retryAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return res, err
}
