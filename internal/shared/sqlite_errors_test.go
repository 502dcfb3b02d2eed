package shared

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func TestIsSQLiteConflictError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"busy", errors.New("SQLITE_BUSY: database is busy"), true},
		{"locked", errors.New("database is locked (5)"), true},
		{"other", errors.New("no such table: attempts"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsSQLiteConflictError(tc.err); got != tc.want {
				t.Errorf("IsSQLiteConflictError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestRetryOnBusyStopsOnSuccess(t *testing.T) {
	calls := 0
	_, err := RetryOnBusy(context.Background(), func() (sql.Result, error) {
		calls++
		if calls < 2 {
			return nil, errors.New("SQLITE_BUSY")
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryOnBusyNonConflictFailsFast(t *testing.T) {
	boom := errors.New("constraint failed")
	calls := 0
	_, err := RetryOnBusy(context.Background(), func() (sql.Result, error) {
		calls++
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on non-conflict errors)", calls)
	}
}

func TestRetryOnBusyExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := RetryOnBusy(context.Background(), func() (sql.Result, error) {
		calls++
		return nil, errors.New("SQLITE_BUSY")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != retryAttempts {
		t.Errorf("calls = %d, want %d", calls, retryAttempts)
	}
}

func TestRetryOnBusyHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RetryOnBusy(ctx, func() (sql.Result, error) {
		return nil, errors.New("SQLITE_BUSY")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
