package retention

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dooriq/simserver/internal/domain"
	"github.com/dooriq/simserver/internal/metrics"
)

// sweepRepo counts retention calls; the other Repository methods are unused
// by the worker.
type sweepRepo struct {
	deleteCalls atomic.Int64
	countCalls  atomic.Int64
}

func (r *sweepRepo) DeleteExpiredAttempts(context.Context, time.Duration) (int64, error) {
	r.deleteCalls.Add(1)
	return 2, nil
}

func (r *sweepRepo) CountOpenAttempts(context.Context) (int64, error) {
	r.countCalls.Add(1)
	return 3, nil
}

func (r *sweepRepo) CreateAttempt(context.Context, *domain.Attempt) error { return nil }
func (r *sweepRepo) GetAttempt(context.Context, string) (*domain.Attempt, error) {
	return nil, nil
}
func (r *sweepRepo) UpdateAttempt(context.Context, *domain.Attempt, int64) error { return nil }
func (r *sweepRepo) Ping(context.Context) error                                  { return nil }
func (r *sweepRepo) Close() error                                                { return nil }

func TestWorkerSweepsAndStops(t *testing.T) {
	repo := &sweepRepo{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		run(ctx, repo, metrics.NewManager(), time.Hour, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for repo.deleteCalls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("worker never swept")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}

	if repo.countCalls.Load() == 0 {
		t.Error("worker never refreshed the open-attempts count")
	}
}
