package forecast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ofarooq21/AI-Fitness-Tracker/internal/queue"
)

const defaultTriggerTimeout = 5 * time.Second

// Trigger asks the worker pool to refresh a user's forecasts after their
// workouts change. It is best effort: callers never see whether it worked.
type Trigger struct {
	queue   queue.Queue
	timeout time.Duration
	log     *slog.Logger
	wg      sync.WaitGroup
}

func NewTrigger(q queue.Queue, timeout time.Duration, log *slog.Logger) *Trigger {
	if timeout <= 0 {
		timeout = defaultTriggerTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Trigger{
		queue:   q,
		timeout: timeout,
		log:     log.With("component", "ForecastTrigger"),
	}
}

// OnWorkoutMutated enqueues a recomputation in the background and returns
// immediately. Failures are logged and dropped.
func (t *Trigger) OnWorkoutMutated(ctx context.Context, userID string) {
	// Outlive the request that caused the mutation.
	ctx = context.WithoutCancel(ctx)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				t.log.Warn("forecast trigger panicked", "user_id", userID, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()

		taskID, err := t.queue.Enqueue(ctx, TaskName, taskPayload{UserID: userID})
		if err != nil {
			t.log.Warn("forecast recompute not enqueued", "user_id", userID, "error", err)
			return
		}
		t.log.Debug("forecast recompute enqueued", "user_id", userID, "task_id", taskID)
	}()
}

// Wait blocks until every in-flight enqueue has finished.
func (t *Trigger) Wait() {
	t.wg.Wait()
}
