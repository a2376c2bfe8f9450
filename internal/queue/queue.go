// Package queue is a small task queue with a result backend. Producers enqueue
// named tasks and poll their state; workers reserve tasks, run the registered
// handler and record the outcome.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ofarooq21/AI-Fitness-Tracker/pkg/models"
)

// Task is one unit of work as it travels through the broker.
type Task struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// NewTask builds a task with a fresh id. payload is encoded as JSON.
func NewTask(name string, payload any) (*Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Task{
		ID:         uuid.NewString(),
		Name:       name,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// DefaultLease is how long a reservation stays valid without Extend.
const DefaultLease = time.Minute

// ErrTaskFinished is returned by SetState when the task already holds a
// terminal status. SUCCESS and FAILURE are never overwritten.
var ErrTaskFinished = errors.New("task already finished")

// State is what the result backend reports for a task id.
// Result holds the raw handler output and is only set on SUCCESS;
// Error only on FAILURE or RETRY.
type State struct {
	Status    models.TaskStatus
	Result    json.RawMessage
	Error     string
	UpdatedAt time.Time
}

// Queue is the producer side: submit work and observe it.
type Queue interface {
	// Enqueue publishes a task and returns its id. It never waits for execution.
	Enqueue(ctx context.Context, name string, payload any) (string, error)
	// State returns the current state of a task. Unknown ids report PENDING.
	State(ctx context.Context, taskID string) (State, error)
}

// Broker is the full contract a worker needs on top of Queue.
type Broker interface {
	Queue

	// Reserve blocks up to timeout for the next task and moves it to the
	// in-flight set under a lease. It returns (nil, nil) when nothing arrived in time.
	Reserve(ctx context.Context, timeout time.Duration) (*Task, error)
	// Extend renews the lease on an in-flight task.
	Extend(ctx context.Context, task *Task) error
	// SetState records st unless the task is already terminal, in which case
	// it returns ErrTaskFinished.
	SetState(ctx context.Context, taskID string, st State) error
	// Ack removes a finished task from the in-flight set.
	Ack(ctx context.Context, task *Task) error
	// Requeue puts an in-flight task back on the pending list with its attempt count bumped.
	Requeue(ctx context.Context, task *Task) error
	// RestoreUnacked returns in-flight tasks whose lease has expired to the
	// pending list with their attempt count bumped. Tasks still leased by a
	// live worker are left alone.
	RestoreUnacked(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}
