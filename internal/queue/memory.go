package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ofarooq21/AI-Fitness-Tracker/pkg/models"
)

// MemoryBroker is an in-process Broker for tests and single-binary development.
// States never expire.
type MemoryBroker struct {
	mu         sync.Mutex
	pending    []*Task
	processing map[string]*reservation
	states     map[string]State
	ready      chan struct{}
	lease      time.Duration
}

type reservation struct {
	task     *Task
	deadline time.Time
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		processing: make(map[string]*reservation),
		states:     make(map[string]State),
		ready:      make(chan struct{}, 1),
		lease:      DefaultLease,
	}
}

// WithLease sets how long a reservation survives without Extend.
func (b *MemoryBroker) WithLease(d time.Duration) *MemoryBroker {
	if d > 0 {
		b.lease = d
	}
	return b
}

var _ Broker = (*MemoryBroker)(nil)

func (b *MemoryBroker) Ping(_ context.Context) error { return nil }

func (b *MemoryBroker) Enqueue(_ context.Context, name string, payload any) (string, error) {
	task, err := NewTask(name, payload)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", name, err)
	}

	b.mu.Lock()
	b.states[task.ID] = State{Status: models.TaskPending, UpdatedAt: time.Now().UTC()}
	b.pending = append(b.pending, task)
	b.mu.Unlock()

	b.signal()
	return task.ID, nil
}

func (b *MemoryBroker) State(_ context.Context, taskID string) (State, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.states[taskID]
	if !ok {
		return State{Status: models.TaskPending}, nil
	}
	if st.Result != nil {
		st.Result = append(json.RawMessage(nil), st.Result...)
	}
	return st, nil
}

func (b *MemoryBroker) SetState(_ context.Context, taskID string, st State) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.states[taskID].Status.Terminal() {
		return ErrTaskFinished
	}
	b.states[taskID] = st
	return nil
}

func (b *MemoryBroker) Reserve(ctx context.Context, timeout time.Duration) (*Task, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if task := b.pop(); task != nil {
			return task, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case <-b.ready:
		}
	}
}

func (b *MemoryBroker) pop() *Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return nil
	}
	task := b.pending[0]
	b.pending = b.pending[1:]
	b.processing[task.ID] = &reservation{task: task, deadline: time.Now().Add(b.lease)}
	if len(b.pending) > 0 {
		b.signal()
	}
	return task
}

// signal wakes one waiting Reserve without blocking.
func (b *MemoryBroker) signal() {
	select {
	case b.ready <- struct{}{}:
	default:
	}
}

func (b *MemoryBroker) Extend(_ context.Context, task *Task) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.processing[task.ID]; ok {
		r.deadline = time.Now().Add(b.lease)
	}
	return nil
}

func (b *MemoryBroker) Ack(_ context.Context, task *Task) error {
	b.mu.Lock()
	delete(b.processing, task.ID)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBroker) Requeue(_ context.Context, task *Task) error {
	next := *task
	next.Attempts++

	b.mu.Lock()
	delete(b.processing, task.ID)
	b.pending = append(b.pending, &next)
	b.mu.Unlock()

	b.signal()
	return nil
}

func (b *MemoryBroker) RestoreUnacked(_ context.Context) (int, error) {
	now := time.Now()
	n := 0

	b.mu.Lock()
	for id, r := range b.processing {
		if r.deadline.After(now) {
			continue
		}
		next := *r.task
		next.Attempts++
		b.pending = append(b.pending, &next)
		delete(b.processing, id)
		n++
	}
	b.mu.Unlock()

	if n > 0 {
		b.signal()
	}
	return n, nil
}

// InFlight reports how many reserved tasks have not been acked or requeued.
func (b *MemoryBroker) InFlight() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.processing)
}
