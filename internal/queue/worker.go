package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ofarooq21/AI-Fitness-Tracker/pkg/models"
)

// Handler executes one kind of task. The returned value is JSON-encoded into
// the task's result on success.
type Handler interface {
	Name() string
	Handle(ctx context.Context, payload json.RawMessage) (any, error)
}

type handlerFunc struct {
	name string
	fn   func(ctx context.Context, payload json.RawMessage) (any, error)
}

func (h handlerFunc) Name() string { return h.name }
func (h handlerFunc) Handle(ctx context.Context, payload json.RawMessage) (any, error) {
	return h.fn(ctx, payload)
}

// HandlerFunc adapts a plain function into a named Handler.
func HandlerFunc(name string, fn func(ctx context.Context, payload json.RawMessage) (any, error)) Handler {
	return handlerFunc{name: name, fn: fn}
}

// Registry maps task names to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	name := h.Name()
	if name == "" {
		return fmt.Errorf("handler Name() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("handler already registered for task=%s", name)
	}
	r.handlers[name] = h
	return nil
}

func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. The task fails on the first attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

type WorkerConfig struct {
	Concurrency    int
	MaxAttempts    int
	ReserveTimeout time.Duration
	// Heartbeat is how often a running task's lease is extended. It must be
	// well below the broker's lease.
	Heartbeat time.Duration
	// ReapInterval is how often expired leases are returned to pending.
	ReapInterval time.Duration
}

// Worker drains a Broker with a fixed pool of goroutines.
type Worker struct {
	broker   Broker
	registry *Registry
	cfg      WorkerConfig
	log      *slog.Logger
}

func NewWorker(b Broker, registry *Registry, cfg WorkerConfig, log *slog.Logger) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.ReserveTimeout <= 0 {
		cfg.ReserveTimeout = 5 * time.Second
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = DefaultLease / 3
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = DefaultLease / 2
	}
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		broker:   b,
		registry: registry,
		cfg:      cfg,
		log:      log.With("component", "TaskWorker"),
	}
}

// Run restores tasks whose lease expired, then processes tasks until ctx is
// cancelled, reaping expired leases every ReapInterval. Tasks already running
// when ctx ends are allowed to finish.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.reap(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.reapLoop(ctx)
	}()
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, w.log.With("worker_id", id))
		}(i)
	}
	wg.Wait()
	return nil
}

func (w *Worker) reap(ctx context.Context) error {
	restored, err := w.broker.RestoreUnacked(ctx)
	if err != nil {
		return err
	}
	if restored > 0 {
		w.log.Info("restored tasks with expired lease", "count", restored)
	}
	return nil
}

func (w *Worker) reapLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.reap(ctx); err != nil && ctx.Err() == nil {
				w.log.Warn("restore expired tasks failed", "error", err)
			}
		}
	}
}

func (w *Worker) loop(ctx context.Context, log *slog.Logger) {
	for {
		if ctx.Err() != nil {
			return
		}
		task, err := w.broker.Reserve(ctx, w.cfg.ReserveTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("reserve failed", "error", err)
			sleepCtx(ctx, time.Second)
			continue
		}
		if task == nil {
			continue
		}
		w.process(context.WithoutCancel(ctx), log, task)
	}
}

func (w *Worker) process(ctx context.Context, log *slog.Logger, task *Task) {
	log = log.With("task_id", task.ID, "task", task.Name, "attempt", task.Attempts+1)

	if task.Attempts >= w.cfg.MaxAttempts {
		log.Error("task exceeded max attempts")
		w.finish(ctx, log, task, State{
			Status: models.TaskFailure,
			Error:  fmt.Sprintf("task abandoned after %d attempts", task.Attempts),
		})
		return
	}

	h, ok := w.registry.Get(task.Name)
	if !ok {
		log.Warn("no handler registered for task")
		w.finish(ctx, log, task, State{
			Status: models.TaskFailure,
			Error:  "no handler registered for task=" + task.Name,
		})
		return
	}

	// A redelivered copy of a task that already finished is dropped here.
	if !w.setState(ctx, log, task.ID, State{Status: models.TaskStarted}) {
		w.ack(ctx, log, task)
		return
	}

	start := time.Now()
	stop := w.heartbeat(ctx, log, task)
	result, err := invoke(ctx, h, task.Payload)
	stop()
	if err == nil {
		raw, encErr := json.Marshal(result)
		if encErr != nil {
			err = Permanent(fmt.Errorf("encode result: %w", encErr))
		} else {
			log.Info("task succeeded", "duration_ms", time.Since(start).Milliseconds())
			w.finish(ctx, log, task, State{Status: models.TaskSuccess, Result: raw})
			return
		}
	}

	if !IsPermanent(err) && task.Attempts+1 < w.cfg.MaxAttempts {
		log.Warn("task failed, retrying", "error", err)
		if !w.setState(ctx, log, task.ID, State{Status: models.TaskRetry, Error: err.Error()}) {
			w.ack(ctx, log, task)
			return
		}
		if rqErr := w.broker.Requeue(ctx, task); rqErr != nil {
			log.Error("requeue failed", "error", rqErr)
		}
		return
	}

	log.Error("task failed", "error", err)
	w.finish(ctx, log, task, State{Status: models.TaskFailure, Error: err.Error()})
}

// heartbeat extends the task's lease until the returned stop func is called.
func (w *Worker) heartbeat(ctx context.Context, log *slog.Logger, task *Task) (stop func()) {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(w.cfg.Heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := w.broker.Extend(ctx, task); err != nil {
					log.Warn("extend lease failed", "error", err)
				}
			}
		}
	}()
	return func() {
		close(done)
		<-exited
	}
}

// finish records a terminal state and acks the task.
func (w *Worker) finish(ctx context.Context, log *slog.Logger, task *Task, st State) {
	w.setState(ctx, log, task.ID, st)
	w.ack(ctx, log, task)
}

func (w *Worker) ack(ctx context.Context, log *slog.Logger, task *Task) {
	if err := w.broker.Ack(ctx, task); err != nil {
		log.Error("ack failed", "error", err)
	}
}

// setState reports false only when the task had already finished elsewhere.
func (w *Worker) setState(ctx context.Context, log *slog.Logger, taskID string, st State) bool {
	err := w.broker.SetState(ctx, taskID, st)
	switch {
	case errors.Is(err, ErrTaskFinished):
		log.Info("task already finished, state kept", "status", st.Status)
		return false
	case err != nil:
		log.Error("write task state failed", "status", st.Status, "error", err)
	}
	return true
}

// invoke runs the handler, turning a panic into a permanent failure.
func invoke(ctx context.Context, h Handler, payload json.RawMessage) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = Permanent(fmt.Errorf("handler panic: %v", r))
		}
	}()
	return h.Handle(ctx, payload)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
