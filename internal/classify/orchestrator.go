package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/queue"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/store"
	"github.com/ofarooq21/AI-Fitness-Tracker/pkg/models"
)

const defaultMemoSize = 4096

// Orchestrator submits classification tasks and relays their state. The first
// SUCCESS it observes for a task is persisted exactly once; every later poll
// returns that same persisted result.
type Orchestrator struct {
	queue queue.Queue
	jobs  store.JobStore
	log   *slog.Logger

	// materialized remembers results already confirmed in the store so
	// repeated polls skip the database.
	materialized *lru.Cache[string, models.ClassificationResult]
}

func NewOrchestrator(q queue.Queue, jobs store.JobStore, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	memo, _ := lru.New[string, models.ClassificationResult](defaultMemoSize)
	return &Orchestrator{
		queue:        q,
		jobs:         jobs,
		log:          log.With("component", "ClassificationOrchestrator"),
		materialized: memo,
	}
}

// Submit enqueues a classification of fileKey. It creates no local state and
// reports QUEUED without asking the queue.
func (o *Orchestrator) Submit(ctx context.Context, fileKey string) (*models.ClassificationJob, error) {
	fileKey = strings.TrimSpace(fileKey)
	if fileKey == "" {
		return nil, ErrEmptyFileKey
	}

	taskID, err := o.queue.Enqueue(ctx, TaskName, taskPayload{FileKey: fileKey})
	if err != nil {
		return nil, fmt.Errorf("submit classification: %w", err)
	}
	return &models.ClassificationJob{TaskID: taskID, Status: models.TaskQueued}, nil
}

// Poll reports the current state of a classification task. Safe to call any
// number of times from any number of callers. The first successful poll
// records the meal under userID.
func (o *Orchestrator) Poll(ctx context.Context, userID, taskID string) (*models.ClassificationJob, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, ErrEmptyTaskID
	}

	if result, ok := o.materialized.Get(taskID); ok {
		return succeeded(taskID, result), nil
	}

	st, err := o.queue.State(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("poll classification: %w", err)
	}

	switch st.Status {
	case models.TaskSuccess:
		parsed, err := ParseResult(st.Result)
		if err != nil {
			o.log.Error("malformed classification result", "task_id", taskID, "error", err)
			return nil, err
		}
		result, err := o.materialize(ctx, userID, taskID, *parsed)
		if err != nil {
			return nil, err
		}
		return succeeded(taskID, result), nil
	case models.TaskFailure:
		o.log.Warn("classification job failed", "task_id", taskID, "cause", st.Error)
		return nil, ErrJobFailed
	default:
		// The backend forgets results after its TTL; the store does not.
		rec, err := o.jobs.GetJobByTaskID(ctx, taskID)
		switch {
		case err == nil:
			o.materialized.Add(taskID, rec.Result)
			return succeeded(taskID, rec.Result), nil
		case !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("load classification %s: %w", taskID, err)
		}
		return &models.ClassificationJob{TaskID: taskID, Status: st.Status}, nil
	}
}

// materialize inserts the result unless the task already has a record, and
// returns whichever result is stored.
func (o *Orchestrator) materialize(ctx context.Context, userID, taskID string, result models.ClassificationResult) (models.ClassificationResult, error) {
	rec := &models.MealRecord{
		ID:        uuid.New(),
		UserID:    userID,
		TaskID:    taskID,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}
	created, err := o.jobs.InsertJobIfAbsent(ctx, rec)
	if err != nil {
		return models.ClassificationResult{}, fmt.Errorf("materialize classification %s: %w", taskID, err)
	}

	if created {
		o.log.Info("classification materialized", "task_id", taskID, "user_id", userID, "label", result.Label)
	} else {
		existing, err := o.jobs.GetJobByTaskID(ctx, taskID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			return models.ClassificationResult{}, fmt.Errorf("materialize classification %s: record vanished", taskID)
		case err != nil:
			return models.ClassificationResult{}, fmt.Errorf("load classification %s: %w", taskID, err)
		}
		result = existing.Result
	}

	o.materialized.Add(taskID, result)
	return result, nil
}

func succeeded(taskID string, result models.ClassificationResult) *models.ClassificationJob {
	return &models.ClassificationJob{TaskID: taskID, Status: models.TaskSuccess, Result: &result}
}
