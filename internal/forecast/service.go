package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ofarooq21/AI-Fitness-Tracker/internal/queue"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/store"
	"github.com/ofarooq21/AI-Fitness-Tracker/pkg/models"
)

// TaskName is the queue task that recomputes a user's forecasts.
const TaskName = "recompute_strength_forecasts"

// Store is the slice of the data layer a recomputation touches.
type Store interface {
	ListWorkouts(ctx context.Context, filter store.WorkoutFilter) ([]*models.Workout, error)
	ListActiveStrengthGoals(ctx context.Context, userID string) ([]*models.Goal, error)
	UpsertForecast(ctx context.Context, f *models.StrengthForecast) error
}

// Service loads a user's history, runs Compute and persists every forecast.
type Service struct {
	store Store
	now   func() time.Time
	log   *slog.Logger
}

func NewService(s Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store: s,
		now:   func() time.Time { return time.Now().UTC() },
		log:   log.With("component", "ForecastService"),
	}
}

// WithClock overrides the service's notion of now.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Recompute replaces the stored forecasts for every exercise the user has data for.
func (s *Service) Recompute(ctx context.Context, userID string) ([]models.StrengthForecast, error) {
	workouts, err := s.store.ListWorkouts(ctx, store.WorkoutFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("load workouts: %w", err)
	}
	goals, err := s.store.ListActiveStrengthGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load strength goals: %w", err)
	}

	forecasts := Compute(userID, workouts, goals, s.now())
	for i := range forecasts {
		if err := s.store.UpsertForecast(ctx, &forecasts[i]); err != nil {
			return nil, fmt.Errorf("upsert forecast %q: %w", forecasts[i].ExerciseName, err)
		}
	}

	s.log.Info("strength forecasts recomputed",
		"user_id", userID,
		"workouts", len(workouts),
		"forecasts", len(forecasts),
	)
	return forecasts, nil
}

type taskPayload struct {
	UserID string `json:"user_id"`
}

type taskResult struct {
	UserID    string `json:"user_id"`
	Forecasts int    `json:"forecasts"`
}

type taskHandler struct {
	svc *Service
}

// NewTaskHandler returns the worker-side handler for recompute_strength_forecasts tasks.
func NewTaskHandler(svc *Service) queue.Handler {
	return &taskHandler{svc: svc}
}

func (h *taskHandler) Name() string { return TaskName }

func (h *taskHandler) Handle(ctx context.Context, payload json.RawMessage) (any, error) {
	var p taskPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, queue.Permanent(fmt.Errorf("decode %s payload: %w", TaskName, err))
	}
	if strings.TrimSpace(p.UserID) == "" {
		return nil, queue.Permanent(fmt.Errorf("%s: user_id is required", TaskName))
	}

	forecasts, err := h.svc.Recompute(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	return taskResult{UserID: p.UserID, Forecasts: len(forecasts)}, nil
}
