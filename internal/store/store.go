package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ofarooq21/AI-Fitness-Tracker/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// JobStore persists successful classifications. Records are write-once per task id.
type JobStore interface {
	// InsertJobIfAbsent stores rec unless a record for rec.TaskID already exists.
	// It reports whether this call created the record; an existing record is never modified.
	InsertJobIfAbsent(ctx context.Context, rec *models.MealRecord) (bool, error)
	GetJobByTaskID(ctx context.Context, taskID string) (*models.MealRecord, error)
}

// MealStore reads a user's materialized classifications back as meals.
type MealStore interface {
	ListMeals(ctx context.Context, filter MealFilter) ([]*models.MealRecord, error)
}

// ForecastStore holds the latest forecast per (user, exercise).
type ForecastStore interface {
	UpsertForecast(ctx context.Context, f *models.StrengthForecast) error
	ListForecasts(ctx context.Context, userID string) ([]*models.StrengthForecast, error)
}

type WorkoutStore interface {
	CreateWorkout(ctx context.Context, w *models.Workout) error
	GetWorkout(ctx context.Context, id uuid.UUID, userID string) (*models.Workout, error)
	ListWorkouts(ctx context.Context, filter WorkoutFilter) ([]*models.Workout, error)
	// UpdateWorkout applies patch and returns the stored workout. An empty patch is a no-op read.
	UpdateWorkout(ctx context.Context, id uuid.UUID, userID string, patch models.WorkoutPatch) (*models.Workout, error)
	DeleteWorkout(ctx context.Context, id uuid.UUID, userID string) error
}

type GoalStore interface {
	CreateGoal(ctx context.Context, g *models.Goal) error
	ListGoals(ctx context.Context, userID string, status models.GoalStatus) ([]*models.Goal, error)
	UpdateGoal(ctx context.Context, id uuid.UUID, userID string, patch models.GoalPatch) (*models.Goal, error)
	ListActiveStrengthGoals(ctx context.Context, userID string) ([]*models.Goal, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	JobStore
	MealStore
	ForecastStore
	WorkoutStore
	GoalStore
	UserStore
}

// WorkoutFilter selects a page of a user's workouts, newest first.
// A zero Limit means no limit.
type WorkoutFilter struct {
	UserID string
	Limit  int
	Offset int
}

// MealFilter selects a page of a user's meals, newest first. Zero From or To
// leaves that side of the created_at range open; To is exclusive.
type MealFilter struct {
	UserID string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}
