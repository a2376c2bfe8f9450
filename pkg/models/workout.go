package models

import (
	"time"

	"github.com/google/uuid"
)

type ExerciseType string

const (
	ExerciseStrength    ExerciseType = "strength"
	ExerciseCardio      ExerciseType = "cardio"
	ExerciseFlexibility ExerciseType = "flexibility"
	ExerciseSports      ExerciseType = "sports"
)

// Valid reports whether t is one of the known exercise types.
func (t ExerciseType) Valid() bool {
	switch t {
	case ExerciseStrength, ExerciseCardio, ExerciseFlexibility, ExerciseSports:
		return true
	}
	return false
}

// Set is one logged set. Strength sets without both Reps and WeightKg do not
// contribute to forecasts.
type Set struct {
	Reps            *int     `json:"reps,omitempty"`
	WeightKg        *float64 `json:"weight_kg,omitempty"`
	DurationSeconds *int     `json:"duration_seconds,omitempty"`
	DistanceMeters  *float64 `json:"distance_meters,omitempty"`
	RestSeconds     *int     `json:"rest_seconds,omitempty"`
}

type Exercise struct {
	Name         string       `json:"name"`
	ExerciseType ExerciseType `json:"exercise_type"`
	Sets         []Set        `json:"sets"`
	Notes        *string      `json:"notes,omitempty"`
}

// Workout is a logged training session. Date may be absent, in which case
// CreatedAt stands in for it.
type Workout struct {
	ID              uuid.UUID  `db:"id"               json:"id"`
	UserID          string     `db:"user_id"          json:"user_id"`
	Name            string     `db:"name"             json:"name"`
	Date            *time.Time `db:"date"             json:"date,omitempty"`
	Exercises       []Exercise `db:"exercises"        json:"exercises"`
	DurationMinutes *int       `db:"duration_minutes" json:"duration_minutes,omitempty"`
	Notes           *string    `db:"notes"            json:"notes,omitempty"`
	CreatedAt       time.Time  `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"       json:"updated_at"`
}

// PerformedAt is the instant the workout counts as happening.
func (w *Workout) PerformedAt() time.Time {
	if w.Date != nil {
		return w.Date.UTC()
	}
	return w.CreatedAt.UTC()
}

// WorkoutPatch carries the fields of a partial workout update. Nil fields are left unchanged.
type WorkoutPatch struct {
	Name            *string     `json:"name"`
	Exercises       *[]Exercise `json:"exercises"`
	DurationMinutes *int        `json:"duration_minutes"`
	Notes           *string     `json:"notes"`
}

// Empty reports whether applying p would change nothing.
func (p WorkoutPatch) Empty() bool {
	return p.Name == nil && p.Exercises == nil && p.DurationMinutes == nil && p.Notes == nil
}

// WorkoutSummary is the list view of a workout.
type WorkoutSummary struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Date            time.Time `json:"date"`
	ExerciseCount   int       `json:"exercise_count"`
	TotalSets       int       `json:"total_sets"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
}

// Summary condenses w into its list view.
func (w *Workout) Summary() WorkoutSummary {
	sets := 0
	for _, ex := range w.Exercises {
		sets += len(ex.Sets)
	}
	return WorkoutSummary{
		ID:              w.ID,
		Name:            w.Name,
		Date:            w.PerformedAt(),
		ExerciseCount:   len(w.Exercises),
		TotalSets:       sets,
		DurationMinutes: w.DurationMinutes,
	}
}
