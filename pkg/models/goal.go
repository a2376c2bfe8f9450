package models

import (
	"time"

	"github.com/google/uuid"
)

type GoalType string

const (
	GoalWeightLoss  GoalType = "weight_loss"
	GoalWeightGain  GoalType = "weight_gain"
	GoalMaintenance GoalType = "maintenance"
	GoalStrength    GoalType = "strength"
	GoalEndurance   GoalType = "endurance"
	GoalFlexibility GoalType = "flexibility"
)

func (t GoalType) Valid() bool {
	switch t {
	case GoalWeightLoss, GoalWeightGain, GoalMaintenance, GoalStrength, GoalEndurance, GoalFlexibility:
		return true
	}
	return false
}

type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalPaused    GoalStatus = "paused"
	GoalCancelled GoalStatus = "cancelled"
)

func (s GoalStatus) Valid() bool {
	switch s {
	case GoalActive, GoalCompleted, GoalPaused, GoalCancelled:
		return true
	}
	return false
}

// StrengthGoal is a target lift. TargetReps defaults to 1 when unset.
type StrengthGoal struct {
	ExerciseName    string   `json:"exercise_name"`
	TargetWeightKg  float64  `json:"target_weight_kg"`
	TargetReps      *int     `json:"target_reps,omitempty"`
	CurrentWeightKg *float64 `json:"current_weight_kg,omitempty"`
	CurrentReps     *int     `json:"current_reps,omitempty"`
}

// Reps returns the target repetitions, defaulting to a single.
func (g StrengthGoal) Reps() int {
	if g.TargetReps == nil {
		return 1
	}
	return *g.TargetReps
}

type Goal struct {
	ID             uuid.UUID      `db:"id"               json:"id"`
	UserID         string         `db:"user_id"          json:"user_id"`
	GoalType       GoalType       `db:"goal_type"        json:"goal_type"`
	Title          string         `db:"title"            json:"title"`
	Description    *string        `db:"description"      json:"description,omitempty"`
	TargetWeightKg *float64       `db:"target_weight_kg" json:"target_weight_kg,omitempty"`
	TargetDate     *time.Time     `db:"target_date"      json:"target_date,omitempty"`
	StrengthGoals  []StrengthGoal `db:"strength_goals"   json:"strength_goals,omitempty"`
	Status         GoalStatus     `db:"status"           json:"status"`
	IsPrimary      bool           `db:"is_primary"       json:"is_primary"`
	CreatedAt      time.Time      `db:"created_at"       json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"       json:"updated_at"`
}

// GoalPatch carries the fields of a partial goal update.
type GoalPatch struct {
	Title          *string         `json:"title"`
	Description    *string         `json:"description"`
	TargetWeightKg *float64        `json:"target_weight_kg"`
	TargetDate     *time.Time      `json:"target_date"`
	StrengthGoals  *[]StrengthGoal `json:"strength_goals"`
	Status         *GoalStatus     `json:"status"`
	IsPrimary      *bool           `json:"is_primary"`
}

func (p GoalPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.TargetWeightKg == nil && p.TargetDate == nil &&
		p.StrengthGoals == nil && p.Status == nil && p.IsPrimary == nil
}
