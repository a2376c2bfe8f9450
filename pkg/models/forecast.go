package models

import "time"

// StrengthForecast is the latest projection for one (user, exercise) pair.
// Each recomputation replaces the previous record for the same key.
type StrengthForecast struct {
	UserID                  string     `db:"user_id"                   json:"user_id"`
	ExerciseName            string     `db:"exercise_name"             json:"exercise_name"`
	Current1RMKg            *float64   `db:"current_1rm_kg"            json:"current_1rm_kg"`
	Target1RMKg             *float64   `db:"target_1rm_kg"             json:"target_1rm_kg"`
	EstimatedCompletionDate *time.Time `db:"estimated_completion_date" json:"estimated_completion_date"`
	ConfidenceScore         float64    `db:"confidence_score"          json:"confidence_score"`
	UpdatedAt               time.Time  `db:"updated_at"                json:"updated_at"`
}
