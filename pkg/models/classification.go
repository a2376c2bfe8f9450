// Package models contains shared data models used across the fittrack codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus mirrors the state a task reports through the queue's result backend.
// QUEUED is never stored by the backend; it is what Submit reports before the first poll.
type TaskStatus string

const (
	TaskQueued  TaskStatus = "QUEUED"
	TaskPending TaskStatus = "PENDING"
	TaskStarted TaskStatus = "STARTED"
	TaskRetry   TaskStatus = "RETRY"
	TaskSuccess TaskStatus = "SUCCESS"
	TaskFailure TaskStatus = "FAILURE"
)

// Terminal reports whether no further transitions can follow s.
func (s TaskStatus) Terminal() bool {
	return s == TaskSuccess || s == TaskFailure
}

// Macros is the nutrition breakdown of an estimated portion.
type Macros struct {
	Kcal     int     `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// ClassificationResult is the typed success payload of a classify_meal task.
type ClassificationResult struct {
	FileKey              string  `json:"file_key"`
	Label                string  `json:"label"`
	Confidence           float64 `json:"confidence"`
	PortionEstimateGrams int     `json:"portion_estimate_grams"`
	Macros               Macros  `json:"macros"`
}

// ClassificationJob is what the client sees when submitting or polling a classification.
// Result is only set once Status is SUCCESS.
type ClassificationJob struct {
	TaskID string                `json:"task_id"`
	Status TaskStatus            `json:"status"`
	Result *ClassificationResult `json:"result,omitempty"`
}

// MealRecord is the persisted, write-once record of a successful classification.
// UserID is whoever polled the task to SUCCESS first.
type MealRecord struct {
	ID        uuid.UUID            `db:"id"         json:"id"`
	UserID    string               `db:"user_id"    json:"user_id"`
	TaskID    string               `db:"task_id"    json:"task_id"`
	Result    ClassificationResult `db:"-"          json:"result"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
}
