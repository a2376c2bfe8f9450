package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/api/response"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/store"
	"github.com/ofarooq21/AI-Fitness-Tracker/pkg/models"
)

// GoalHandlers serves the goal routes.
type GoalHandlers struct {
	goals store.GoalStore
}

func NewGoalHandlers(goals store.GoalStore) *GoalHandlers {
	return &GoalHandlers{goals: goals}
}

// Create handles POST /api/v1/goals. New goals start active.
func (h *GoalHandlers) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		GoalType       models.GoalType       `json:"goal_type"`
		Title          string                `json:"title"`
		Description    *string               `json:"description"`
		TargetWeightKg *float64              `json:"target_weight_kg"`
		TargetDate     *time.Time            `json:"target_date"`
		StrengthGoals  []models.StrengthGoal `json:"strength_goals"`
		IsPrimary      bool                  `json:"is_primary"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	title := strings.TrimSpace(req.Title)
	switch {
	case !req.GoalType.Valid():
		response.Invalid(w, fmt.Sprintf("goal_type %q is not supported", req.GoalType))
		return
	case title == "":
		response.Invalid(w, "title is required")
		return
	}
	if err := validateGoalFields(req.TargetWeightKg, req.StrengthGoals); err != nil {
		response.Invalid(w, err.Error())
		return
	}

	now := time.Now().UTC()
	goal := &models.Goal{
		ID:             uuid.New(),
		UserID:         userID,
		GoalType:       req.GoalType,
		Title:          title,
		Description:    req.Description,
		TargetWeightKg: req.TargetWeightKg,
		TargetDate:     req.TargetDate,
		StrengthGoals:  req.StrengthGoals,
		Status:         models.GoalActive,
		IsPrimary:      req.IsPrimary,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.goals.CreateGoal(r.Context(), goal); err != nil {
		slog.Error("create goal", "user_id", userID, "error", err)
		response.Internal(w)
		return
	}

	response.Created(w, goal)
}

// List handles GET /api/v1/goals with an optional status filter.
func (h *GoalHandlers) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	status := models.GoalStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		response.Invalid(w, fmt.Sprintf("status %q is not supported", status))
		return
	}

	goals, err := h.goals.ListGoals(r.Context(), userID, status)
	if err != nil {
		slog.Error("list goals", "user_id", userID, "error", err)
		response.Internal(w)
		return
	}
	if goals == nil {
		goals = []*models.Goal{}
	}
	response.JSON(w, goals)
}

// Update handles PUT /api/v1/goals/{goalID}.
func (h *GoalHandlers) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "goalID")
	if !ok {
		return
	}

	var patch models.GoalPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			response.Invalid(w, "title must not be empty")
			return
		}
		patch.Title = &title
	}
	if patch.Status != nil && !patch.Status.Valid() {
		response.Invalid(w, fmt.Sprintf("status %q is not supported", *patch.Status))
		return
	}
	var strengthGoals []models.StrengthGoal
	if patch.StrengthGoals != nil {
		strengthGoals = *patch.StrengthGoals
	}
	if err := validateGoalFields(patch.TargetWeightKg, strengthGoals); err != nil {
		response.Invalid(w, err.Error())
		return
	}

	goal, err := h.goals.UpdateGoal(r.Context(), id, userID, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "GOAL_NOT_FOUND", "Goal not found", nil)
			return
		}
		slog.Error("update goal", "user_id", userID, "error", err)
		response.Internal(w)
		return
	}
	response.JSON(w, goal)
}

func validateGoalFields(targetWeightKg *float64, strengthGoals []models.StrengthGoal) error {
	if targetWeightKg != nil && *targetWeightKg <= 0 {
		return errors.New("target_weight_kg must be positive")
	}
	for i, sg := range strengthGoals {
		if strings.TrimSpace(sg.ExerciseName) == "" {
			return fmt.Errorf("strength_goals[%d].exercise_name is required", i)
		}
		if sg.TargetWeightKg <= 0 {
			return fmt.Errorf("strength_goals[%d].target_weight_kg must be positive", i)
		}
		if sg.TargetReps != nil && *sg.TargetReps < 1 {
			return fmt.Errorf("strength_goals[%d].target_reps must be at least 1", i)
		}
	}
	return nil
}
