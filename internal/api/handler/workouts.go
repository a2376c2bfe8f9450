package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/api/response"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/store"
	"github.com/ofarooq21/AI-Fitness-Tracker/pkg/models"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200

	// Well above any recorded lift; larger values are typos or unit mix-ups.
	maxWeightKg = 1000
	// One set of a distance exercise, not a whole ultramarathon.
	maxDistanceMeters = 1_000_000
)

// ForecastTrigger is notified after a user's workouts change. It must not block.
type ForecastTrigger interface {
	OnWorkoutMutated(ctx context.Context, userID string)
}

// WorkoutHandlers serves the workout routes and the strength progress view.
type WorkoutHandlers struct {
	workouts  store.WorkoutStore
	forecasts store.ForecastStore
	trigger   ForecastTrigger
}

func NewWorkoutHandlers(workouts store.WorkoutStore, forecasts store.ForecastStore, trigger ForecastTrigger) *WorkoutHandlers {
	return &WorkoutHandlers{workouts: workouts, forecasts: forecasts, trigger: trigger}
}

// Create handles POST /api/v1/workouts.
func (h *WorkoutHandlers) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Name            string            `json:"name"`
		Date            *time.Time        `json:"date"`
		Exercises       []models.Exercise `json:"exercises"`
		DurationMinutes *int              `json:"duration_minutes"`
		Notes           *string           `json:"notes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		response.Invalid(w, "name is required")
		return
	}
	if err := validateWorkoutFields(req.Exercises, req.DurationMinutes); err != nil {
		response.Invalid(w, err.Error())
		return
	}

	now := time.Now().UTC()
	workout := &models.Workout{
		ID:              uuid.New(),
		UserID:          userID,
		Name:            name,
		Date:            req.Date,
		Exercises:       req.Exercises,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if workout.Exercises == nil {
		workout.Exercises = []models.Exercise{}
	}
	if err := h.workouts.CreateWorkout(r.Context(), workout); err != nil {
		slog.Error("create workout", "user_id", userID, "error", err)
		response.Internal(w)
		return
	}

	h.trigger.OnWorkoutMutated(r.Context(), userID)
	response.Created(w, workout)
}

// List handles GET /api/v1/workouts.
func (h *WorkoutHandlers) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit, offset, ok := pageParams(w, r)
	if !ok {
		return
	}

	workouts, err := h.workouts.ListWorkouts(r.Context(), store.WorkoutFilter{
		UserID: userID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		slog.Error("list workouts", "user_id", userID, "error", err)
		response.Internal(w)
		return
	}

	summaries := make([]models.WorkoutSummary, 0, len(workouts))
	for _, wo := range workouts {
		summaries = append(summaries, wo.Summary())
	}
	response.Page(w, summaries, limit, offset)
}

// Get handles GET /api/v1/workouts/{workoutID}.
func (h *WorkoutHandlers) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "workoutID")
	if !ok {
		return
	}

	workout, err := h.workouts.GetWorkout(r.Context(), id, userID)
	if err != nil {
		writeWorkoutError(w, "get workout", err)
		return
	}
	response.JSON(w, workout)
}

// Update handles PUT /api/v1/workouts/{workoutID}. Only a patch that changes
// something schedules a forecast recomputation.
func (h *WorkoutHandlers) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "workoutID")
	if !ok {
		return
	}

	var patch models.WorkoutPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			response.Invalid(w, "name must not be empty")
			return
		}
		patch.Name = &name
	}
	var exercises []models.Exercise
	if patch.Exercises != nil {
		exercises = *patch.Exercises
	}
	if err := validateWorkoutFields(exercises, patch.DurationMinutes); err != nil {
		response.Invalid(w, err.Error())
		return
	}

	workout, err := h.workouts.UpdateWorkout(r.Context(), id, userID, patch)
	if err != nil {
		writeWorkoutError(w, "update workout", err)
		return
	}

	if !patch.Empty() {
		h.trigger.OnWorkoutMutated(r.Context(), userID)
	}
	response.JSON(w, workout)
}

// Delete handles DELETE /api/v1/workouts/{workoutID}.
func (h *WorkoutHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "workoutID")
	if !ok {
		return
	}

	if err := h.workouts.DeleteWorkout(r.Context(), id, userID); err != nil {
		writeWorkoutError(w, "delete workout", err)
		return
	}
	response.NoContent(w)
}

// StrengthProgress handles GET /api/v1/workouts/strength/progress. It serves
// the stored forecasts and never computes inline.
func (h *WorkoutHandlers) StrengthProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	forecasts, err := h.forecasts.ListForecasts(r.Context(), userID)
	if err != nil {
		slog.Error("list forecasts", "user_id", userID, "error", err)
		response.Internal(w)
		return
	}
	if forecasts == nil {
		forecasts = []*models.StrengthForecast{}
	}
	response.JSON(w, forecasts)
}

func writeWorkoutError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "WORKOUT_NOT_FOUND", "Workout not found", nil)
		return
	}
	slog.Error(op, "error", err)
	response.Internal(w)
}

func validateWorkoutFields(exercises []models.Exercise, durationMinutes *int) error {
	if durationMinutes != nil && *durationMinutes < 0 {
		return errors.New("duration_minutes must not be negative")
	}
	for i, ex := range exercises {
		if strings.TrimSpace(ex.Name) == "" {
			return fmt.Errorf("exercises[%d].name is required", i)
		}
		if !ex.ExerciseType.Valid() {
			return fmt.Errorf("exercises[%d].exercise_type %q is not supported", i, ex.ExerciseType)
		}
		for j, set := range ex.Sets {
			if negativeInt(set.Reps) || negativeFloat(set.WeightKg) || negativeInt(set.DurationSeconds) ||
				negativeFloat(set.DistanceMeters) || negativeInt(set.RestSeconds) {
				return fmt.Errorf("exercises[%d].sets[%d] has a negative value", i, j)
			}
			if outOfRange(set.WeightKg, maxWeightKg) {
				return fmt.Errorf("exercises[%d].sets[%d].weight_kg must be at most %d", i, j, maxWeightKg)
			}
			if outOfRange(set.DistanceMeters, maxDistanceMeters) {
				return fmt.Errorf("exercises[%d].sets[%d].distance_meters must be at most %d", i, j, maxDistanceMeters)
			}
		}
	}
	return nil
}

func negativeInt(v *int) bool       { return v != nil && *v < 0 }
func negativeFloat(v *float64) bool { return v != nil && *v < 0 }

func outOfRange(v *float64, limit float64) bool {
	return v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0) || *v > limit)
}
