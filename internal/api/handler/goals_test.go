package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/ofarooq21/AI-Fitness-Tracker/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createGoal(t *testing.T, h *GoalHandlers, body any) models.Goal {
	t.Helper()
	rec := serve(h.Create, asUser(newRequest(t, http.MethodPost, "/api/v1/goals", body), testUser))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var g models.Goal
	decodeData(t, rec, &g)
	return g
}

func strengthGoalBody(target float64) map[string]any {
	return map[string]any{
		"goal_type": "strength",
		"title":     "Bench bodyweight",
		"strength_goals": []map[string]any{
			{"exercise_name": "Bench Press", "target_weight_kg": target},
		},
	}
}

func TestCreateGoal_StartsActive(t *testing.T) {
	h := NewGoalHandlers(newMemStore())

	g := createGoal(t, h, strengthGoalBody(110))

	assert.Equal(t, models.GoalActive, g.Status)
	assert.Equal(t, models.GoalStrength, g.GoalType)
	assert.Equal(t, testUser, g.UserID)
	require.Len(t, g.StrengthGoals, 1)
	assert.Equal(t, 1, g.StrengthGoals[0].Reps())
}

func TestCreateGoal_Validation(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"invalid json", "{"},
		{"unknown type", map[string]any{"goal_type": "bulk", "title": "x"}},
		{"missing title", map[string]any{"goal_type": "strength", "title": " "}},
		{"non-positive target weight", map[string]any{"goal_type": "weight_loss", "title": "x", "target_weight_kg": 0}},
		{"unnamed strength goal", map[string]any{"goal_type": "strength", "title": "x",
			"strength_goals": []map[string]any{{"exercise_name": "", "target_weight_kg": 100}}}},
		{"zero strength target", strengthGoalBody(0)},
		{"zero target reps", map[string]any{"goal_type": "strength", "title": "x",
			"strength_goals": []map[string]any{{"exercise_name": "Squat", "target_weight_kg": 100, "target_reps": 0}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(NewGoalHandlers(newMemStore()).Create,
				asUser(newRequest(t, http.MethodPost, "/api/v1/goals", tt.body), testUser))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "INVALID_REQUEST", errorCode(t, rec))
		})
	}
}

func TestListGoals_StatusFilter(t *testing.T) {
	h := NewGoalHandlers(newMemStore())
	active := createGoal(t, h, strengthGoalBody(110))
	paused := createGoal(t, h, strengthGoalBody(120))
	rec := serve(h.Update, goalRequest(t, paused.ID, map[string]any{"status": "paused"}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h.List, asUser(newRequest(t, http.MethodGet, "/api/v1/goals?status=active", nil), testUser))
	require.Equal(t, http.StatusOK, rec.Code)
	var goals []models.Goal
	decodeData(t, rec, &goals)
	require.Len(t, goals, 1)
	assert.Equal(t, active.ID, goals[0].ID)

	rec = serve(h.List, asUser(newRequest(t, http.MethodGet, "/api/v1/goals", nil), testUser))
	decodeData(t, rec, &goals)
	assert.Len(t, goals, 2)
}

func TestListGoals_InvalidStatus(t *testing.T) {
	rec := serve(NewGoalHandlers(newMemStore()).List,
		asUser(newRequest(t, http.MethodGet, "/api/v1/goals?status=done", nil), testUser))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListGoals_EmptyIsArray(t *testing.T) {
	rec := serve(NewGoalHandlers(newMemStore()).List,
		asUser(newRequest(t, http.MethodGet, "/api/v1/goals", nil), testUser))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func goalRequest(t *testing.T, id uuid.UUID, body any) *http.Request {
	r := newRequest(t, http.MethodPut, "/api/v1/goals/"+id.String(), body)
	return withURLParam(asUser(r, testUser), "goalID", id.String())
}

func TestUpdateGoal(t *testing.T) {
	h := NewGoalHandlers(newMemStore())
	g := createGoal(t, h, strengthGoalBody(110))

	rec := serve(h.Update, goalRequest(t, g.ID, map[string]any{"title": " Bench 120 ", "status": "completed"}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got models.Goal
	decodeData(t, rec, &got)
	assert.Equal(t, "Bench 120", got.Title)
	assert.Equal(t, models.GoalCompleted, got.Status)
}

func TestUpdateGoal_Errors(t *testing.T) {
	h := NewGoalHandlers(newMemStore())
	g := createGoal(t, h, strengthGoalBody(110))

	rec := serve(h.Update, goalRequest(t, uuid.New(), map[string]any{"title": "x"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "GOAL_NOT_FOUND", errorCode(t, rec))

	for _, body := range []map[string]any{
		{"status": "finished"},
		{"title": ""},
		{"strength_goals": []map[string]any{{"exercise_name": "Squat", "target_weight_kg": -1}}},
	} {
		rec = serve(h.Update, goalRequest(t, g.ID, body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}
