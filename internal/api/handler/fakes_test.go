package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/ofarooq21/AI-Fitness-Tracker/internal/api/middleware"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/store"
	"github.com/ofarooq21/AI-Fitness-Tracker/pkg/models"
	"github.com/stretchr/testify/require"
)

// --- in-memory store ---

type memStore struct {
	mu        sync.Mutex
	users     map[string]*models.User
	workouts  map[uuid.UUID]*models.Workout
	goals     map[uuid.UUID]*models.Goal
	forecasts map[string][]*models.StrengthForecast
	jobs      map[string]*models.MealRecord
	err       error
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[string]*models.User),
		workouts:  make(map[uuid.UUID]*models.Workout),
		goals:     make(map[uuid.UUID]*models.Goal),
		forecasts: make(map[string][]*models.StrengthForecast),
		jobs:      make(map[string]*models.MealRecord),
	}
}

func (s *memStore) InsertJobIfAbsent(_ context.Context, rec *models.MealRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if _, ok := s.jobs[rec.TaskID]; ok {
		return false, nil
	}
	cp := *rec
	s.jobs[rec.TaskID] = &cp
	return true, nil
}

func (s *memStore) GetJobByTaskID(_ context.Context, taskID string) (*models.MealRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[taskID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *memStore) ListMeals(_ context.Context, f store.MealFilter) ([]*models.MealRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []*models.MealRecord
	for _, rec := range s.jobs {
		if rec.UserID != f.UserID {
			continue
		}
		if (!f.From.IsZero() && rec.CreatedAt.Before(f.From)) || (!f.To.IsZero() && !rec.CreatedAt.Before(f.To)) {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *memStore) jobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *memStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.users[u.Email]; ok {
		return store.ErrDuplicateKey
	}
	cp := *u
	s.users[u.Email] = &cp
	return nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) CreateWorkout(_ context.Context, w *models.Workout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	cp := *w
	s.workouts[w.ID] = &cp
	return nil
}

func (s *memStore) GetWorkout(_ context.Context, id uuid.UUID, userID string) (*models.Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	w, ok := s.workouts[id]
	if !ok || w.UserID != userID {
		return nil, store.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *memStore) ListWorkouts(_ context.Context, f store.WorkoutFilter) ([]*models.Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []*models.Workout
	for _, w := range s.workouts {
		if w.UserID == f.UserID {
			cp := *w
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PerformedAt().After(out[j].PerformedAt()) })
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *memStore) UpdateWorkout(_ context.Context, id uuid.UUID, userID string, p models.WorkoutPatch) (*models.Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	w, ok := s.workouts[id]
	if !ok || w.UserID != userID {
		return nil, store.ErrNotFound
	}
	if p.Name != nil {
		w.Name = *p.Name
	}
	if p.Exercises != nil {
		w.Exercises = *p.Exercises
	}
	if p.DurationMinutes != nil {
		w.DurationMinutes = p.DurationMinutes
	}
	if p.Notes != nil {
		w.Notes = p.Notes
	}
	cp := *w
	return &cp, nil
}

func (s *memStore) DeleteWorkout(_ context.Context, id uuid.UUID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	w, ok := s.workouts[id]
	if !ok || w.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.workouts, id)
	return nil
}

func (s *memStore) CreateGoal(_ context.Context, g *models.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	cp := *g
	s.goals[g.ID] = &cp
	return nil
}

func (s *memStore) ListGoals(_ context.Context, userID string, status models.GoalStatus) ([]*models.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []*models.Goal
	for _, g := range s.goals {
		if g.UserID == userID && (status == "" || g.Status == status) {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) ListActiveStrengthGoals(ctx context.Context, userID string) ([]*models.Goal, error) {
	goals, err := s.ListGoals(ctx, userID, models.GoalActive)
	if err != nil {
		return nil, err
	}
	var out []*models.Goal
	for _, g := range goals {
		if g.GoalType == models.GoalStrength {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *memStore) UpdateGoal(_ context.Context, id uuid.UUID, userID string, p models.GoalPatch) (*models.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	g, ok := s.goals[id]
	if !ok || g.UserID != userID {
		return nil, store.ErrNotFound
	}
	if p.Title != nil {
		g.Title = *p.Title
	}
	if p.Status != nil {
		g.Status = *p.Status
	}
	if p.StrengthGoals != nil {
		g.StrengthGoals = *p.StrengthGoals
	}
	if p.IsPrimary != nil {
		g.IsPrimary = *p.IsPrimary
	}
	cp := *g
	return &cp, nil
}

func (s *memStore) UpsertForecast(_ context.Context, f *models.StrengthForecast) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	list := s.forecasts[f.UserID]
	for i, existing := range list {
		if existing.ExerciseName == f.ExerciseName {
			cp := *f
			list[i] = &cp
			return nil
		}
	}
	cp := *f
	s.forecasts[f.UserID] = append(list, &cp)
	return nil
}

func (s *memStore) ListForecasts(_ context.Context, userID string) ([]*models.StrengthForecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := append([]*models.StrengthForecast(nil), s.forecasts[userID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ExerciseName < out[j].ExerciseName })
	return out, nil
}

func (s *memStore) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

var (
	_ store.JobStore      = (*memStore)(nil)
	_ store.MealStore     = (*memStore)(nil)
	_ store.UserStore     = (*memStore)(nil)
	_ store.WorkoutStore  = (*memStore)(nil)
	_ store.GoalStore     = (*memStore)(nil)
	_ store.ForecastStore = (*memStore)(nil)
)

var errBoom = errors.New("boom")

// --- recording trigger ---

type recordingTrigger struct {
	mu    sync.Mutex
	users []string
}

func (t *recordingTrigger) OnWorkoutMutated(_ context.Context, userID string) {
	t.mu.Lock()
	t.users = append(t.users, userID)
	t.mu.Unlock()
}

func (t *recordingTrigger) calls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.users...)
}

// --- helpers ---

const testUser = "user-1"

func newRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

func asUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(mw.SetUserID(r.Context(), userID))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Error.Code
}

func ptrTo[T any](v T) *T { return &v }

func dayAgo(n int) *time.Time {
	t := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC).AddDate(0, 0, -n)
	return &t
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
