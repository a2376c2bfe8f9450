package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ofarooq21/AI-Fitness-Tracker/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Classification jobs ---

func (s *PostgresStore) InsertJobIfAbsent(ctx context.Context, rec *models.MealRecord) (bool, error) {
	r := rec.Result
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO classification_jobs (id, user_id, task_id, file_key, label, confidence, portion_estimate_grams,
		   kcal, protein_g, carbs_g, fat_g, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (task_id) DO NOTHING`,
		rec.ID, rec.UserID, rec.TaskID, r.FileKey, r.Label, r.Confidence, r.PortionEstimateGrams,
		r.Macros.Kcal, r.Macros.ProteinG, r.Macros.CarbsG, r.Macros.FatG, rec.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert classification job: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

const mealColumns = `id, user_id, task_id, file_key, label, confidence, portion_estimate_grams,
	kcal, protein_g, carbs_g, fat_g, created_at`

func scanMeal(row pgx.Row) (*models.MealRecord, error) {
	var rec models.MealRecord
	r := &rec.Result
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.TaskID, &r.FileKey, &r.Label, &r.Confidence,
		&r.PortionEstimateGrams, &r.Macros.Kcal, &r.Macros.ProteinG, &r.Macros.CarbsG, &r.Macros.FatG,
		&rec.CreatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *PostgresStore) GetJobByTaskID(ctx context.Context, taskID string) (*models.MealRecord, error) {
	rec, err := scanMeal(s.pool.QueryRow(ctx,
		`SELECT `+mealColumns+` FROM classification_jobs WHERE task_id = $1`, taskID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get classification job: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListMeals(ctx context.Context, filter MealFilter) ([]*models.MealRecord, error) {
	query := `SELECT ` + mealColumns + ` FROM classification_jobs WHERE user_id = $1`
	args := []any{filter.UserID}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(` AND created_at < $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list meals: %w", err)
	}
	defer rows.Close()

	meals := []*models.MealRecord{}
	for rows.Next() {
		rec, err := scanMeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meal: %w", err)
		}
		meals = append(meals, rec)
	}
	return meals, rows.Err()
}

// --- Strength forecasts ---

func (s *PostgresStore) UpsertForecast(ctx context.Context, f *models.StrengthForecast) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO strength_forecasts (user_id, exercise_name, current_1rm_kg, target_1rm_kg,
		   estimated_completion_date, confidence_score, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, exercise_name) DO UPDATE SET
		   current_1rm_kg = EXCLUDED.current_1rm_kg,
		   target_1rm_kg = EXCLUDED.target_1rm_kg,
		   estimated_completion_date = EXCLUDED.estimated_completion_date,
		   confidence_score = EXCLUDED.confidence_score,
		   updated_at = EXCLUDED.updated_at`,
		f.UserID, f.ExerciseName, f.Current1RMKg, f.Target1RMKg,
		f.EstimatedCompletionDate, f.ConfidenceScore, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert strength forecast: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListForecasts(ctx context.Context, userID string) ([]*models.StrengthForecast, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, exercise_name, current_1rm_kg, target_1rm_kg, estimated_completion_date,
		   confidence_score, updated_at
		 FROM strength_forecasts WHERE user_id = $1 ORDER BY exercise_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list strength forecasts: %w", err)
	}
	defer rows.Close()

	forecasts := []*models.StrengthForecast{}
	for rows.Next() {
		var f models.StrengthForecast
		if err := rows.Scan(&f.UserID, &f.ExerciseName, &f.Current1RMKg, &f.Target1RMKg,
			&f.EstimatedCompletionDate, &f.ConfidenceScore, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan strength forecast: %w", err)
		}
		forecasts = append(forecasts, &f)
	}
	return forecasts, rows.Err()
}

// --- Workouts ---

const workoutColumns = `id, user_id, name, date, exercises, duration_minutes, notes, created_at, updated_at`

func scanWorkout(row pgx.Row) (*models.Workout, error) {
	var w models.Workout
	var exercises []byte
	if err := row.Scan(&w.ID, &w.UserID, &w.Name, &w.Date, &exercises, &w.DurationMinutes,
		&w.Notes, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(exercises, &w.Exercises); err != nil {
		return nil, fmt.Errorf("decode exercises: %w", err)
	}
	return &w, nil
}

func (s *PostgresStore) CreateWorkout(ctx context.Context, w *models.Workout) error {
	exercises, err := marshalList(w.Exercises)
	if err != nil {
		return fmt.Errorf("encode exercises: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO workouts (`+workoutColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		w.ID, w.UserID, w.Name, w.Date, exercises, w.DurationMinutes, w.Notes, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create workout: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetWorkout(ctx context.Context, id uuid.UUID, userID string) (*models.Workout, error) {
	w, err := scanWorkout(s.pool.QueryRow(ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workout: %w", err)
	}
	return w, nil
}

func (s *PostgresStore) ListWorkouts(ctx context.Context, filter WorkoutFilter) ([]*models.Workout, error) {
	query := `SELECT ` + workoutColumns + ` FROM workouts WHERE user_id = $1
		ORDER BY COALESCE(date, created_at) DESC`
	args := []any{filter.UserID}
	if filter.Limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}
	defer rows.Close()

	workouts := []*models.Workout{}
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workout: %w", err)
		}
		workouts = append(workouts, w)
	}
	return workouts, rows.Err()
}

func (s *PostgresStore) UpdateWorkout(ctx context.Context, id uuid.UUID, userID string, patch models.WorkoutPatch) (*models.Workout, error) {
	if patch.Empty() {
		return s.GetWorkout(ctx, id, userID)
	}

	query := `UPDATE workouts SET updated_at = $3`
	args := []any{id, userID, time.Now().UTC()}
	argIdx := 4

	if patch.Name != nil {
		query += fmt.Sprintf(", name = $%d", argIdx)
		args = append(args, *patch.Name)
		argIdx++
	}
	if patch.Exercises != nil {
		exercises, err := marshalList(*patch.Exercises)
		if err != nil {
			return nil, fmt.Errorf("encode exercises: %w", err)
		}
		query += fmt.Sprintf(", exercises = $%d", argIdx)
		args = append(args, exercises)
		argIdx++
	}
	if patch.DurationMinutes != nil {
		query += fmt.Sprintf(", duration_minutes = $%d", argIdx)
		args = append(args, *patch.DurationMinutes)
		argIdx++
	}
	if patch.Notes != nil {
		query += fmt.Sprintf(", notes = $%d", argIdx)
		args = append(args, *patch.Notes)
		argIdx++
	}

	query += ` WHERE id = $1 AND user_id = $2 RETURNING ` + workoutColumns

	w, err := scanWorkout(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update workout: %w", err)
	}
	return w, nil
}

func (s *PostgresStore) DeleteWorkout(ctx context.Context, id uuid.UUID, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM workouts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Goals ---

const goalColumns = `id, user_id, goal_type, title, description, target_weight_kg, target_date,
	strength_goals, status, is_primary, created_at, updated_at`

func scanGoal(row pgx.Row) (*models.Goal, error) {
	var g models.Goal
	var goalType, status string
	var strengthGoals []byte
	if err := row.Scan(&g.ID, &g.UserID, &goalType, &g.Title, &g.Description, &g.TargetWeightKg,
		&g.TargetDate, &strengthGoals, &status, &g.IsPrimary, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.GoalType = models.GoalType(goalType)
	g.Status = models.GoalStatus(status)
	if err := json.Unmarshal(strengthGoals, &g.StrengthGoals); err != nil {
		return nil, fmt.Errorf("decode strength goals: %w", err)
	}
	return &g, nil
}

func (s *PostgresStore) CreateGoal(ctx context.Context, g *models.Goal) error {
	strengthGoals, err := marshalList(g.StrengthGoals)
	if err != nil {
		return fmt.Errorf("encode strength goals: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO goals (`+goalColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		g.ID, g.UserID, string(g.GoalType), g.Title, g.Description, g.TargetWeightKg, g.TargetDate,
		strengthGoals, string(g.Status), g.IsPrimary, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create goal: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListGoals(ctx context.Context, userID string, status models.GoalStatus) ([]*models.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`
	return s.queryGoals(ctx, query, args...)
}

func (s *PostgresStore) ListActiveStrengthGoals(ctx context.Context, userID string) ([]*models.Goal, error) {
	return s.queryGoals(ctx,
		`SELECT `+goalColumns+` FROM goals
		 WHERE user_id = $1 AND goal_type = $2 AND status = $3 ORDER BY created_at`,
		userID, string(models.GoalStrength), string(models.GoalActive))
}

func (s *PostgresStore) queryGoals(ctx context.Context, query string, args ...any) ([]*models.Goal, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	goals := []*models.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (s *PostgresStore) UpdateGoal(ctx context.Context, id uuid.UUID, userID string, patch models.GoalPatch) (*models.Goal, error) {
	if patch.Empty() {
		g, err := scanGoal(s.pool.QueryRow(ctx,
			`SELECT `+goalColumns+` FROM goals WHERE id = $1 AND user_id = $2`, id, userID))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("get goal: %w", err)
		}
		return g, nil
	}

	query := `UPDATE goals SET updated_at = $3`
	args := []any{id, userID, time.Now().UTC()}
	argIdx := 4

	set := func(column string, value any) {
		query += fmt.Sprintf(", %s = $%d", column, argIdx)
		args = append(args, value)
		argIdx++
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.TargetWeightKg != nil {
		set("target_weight_kg", *patch.TargetWeightKg)
	}
	if patch.TargetDate != nil {
		set("target_date", *patch.TargetDate)
	}
	if patch.StrengthGoals != nil {
		strengthGoals, err := marshalList(*patch.StrengthGoals)
		if err != nil {
			return nil, fmt.Errorf("encode strength goals: %w", err)
		}
		set("strength_goals", strengthGoals)
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	if patch.IsPrimary != nil {
		set("is_primary", *patch.IsPrimary)
	}

	query += ` WHERE id = $1 AND user_id = $2 RETURNING ` + goalColumns

	g, err := scanGoal(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update goal: %w", err)
	}
	return g, nil
}

// --- Users ---

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at, updated_at FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

// marshalList encodes a slice for a JSONB column, storing nil as an empty array.
func marshalList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
