package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/ofarooq21/AI-Fitness-Tracker/internal/api/middleware"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler   http.HandlerFunc
	RegisterHandler http.HandlerFunc
	LoginHandler    http.HandlerFunc

	PresignHandler  http.HandlerFunc
	ScanMealHandler http.HandlerFunc
	PollJobHandler  http.HandlerFunc
	ListMeals       http.HandlerFunc
	DailyNutrition  http.HandlerFunc

	CreateWorkout    http.HandlerFunc
	ListWorkouts     http.HandlerFunc
	GetWorkout       http.HandlerFunc
	UpdateWorkout    http.HandlerFunc
	DeleteWorkout    http.HandlerFunc
	StrengthProgress http.HandlerFunc

	CreateGoal http.HandlerFunc
	ListGoals  http.HandlerFunc
	UpdateGoal http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public routes
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Post("/api/v1/users/register", orNotImplemented(deps.RegisterHandler))
	r.Post("/api/v1/users/login", orNotImplemented(deps.LoginHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/meals/presign", orNotImplemented(deps.PresignHandler))
		r.Post("/api/v1/meals/scan", orNotImplemented(deps.ScanMealHandler))
		r.Get("/api/v1/meals/jobs/{taskID}", orNotImplemented(deps.PollJobHandler))
		r.Get("/api/v1/meals", orNotImplemented(deps.ListMeals))
		r.Get("/api/v1/meals/daily/{date}", orNotImplemented(deps.DailyNutrition))

		r.Post("/api/v1/workouts", orNotImplemented(deps.CreateWorkout))
		r.Get("/api/v1/workouts", orNotImplemented(deps.ListWorkouts))
		// Registered before {workoutID} so "strength" is never parsed as an id.
		r.Get("/api/v1/workouts/strength/progress", orNotImplemented(deps.StrengthProgress))
		r.Get("/api/v1/workouts/{workoutID}", orNotImplemented(deps.GetWorkout))
		r.Put("/api/v1/workouts/{workoutID}", orNotImplemented(deps.UpdateWorkout))
		r.Delete("/api/v1/workouts/{workoutID}", orNotImplemented(deps.DeleteWorkout))

		r.Post("/api/v1/goals", orNotImplemented(deps.CreateGoal))
		r.Get("/api/v1/goals", orNotImplemented(deps.ListGoals))
		r.Put("/api/v1/goals/{goalID}", orNotImplemented(deps.UpdateGoal))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
