package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/api/response"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/classify"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/store"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/upload"
	"github.com/ofarooq21/AI-Fitness-Tracker/pkg/models"
)

// Classifications is what the meal handlers need from the job orchestrator.
type Classifications interface {
	Submit(ctx context.Context, fileKey string) (*models.ClassificationJob, error)
	Poll(ctx context.Context, userID, taskID string) (*models.ClassificationJob, error)
}

// NewPresignHandler returns an http.HandlerFunc for GET /api/v1/meals/presign.
// A nil presigner means storage is not configured.
func NewPresignHandler(p upload.Presigner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p == nil {
			response.Error(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE",
				"Uploads are not configured", nil)
			return
		}

		fileKey := strings.TrimSpace(r.URL.Query().Get("file_key"))
		if fileKey == "" {
			response.Invalid(w, "file_key is required")
			return
		}

		post, err := p.PresignUpload(r.Context(), fileKey, r.URL.Query().Get("content_type"))
		if err != nil {
			if errors.Is(err, upload.ErrInvalidKey) {
				response.Invalid(w, err.Error())
				return
			}
			slog.Error("presign upload", "file_key", fileKey, "error", err)
			response.Error(w, http.StatusBadGateway, "STORAGE_ERROR", "Could not presign upload", nil)
			return
		}

		response.JSON(w, post)
	}
}

// NewScanMealHandler returns an http.HandlerFunc for POST /api/v1/meals/scan.
func NewScanMealHandler(svc Classifications) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireUser(w, r); !ok {
			return
		}

		var req struct {
			FileKey string `json:"file_key"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}

		job, err := svc.Submit(r.Context(), req.FileKey)
		if err != nil {
			if errors.Is(err, classify.ErrEmptyFileKey) {
				response.Invalid(w, "file_key is required")
				return
			}
			slog.Error("submit classification", "error", err)
			response.Error(w, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE",
				"Could not queue classification", nil)
			return
		}

		response.Accepted(w, job)
	}
}

// NewPollJobHandler returns an http.HandlerFunc for GET /api/v1/meals/jobs/{taskID}.
func NewPollJobHandler(svc Classifications) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		job, err := svc.Poll(r.Context(), userID, chi.URLParam(r, "taskID"))
		if err != nil {
			switch {
			case errors.Is(err, classify.ErrEmptyTaskID):
				response.Invalid(w, "taskID is required")
			case errors.Is(err, classify.ErrJobFailed):
				response.Error(w, http.StatusInternalServerError, "CLASSIFICATION_FAILED",
					"Classification task failed", nil)
			case errors.Is(err, classify.ErrMalformedResult):
				response.Error(w, http.StatusInternalServerError, "MALFORMED_RESULT",
					"Classification returned a malformed result", nil)
			default:
				slog.Error("poll classification", "user_id", userID, "error", err)
				response.Internal(w)
			}
			return
		}

		response.JSON(w, job)
	}
}

// NewListMealsHandler returns an http.HandlerFunc for GET /api/v1/meals.
// Optional from and to query dates bound the range in UTC days, both inclusive.
func NewListMealsHandler(meals store.MealStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		limit, offset, ok := pageParams(w, r)
		if !ok {
			return
		}

		filter := store.MealFilter{UserID: userID, Limit: limit, Offset: offset}
		if raw := r.URL.Query().Get("from"); raw != "" {
			day, err := parseDay(raw)
			if err != nil {
				response.Invalid(w, "from must be a date like 2026-01-31")
				return
			}
			filter.From = day
		}
		if raw := r.URL.Query().Get("to"); raw != "" {
			day, err := parseDay(raw)
			if err != nil {
				response.Invalid(w, "to must be a date like 2026-01-31")
				return
			}
			filter.To = day.AddDate(0, 0, 1)
		}
		if !filter.From.IsZero() && !filter.To.IsZero() && !filter.From.Before(filter.To) {
			response.Invalid(w, "from must not be after to")
			return
		}

		records, err := meals.ListMeals(r.Context(), filter)
		if err != nil {
			slog.Error("list meals", "user_id", userID, "error", err)
			response.Internal(w)
			return
		}
		response.Page(w, records, limit, offset)
	}
}

// NewDailyNutritionHandler returns an http.HandlerFunc for
// GET /api/v1/meals/daily/{date}.
func NewDailyNutritionHandler(meals store.MealStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		day, err := parseDay(chi.URLParam(r, "date"))
		if err != nil {
			response.Invalid(w, "date must be a date like 2026-01-31")
			return
		}

		records, err := meals.ListMeals(r.Context(), store.MealFilter{
			UserID: userID,
			From:   day,
			To:     day.AddDate(0, 0, 1),
		})
		if err != nil {
			slog.Error("daily nutrition", "user_id", userID, "date", day.Format(models.DateLayout), "error", err)
			response.Internal(w)
			return
		}
		response.JSON(w, models.SummarizeDay(day, records))
	}
}

func parseDay(raw string) (time.Time, error) {
	return time.ParseInLocation(models.DateLayout, raw, time.UTC)
}
