package handler

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/ofarooq21/AI-Fitness-Tracker/internal/api/middleware"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/api/response"
)

// requireUser writes 401 and returns false when the request carries no authenticated user.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := mw.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
		return "", false
	}
	return userID, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.Invalid(w, "Invalid JSON body")
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		response.Invalid(w, param+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// queryInt reads an integer query parameter, falling back to def when absent.
func queryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", key, lo, hi)
	}
	return v, nil
}

// pageParams reads limit and offset, writing 400 when either is out of range.
func pageParams(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	limit, err := queryInt(r, "limit", defaultPageLimit, 1, maxPageLimit)
	if err != nil {
		response.Invalid(w, err.Error())
		return 0, 0, false
	}
	offset, err = queryInt(r, "offset", 0, 0, math.MaxInt32)
	if err != nil {
		response.Invalid(w, err.Error())
		return 0, 0, false
	}
	return limit, offset, true
}
