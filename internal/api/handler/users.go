package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/api/response"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/auth"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/store"
	"github.com/ofarooq21/AI-Fitness-Tracker/pkg/models"
)

// TokenIssuer mints access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NewRegisterHandler returns an http.HandlerFunc for POST /api/v1/users/register.
func NewRegisterHandler(users store.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			credentials
			Name string `json:"name"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}

		email := normalizeEmail(req.Email)
		if _, err := mail.ParseAddress(email); err != nil {
			response.Invalid(w, "email must be a valid address")
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrPasswordTooShort) {
				response.Invalid(w, err.Error())
				return
			}
			response.Internal(w)
			return
		}

		now := time.Now().UTC()
		user := &models.User{
			ID:           uuid.New(),
			Email:        email,
			Name:         strings.TrimSpace(req.Name),
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := users.CreateUser(r.Context(), user); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Error(w, http.StatusConflict, "EMAIL_TAKEN", "Email already registered", nil)
				return
			}
			slog.Error("create user", "error", err)
			response.Internal(w)
			return
		}

		response.Created(w, user)
	}
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewLoginHandler returns an http.HandlerFunc for POST /api/v1/users/login.
func NewLoginHandler(users store.UserStore, issuer TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if !decodeJSON(w, r, &req) {
			return
		}

		user, err := users.GetUserByEmail(r.Context(), normalizeEmail(req.Email))
		switch {
		case errors.Is(err, store.ErrNotFound):
			response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
			return
		case err != nil:
			slog.Error("load user", "error", err)
			response.Internal(w)
			return
		}

		if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
			response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
			return
		}

		token, expiresAt, err := issuer.Issue(user.ID.String())
		if err != nil {
			slog.Error("issue token", "error", err)
			response.Internal(w)
			return
		}

		response.JSON(w, tokenResponse{AccessToken: token, TokenType: "bearer", ExpiresAt: expiresAt.UTC()})
	}
}
