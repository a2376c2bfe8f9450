package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/ofarooq21/AI-Fitness-Tracker/internal/api/response"
)

// Recovery turns a handler panic into a 500 envelope and logs it with the
// request line and the authenticated user, when Authenticate ran first.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, who := trackCaller(r)
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			attrs := []any{
				"panic", rec,
				"method", r.Method,
				"path", r.URL.Path,
			}
			if userID := who.get(); userID != "" {
				attrs = append(attrs, "user_id", userID)
			}
			attrs = append(attrs, "stack", string(debug.Stack()))
			slog.ErrorContext(r.Context(), "handler panicked", attrs...)

			response.Internal(w)
		}()
		next.ServeHTTP(w, r)
	})
}
