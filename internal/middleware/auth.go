package middleware

import (
	"net/http"
	"strings"

	"github.com/dukerupert/vitaltrack/internal/auth"
	"github.com/dukerupert/vitaltrack/internal/store"
	"github.com/dukerupert/vitaltrack/internal/token"
)

// RequireAuth validates the bearer token and populates the auth context.
// Unknown or disabled users are rejected even when the token itself is valid.
func RequireAuth(jwtSecret string, users *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w, "invalid authorization header")
				return
			}

			claims, err := token.Validate(jwtSecret, parts[1], token.PurposeAccess)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			user, err := users.GetByID(claims.UserID)
			if err != nil || user == nil {
				unauthorized(w, "unknown user")
				return
			}
			if !user.IsActive {
				unauthorized(w, "account disabled")
				return
			}

			ctx := auth.WithUser(r.Context(), auth.Context{UserID: user.ID, Email: user.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
