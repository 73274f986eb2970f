// Package middleware contains HTTP middleware for the controller.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"productory/internal/auth"
	"productory/internal/logger"
	"productory/internal/store"
	"productory/pkg/api"
)

// userKey is the context key for the authenticated user.
type userKey struct{}

// AuthMiddleware resolves the Bearer API key to a user and stores it in the request context.
// Every job and file operation is scoped by that user.
func AuthMiddleware(users store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, "Missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				writeError(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}

			user, err := users.GetUserByAPIKeyHash(r.Context(), auth.HashKey(parts[1]))
			if err != nil && !errors.Is(err, store.ErrUserNotFound) {
				writeError(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if user == nil {
				writeError(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			ctx := NewContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewContextWithUser stores user in ctx and tags the context logger fields with its ID.
func NewContextWithUser(ctx context.Context, user *store.User) context.Context {
	ctx = context.WithValue(ctx, userKey{}, user)
	return logger.WithUserID(ctx, user.ID)
}

// UserFromContext extracts the authenticated user from the context.
func UserFromContext(ctx context.Context) (*store.User, bool) {
	user, ok := ctx.Value(userKey{}).(*store.User)
	return user, ok && user != nil
}

// UserIDFromContext extracts the authenticated user's ID from the context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return "", false
	}
	return user.ID, true
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}
