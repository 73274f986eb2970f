package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"productory/internal/auth"
	"productory/internal/store"
	"productory/pkg/api"

	"github.com/google/uuid"
)

// CreateUser handles POST /users (admin only).
// It generates a new API Key, hashes it for storage, and returns the raw key ONCE.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		h.httpError(w, "A valid email is required", http.StatusBadRequest)
		return
	}

	apiKey, err := auth.GenerateKey()
	if err != nil {
		h.httpError(w, "Entropy failure", http.StatusInternalServerError)
		return
	}

	user := &store.User{
		ID:             uuid.NewString(),
		Email:          email,
		RateLimit:      h.cfg.DefaultRateLimit,
		RateLimitBurst: h.cfg.DefaultRateBurst,
		CreatedAt:      time.Now().UTC(),
	}

	if err := h.users.CreateUser(ctx, user, auth.HashKey(apiKey)); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			h.httpError(w, "User already exists", http.StatusConflict)
			return
		}
		h.log(r).Error("failed to create user", "error", err)
		h.httpError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	h.log(r).Info("user created", "user_id", user.ID)

	// Return the Raw Key (This is the only time the user sees it)
	h.respondJson(w, http.StatusCreated, api.CreateUserResponse{
		ID:     user.ID,
		Email:  user.Email,
		ApiKey: apiKey,
	})
}
