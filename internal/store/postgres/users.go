package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"productory/internal/store"

	"github.com/lib/pq"
)

// SQLSTATE for unique_violation.
const uniqueViolation = "23505"

func (s *Store) CreateUser(ctx context.Context, user *store.User, hashedKey string) error {
	query := `
		INSERT INTO users (id, email, api_key_hash, rate_limit, rate_limit_burst, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		hashedKey,
		user.RateLimit,
		user.RateLimitBurst,
		user.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("failed to create user %s: %w", user.Email, store.ErrUserExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByAPIKeyHash(ctx context.Context, hash string) (*store.User, error) {
	query := "SELECT id, email, rate_limit, rate_limit_burst, created_at FROM users WHERE api_key_hash = $1"

	var u store.User

	err := s.db.QueryRowContext(ctx, query, hash).Scan(
		&u.ID,
		&u.Email,
		&u.RateLimit,
		&u.RateLimitBurst,
		&u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &u, nil
}
