package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces each user's request rate. Limiters are cached per user
// and rebuilt after ttl so rate changes take effect without a restart.
type RateLimiter struct {
	limiters sync.Map // userID -> *cachedLimiter
	ttl      time.Duration
	now      func() time.Time
}

// Option configures a RateLimiter.
type Option func(*RateLimiter)

// WithTTL sets how long a cached limiter is reused.
func WithTTL(ttl time.Duration) Option {
	return func(rl *RateLimiter) { rl.ttl = ttl }
}

// NewRateLimiter returns a limiter with a five minute cache TTL unless overridden.
func NewRateLimiter(opts ...Option) *RateLimiter {
	rl := &RateLimiter{ttl: 5 * time.Minute, now: time.Now}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Middleware must run after AuthMiddleware.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				writeError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// RateLimit=0 means unlimited
			if user.RateLimit > 0 {
				limiter := rl.limiterFor(user.ID, user.RateLimit, user.RateLimitBurst)
				if !limiter.Allow() {
					w.Header().Set("Retry-After", "1")
					writeError(w, "Too Many Requests", http.StatusTooManyRequests)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

type cachedLimiter struct {
	limiter   *rate.Limiter
	expiresAt time.Time
}

func (rl *RateLimiter) limiterFor(userID string, perSecond, burst int) *rate.Limiter {
	now := rl.now()
	if v, ok := rl.limiters.Load(userID); ok {
		cached := v.(*cachedLimiter)
		if now.Before(cached.expiresAt) {
			return cached.limiter
		}
		// expired, need to create new
	}

	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	rl.limiters.Store(userID, &cachedLimiter{
		limiter:   limiter,
		expiresAt: now.Add(rl.ttl),
	})
	return limiter
}
