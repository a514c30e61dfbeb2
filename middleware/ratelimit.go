package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/yourusername/relaygate/core"
	"github.com/yourusername/relaygate/store"
)

// ReasonRateLimitExceeded is the machine-readable reason on 429 responses
const ReasonRateLimitExceeded = "rate_limit_exceeded"

// Recorder receives admission decisions
type Recorder interface {
	RecordAdmission(clientID string, allowed bool)
}

// RateLimiter is the admission controller in front of the relay.
// It is safe for concurrent use.
type RateLimiter struct {
	policy  core.Config
	store   store.Store
	keyFunc KeyFunc
	metrics Recorder
	logger  *zap.Logger
	now     func() time.Time
}

// Config for creating a rate limiter
type Config struct {
	Limit   int           // Maximum admitted requests per window
	Window  time.Duration // Sliding window length
	KeyFunc KeyFunc       // Optional: custom key extraction (defaults to ClientIdentity)
	Store   store.Store   // Optional: custom store (defaults to in-memory)
	Metrics Recorder      // Optional
	Logger  *zap.Logger   // Optional
}

// RateLimitResponse is the body written on rejection
type RateLimitResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          string `json:"code"`
	Limit         int    `json:"limit"`
	WindowSeconds int64  `json:"window_seconds"`
}

// NewRateLimiter creates a new admission controller
func NewRateLimiter(config Config) *RateLimiter {
	policy := core.Config{Limit: config.Limit, Window: config.Window}

	if config.KeyFunc == nil {
		config.KeyFunc = ClientIdentity
	}

	if config.Store == nil {
		config.Store = store.NewMemoryStore(policy)
	}

	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &RateLimiter{
		policy:  policy,
		store:   config.Store,
		keyFunc: config.KeyFunc,
		metrics: config.Metrics,
		logger:  config.Logger,
		now:     time.Now,
	}
}

// Admit reports whether a request from clientID at now may proceed.
// Only admitted requests count against future windows.
func (rl *RateLimiter) Admit(clientID string, now time.Time) bool {
	return rl.check(context.Background(), clientID, now).Allowed
}

// check consults the store. A failing backend admits the request so an
// outage of a shared store never takes the proxy down with it.
func (rl *RateLimiter) check(ctx context.Context, clientID string, now time.Time) core.CheckResult {
	result, err := rl.store.Check(ctx, clientID, now)
	if err != nil {
		rl.logger.Warn("window store check failed, admitting request",
			zap.String("client", clientID),
			zap.Error(err))
		return core.CheckResult{Allowed: true, Limit: rl.policy.Limit, Remaining: rl.policy.Limit}
	}

	if rl.metrics != nil {
		rl.metrics.RecordAdmission(clientID, result.Allowed)
	}
	return result
}

// Middleware wraps an http.Handler with admission control
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.keyFunc(r)

		result := rl.check(r.Context(), key, rl.now())

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.policy.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			rl.logger.Info("rate limit exceeded",
				zap.String("client", key),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path))

			retryAfterSec := int64(math.Ceil(result.RetryAfter.Seconds()))
			if retryAfterSec < 1 {
				retryAfterSec = 1
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfterSec, 10))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)

			_ = json.NewEncoder(w).Encode(RateLimitResponse{
				Error:         "Too many requests",
				Message:       rl.limitMessage(),
				Code:          ReasonRateLimitExceeded,
				Limit:         rl.policy.Limit,
				WindowSeconds: int64(rl.policy.Window / time.Second),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// limitMessage renders the human-readable limit
func (rl *RateLimiter) limitMessage() string {
	if rl.policy.Window == time.Minute {
		return fmt.Sprintf("Rate limit exceeded: %d requests per minute", rl.policy.Limit)
	}
	return fmt.Sprintf("Rate limit exceeded: %d requests per %s", rl.policy.Limit, rl.policy.Window)
}
