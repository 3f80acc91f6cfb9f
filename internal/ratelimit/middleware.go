package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"roamly/internal/platform/config"
	"roamly/internal/platform/metrics"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/platform/httputil"
	"roamly/pkg/requestcontext"
)

// BucketStore is the sliding window store contract, satisfied by the Redis
// and in-memory implementations.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
	Reset(ctx context.Context, key string) error
}

// Middleware applies per-class sliding window limits. Store failures trip a
// circuit breaker that degrades to the in-memory fallback instead of either
// failing open silently or taking the API down.
type Middleware struct {
	primary  BucketStore
	fallback BucketStore
	breaker  *CircuitBreaker
	cfg      config.RateLimitConfig
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// New builds the rate limit middleware. fallback must be an in-memory store;
// primary may equal fallback when Redis is not configured.
func New(primary, fallback BucketStore, cfg config.RateLimitConfig, logger *slog.Logger, m *metrics.Metrics) *Middleware {
	return &Middleware{
		primary:  primary,
		fallback: fallback,
		breaker:  newCircuitBreaker(),
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
	}
}

// Limit returns middleware enforcing the budget for the given class. Public
// and auth classes key on client IP; the authenticated class keys on user ID
// when present, falling back to IP.
func (m *Middleware) Limit(class EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.cfg.Disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			identity := requestcontext.ClientIP(ctx)
			if class == ClassAuthenticated {
				if userID := requestcontext.UserID(ctx); !userID.IsNil() {
					identity = userID.String()
				}
			}

			result, degraded := m.check(ctx, Key(class, identity), m.limitFor(class))
			if result == nil {
				// Both primary and fallback failed; let the request through
				// rather than hard-failing every caller on limiter trouble.
				next.ServeHTTP(w, r)
				return
			}

			addHeaders(w, result, degraded)
			if !result.Allowed {
				m.metrics.IncrementRateLimitRejection(string(class))
				httputil.WriteError(w, m.logger, domerrors.New(domerrors.CodeRateLimited, "too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) limitFor(class EndpointClass) int {
	if class == ClassAuth {
		return m.cfg.AuthLimit
	}
	return m.cfg.PublicLimit
}

// check consults the primary store unless the breaker is open, in which case
// the fallback serves; primary errors feed the breaker.
func (m *Middleware) check(ctx context.Context, key string, limit int) (*Result, bool) {
	if m.breaker.IsOpen() {
		result, err := m.primary.Allow(ctx, key, limit, m.cfg.Window)
		if err == nil && m.breaker.RecordSuccess() {
			return result, false
		}
		if err != nil {
			m.breaker.RecordFailure()
		}
		fb, fbErr := m.fallback.Allow(ctx, key, limit, m.cfg.Window)
		if fbErr != nil {
			m.logger.ErrorContext(ctx, "rate limit fallback failed", "error", fbErr)
			return nil, true
		}
		return fb, true
	}

	result, err := m.primary.Allow(ctx, key, limit, m.cfg.Window)
	if err != nil {
		m.logger.ErrorContext(ctx, "rate limit primary store failed", "error", err)
		m.breaker.RecordFailure()
		fb, fbErr := m.fallback.Allow(ctx, key, limit, m.cfg.Window)
		if fbErr != nil {
			return nil, true
		}
		return fb, true
	}
	m.breaker.RecordSuccess()
	return result, false
}

func addHeaders(w http.ResponseWriter, result *Result, degraded bool) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	if degraded {
		h.Set("X-RateLimit-Status", "degraded")
	}
	if !result.Allowed {
		retryAfter := int(time.Until(result.ResetAt).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		h.Set("Retry-After", strconv.Itoa(retryAfter))
	}
}
