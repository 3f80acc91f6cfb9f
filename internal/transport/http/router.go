// Package httptransport wires the per-domain handlers, middleware stack,
// and operational endpoints into the public router.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auditthttp "roamly/internal/audit/handler"
	authhttp "roamly/internal/auth/handler"
	bookinghttp "roamly/internal/booking/handler"
	businesshttp "roamly/internal/business/handler"
	notificationhttp "roamly/internal/notification/handler"
	planhttp "roamly/internal/plan/handler"
	"roamly/internal/platform/metrics"
	"roamly/internal/platform/middleware"
	"roamly/internal/ratelimit"
	reviewhttp "roamly/internal/review/handler"
	userhttp "roamly/internal/user/handler"
	id "roamly/pkg/domain"
	"roamly/pkg/platform/httputil"
)

// requestTimeout bounds every handler; long-running work happens in
// background workers, never inside a request.
const requestTimeout = 30 * time.Second

// HealthChecker reports one dependency's availability.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthCheckFunc adapts a function to the HealthChecker interface.
type HealthCheckFunc func(ctx context.Context) error

func (f HealthCheckFunc) Health(ctx context.Context) error {
	return f(ctx)
}

// Deps collects everything the router mounts. Nil optional entries
// (limiter, health checks) are skipped.
type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Tokens  middleware.TokenValidator
	Limiter *ratelimit.Middleware

	Auth          *authhttp.Handler
	Users         *userhttp.Handler
	Plans         *planhttp.Handler
	Businesses    *businesshttp.Handler
	Bookings      *bookinghttp.Handler
	Reviews       *reviewhttp.Handler
	Notifications *notificationhttp.Handler
	Audit         *auditthttp.Handler

	HealthChecks map[string]HealthChecker
}

// NewRouter builds the full route tree under /api/v1 plus the operational
// endpoints.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Latency(deps.Metrics))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", handleHealth(deps.Logger, deps.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.ContentTypeJSON)

		// Unauthenticated browse surface.
		api.Group(func(pub chi.Router) {
			pub.Use(limit(deps.Limiter, ratelimit.ClassPublic))
			deps.Plans.RegisterPublic(pub)
			deps.Businesses.RegisterPublic(pub)
			deps.Reviews.RegisterPublic(pub)
		})

		// Credential endpoints carry the tightest budget.
		api.Group(func(authn chi.Router) {
			authn.Use(limit(deps.Limiter, ratelimit.ClassAuth))
			deps.Auth.RegisterPublic(authn)
		})

		api.Group(func(protected chi.Router) {
			protected.Use(middleware.RequireAuth(deps.Tokens, deps.Logger))
			protected.Use(limit(deps.Limiter, ratelimit.ClassAuthenticated))

			deps.Auth.RegisterProtected(protected)
			deps.Users.Register(protected)
			deps.Plans.RegisterProtected(protected)
			deps.Businesses.RegisterProtected(protected)
			deps.Bookings.Register(protected)
			deps.Reviews.RegisterProtected(protected)
			deps.Notifications.Register(protected)

			protected.Group(func(admin chi.Router) {
				admin.Use(middleware.RequireRole(deps.Logger, id.RoleAdmin, id.RoleSuperAdmin))
				deps.Businesses.RegisterAdmin(admin)
				deps.Reviews.RegisterAdmin(admin)
				deps.Audit.RegisterAdmin(admin)
			})
		})
	})

	return r
}

func limit(m *ratelimit.Middleware, class ratelimit.EndpointClass) func(http.Handler) http.Handler {
	if m == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return m.Limit(class)
}

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func handleHealth(logger *slog.Logger, checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := healthStatus{Status: "ok", Checks: make(map[string]string, len(checks))}
		code := http.StatusOK
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
				status.Checks[name] = "unavailable"
				status.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, code, "health", status)
	}
}
