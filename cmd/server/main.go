// Command server wires the marketplace services and runs the HTTP API.
// Business logic lives in the internal packages; main only builds the
// dependency graph and owns the process lifecycle.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"roamly/internal/audit"
	auditpg "roamly/internal/audit/store/postgres"
	"roamly/internal/auth"
	"roamly/internal/booking"
	"roamly/internal/business"
	"roamly/internal/jwttoken"
	"roamly/internal/notification"
	"roamly/internal/plan"
	"roamly/internal/platform/config"
	"roamly/internal/platform/httpserver"
	"roamly/internal/platform/logger"
	"roamly/internal/platform/metrics"
	"roamly/internal/platform/postgres"
	platformredis "roamly/internal/platform/redis"
	"roamly/internal/ratelimit"
	"roamly/internal/ratelimit/store/bucket"
	"roamly/internal/review"
	"roamly/internal/user"
	id "roamly/pkg/domain"
	"roamly/pkg/validate"

	audithttp "roamly/internal/audit/handler"
	authhttp "roamly/internal/auth/handler"
	bookinghttp "roamly/internal/booking/handler"
	businesshttp "roamly/internal/business/handler"
	notificationhttp "roamly/internal/notification/handler"
	planhttp "roamly/internal/plan/handler"
	reviewhttp "roamly/internal/review/handler"
	httptransport "roamly/internal/transport/http"
	userhttp "roamly/internal/user/handler"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New(cfg.DevMode)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// activityCounter bridges the user stats endpoint to the booking and
// review services. Fields are set once the services exist.
type activityCounter struct {
	bookings *booking.Service
	reviews  *review.Service
}

func (a *activityCounter) CountBookingsByUser(ctx context.Context, userID id.UserID) (int64, error) {
	if a.bookings == nil {
		return 0, nil
	}
	n, err := a.bookings.CountByUser(ctx, userID)
	return int64(n), err
}

func (a *activityCounter) CountReviewsByAuthor(ctx context.Context, userID id.UserID) (int64, error) {
	if a.reviews == nil {
		return 0, nil
	}
	n, err := a.reviews.CountByAuthor(ctx, userID)
	return int64(n), err
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	validator := validate.New()
	health := map[string]httptransport.HealthChecker{}

	// Storage. Without a postgres URL everything runs on the in-memory
	// stores, which is how local development and the test suite operate.
	var (
		userStore         user.Store
		planStore         plan.Store
		businessStore     business.Store
		bookingStore      booking.Store
		reviewStore       review.Store
		notificationStore notification.Store
		auditStore        audit.Store
		outbox            *auditpg.Store
	)
	if cfg.PostgresURL != "" {
		pool, err := postgres.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		health["postgres"] = httptransport.HealthCheckFunc(pool.Ping)

		userStore = user.NewPostgresStore(pool)
		planStore = plan.NewPostgresStore(pool)
		businessStore = business.NewPostgresStore(pool)
		bookingStore = booking.NewPostgresStore(pool)
		reviewStore = review.NewPostgresStore(pool)
		notificationStore = notification.NewPostgresStore(pool)

		// The audit outbox runs on database/sql so the worker can share a
		// transaction boundary with lib/pq's array helpers.
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		outbox = auditpg.New(db)
		auditStore = outbox
	} else {
		log.Warn("POSTGRES_URL not set, using in-memory stores")
		userStore = user.NewInMemoryStore()
		planStore = plan.NewInMemoryStore()
		businessStore = business.NewInMemoryStore()
		bookingStore = booking.NewInMemoryStore()
		reviewStore = review.NewInMemoryStore()
		notificationStore = notification.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		health["redis"] = httptransport.HealthCheckFunc(redisClient.Health)
	}

	auditor := audit.NewPublisher(auditStore)

	// Services.
	activity := &activityCounter{}
	userSvc := user.NewService(userStore, activity, auditor, log)
	planSvc := plan.NewService(planStore, log)
	businessSvc := business.NewService(businessStore, auditor, log)

	dispatcher := notification.NewDispatcher(notificationStore, notification.Senders{
		Push:  notification.NewLogSender(notification.ChannelPush, log),
		Email: notification.NewLogSender(notification.ChannelEmail, log),
		SMS:   notification.NewLogSender(notification.ChannelSMS, log),
	}, m, log)
	notificationSvc := notification.NewService(notificationStore, userSvc, dispatcher, log)

	bookingSvc := booking.NewService(bookingStore, planSvc, auditor,
		notification.NewBookingEvents(notificationSvc), m, log)
	reviewSvc := review.NewService(reviewStore, bookingSvc, planSvc, auditor, m, log)
	activity.bookings = bookingSvc
	activity.reviews = reviewSvc

	var sessionStore auth.SessionStore
	if redisClient != nil {
		sessionStore = auth.NewRedisSessionStore(redisClient.Client)
	} else {
		sessionStore = auth.NewInMemorySessionStore()
	}
	tokens := jwttoken.New(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)
	authSvc := auth.NewService(userSvc, sessionStore, tokens, auditor, log,
		cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	userSvc.SetSessionRevoker(authSvc)

	// Rate limiting rides on redis with an in-memory fallback; without
	// redis the in-memory store serves alone.
	memoryBuckets := bucket.NewInMemory()
	primary := ratelimit.BucketStore(memoryBuckets)
	if redisClient != nil {
		primary = bucket.NewRedis(redisClient.Client)
	}
	limiter := ratelimit.New(primary, memoryBuckets, cfg.RateLimit, log, m)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:        log,
		Metrics:       m,
		Tokens:        tokens,
		Limiter:       limiter,
		Auth:          authhttp.New(authSvc, log, validator),
		Users:         userhttp.New(userSvc, log, validator),
		Plans:         planhttp.New(planSvc, log, validator),
		Businesses:    businesshttp.New(businessSvc, log, validator),
		Bookings:      bookinghttp.New(bookingSvc, log, validator),
		Reviews:       reviewhttp.New(reviewSvc, log, validator),
		Notifications: notificationhttp.New(notificationSvc, log),
		Audit:         audithttp.New(auditor, log),
		HealthChecks:  health,
	})

	// The outbox worker ships audit events to Kafka and purges published
	// rows past retention. It only runs with both postgres and brokers.
	if outbox != nil && len(cfg.Kafka.Brokers) > 0 {
		sink, err := audit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return err
		}
		defer sink.Close()

		worker := audit.NewWorker(outbox, sink, log, cfg.Audit.PollInterval, cfg.Audit.Retention)
		go worker.Run(ctx)
	}

	srv := httpserver.New(cfg.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
