package httptransport_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"roamly/internal/audit"
	"roamly/internal/auth"
	"roamly/internal/booking"
	"roamly/internal/business"
	"roamly/internal/jwttoken"
	"roamly/internal/notification"
	"roamly/internal/plan"
	"roamly/internal/platform/metrics"
	"roamly/internal/review"
	"roamly/internal/user"
	httptransport "roamly/internal/transport/http"
	id "roamly/pkg/domain"
	"roamly/pkg/testutil"
	"roamly/pkg/validate"

	audithttp "roamly/internal/audit/handler"
	authhttp "roamly/internal/auth/handler"
	bookinghttp "roamly/internal/booking/handler"
	businesshttp "roamly/internal/business/handler"
	notificationhttp "roamly/internal/notification/handler"
	planhttp "roamly/internal/plan/handler"
	reviewhttp "roamly/internal/review/handler"
	userhttp "roamly/internal/user/handler"
)

// sharedMetrics registers collectors once; promauto panics on duplicates.
var sharedMetrics = metrics.New()

// lateActivity defers the user-stats wiring until the booking and review
// services exist, the same shape main uses.
type lateActivity struct {
	bookings *booking.Service
	reviews  *review.Service
}

func (a *lateActivity) CountBookingsByUser(ctx context.Context, userID id.UserID) (int64, error) {
	n, err := a.bookings.CountByUser(ctx, userID)
	return int64(n), err
}

func (a *lateActivity) CountReviewsByAuthor(ctx context.Context, userID id.UserID) (int64, error) {
	n, err := a.reviews.CountByAuthor(ctx, userID)
	return int64(n), err
}

// newAPI assembles the whole stack on in-memory stores behind the real
// router, so requests cross every middleware and handler.
func newAPI() http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	validator := validate.New()
	auditor := audit.NewPublisher(audit.NewInMemoryStore())

	activity := &lateActivity{}
	userSvc := user.NewService(user.NewInMemoryStore(), activity, auditor, log)
	planSvc := plan.NewService(plan.NewInMemoryStore(), log)
	businessSvc := business.NewService(business.NewInMemoryStore(), auditor, log)

	notificationStore := notification.NewInMemoryStore()
	dispatcher := notification.NewDispatcher(notificationStore, notification.Senders{
		Push:  notification.NewLogSender(notification.ChannelPush, log),
		Email: notification.NewLogSender(notification.ChannelEmail, log),
		SMS:   notification.NewLogSender(notification.ChannelSMS, log),
	}, sharedMetrics, log)
	notificationSvc := notification.NewService(notificationStore, userSvc, dispatcher, log)

	bookingSvc := booking.NewService(booking.NewInMemoryStore(), planSvc, auditor,
		notification.NewBookingEvents(notificationSvc), sharedMetrics, log)
	reviewSvc := review.NewService(review.NewInMemoryStore(), bookingSvc, planSvc, auditor, sharedMetrics, log)
	activity.bookings = bookingSvc
	activity.reviews = reviewSvc

	tokens := jwttoken.New("e2e-signing-key", "roamly", "roamly-api")
	authSvc := auth.NewService(userSvc, auth.NewInMemorySessionStore(), tokens, auditor, log,
		15*time.Minute, 30*24*time.Hour)
	userSvc.SetSessionRevoker(authSvc)

	return httptransport.NewRouter(httptransport.Deps{
		Logger:        log,
		Metrics:       sharedMetrics,
		Tokens:        tokens,
		Auth:          authhttp.New(authSvc, log, validator),
		Users:         userhttp.New(userSvc, log, validator),
		Plans:         planhttp.New(planSvc, log, validator),
		Businesses:    businesshttp.New(businessSvc, log, validator),
		Bookings:      bookinghttp.New(bookingSvc, log, validator),
		Reviews:       reviewhttp.New(reviewSvc, log, validator),
		Notifications: notificationhttp.New(notificationSvc, log),
		Audit:         audithttp.New(auditor, log),
	})
}

func do(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = testutil.NewJSONRequest(t, method, path, body)
	} else {
		req = testutil.NewRequest(t, method, path)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return testutil.DoRequest(router, req)
}

type authPayload struct {
	User   user.User      `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

func registerAccount(t *testing.T, router http.Handler, email string) *authPayload {
	t.Helper()
	rr := do(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email":    email,
		"password": "correct-horse-battery",
	})
	testutil.AssertStatus(t, rr, http.StatusCreated)
	return testutil.UnmarshalData[authPayload](t, rr)
}

func publishPlan(t *testing.T, router http.Handler, token, title string) *plan.Plan {
	t.Helper()
	rr := do(t, router, http.MethodPost, "/api/v1/plans", token, map[string]any{
		"title":         title,
		"description":   "A slow morning across the terraced vineyards of the Douro.",
		"category":      "nature",
		"price":         map[string]any{"amount": 45, "currency": "EUR"},
		"durationHours": 6,
		"address":       map[string]any{"city": "Porto", "country": "PT", "latitude": 41.14, "longitude": -8.61},
		"capacity":      map[string]any{"min": 1, "max": 8},
		"difficulty":    "moderate",
		"schedule":      map[string]any{"weekdays": []int{6, 0}, "timeSlots": []string{"09:00"}},
	})
	testutil.AssertStatus(t, rr, http.StatusCreated)
	return testutil.UnmarshalData[plan.Plan](t, rr)
}

func bookPlan(t *testing.T, router http.Handler, token, planID string, date time.Time) *booking.Booking {
	t.Helper()
	rr := do(t, router, http.MethodPost, "/api/v1/bookings", token, map[string]any{
		"planId":   planID,
		"date":     date.Format(time.RFC3339),
		"timeSlot": "09:00",
		"guests":   map[string]any{"adults": 2, "children": 1},
		"contact":  map[string]any{"name": "Alice Example", "email": "alice@example.com"},
	})
	testutil.AssertStatus(t, rr, http.StatusCreated)
	return testutil.UnmarshalData[booking.Booking](t, rr)
}

func TestBookingLifecycleEndToEnd(t *testing.T) {
	router := newAPI()

	var (
		alice *authPayload
		owner *authPayload
		trip  *plan.Plan
	)

	testutil.Given(t, "a registered traveller and a published plan", func(t *testing.T) {
		alice = registerAccount(t, router, "alice@example.com")
		owner = registerAccount(t, router, "owner@example.com")
		trip = publishPlan(t, router, owner.Tokens.AccessToken, "Douro Valley Hike")
		require.NotEmpty(t, trip.Slug)
	})

	testutil.When(t, "alice books for 2 adults and 1 child", func(t *testing.T) {
		b := bookPlan(t, router, alice.Tokens.AccessToken, trip.ID.String(), time.Now().Add(72*time.Hour))
		require.Equal(t, 3, b.Guests.Total)
		require.Equal(t, booking.StatusPending, b.Status)
		require.NotEmpty(t, b.ConfirmationCode)
	})

	testutil.Then(t, "cancellation honors the 24 hour window", func(t *testing.T) {
		late := bookPlan(t, router, alice.Tokens.AccessToken, trip.ID.String(), time.Now().Add(23*time.Hour))
		rr := do(t, router, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%s/cancel", late.ID), alice.Tokens.AccessToken, nil)
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")

		early := bookPlan(t, router, alice.Tokens.AccessToken, trip.ID.String(), time.Now().Add(25*time.Hour))
		rr = do(t, router, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%s/cancel", early.ID), alice.Tokens.AccessToken, nil)
		testutil.AssertStatus(t, rr, http.StatusOK)

		cancelled := testutil.UnmarshalData[booking.Booking](t, rr)
		require.Equal(t, booking.StatusCancelled, cancelled.Status)
		last := cancelled.StatusHistory[len(cancelled.StatusHistory)-1]
		require.Equal(t, booking.StatusCancelled, last.Status)
	})

	testutil.Then(t, "only the plan owner can confirm", func(t *testing.T) {
		b := bookPlan(t, router, alice.Tokens.AccessToken, trip.ID.String(), time.Now().Add(72*time.Hour))

		rr := do(t, router, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%s/status", b.ID), alice.Tokens.AccessToken,
			map[string]any{"status": "confirmed"})
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")

		rr = do(t, router, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%s/status", b.ID), owner.Tokens.AccessToken,
			map[string]any{"status": "confirmed"})
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	testutil.Then(t, "requests without a token are rejected", func(t *testing.T) {
		rr := do(t, router, http.MethodGet, "/api/v1/bookings", "", nil)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})
}

func TestReviewFlowEndToEnd(t *testing.T) {
	router := newAPI()

	alice := registerAccount(t, router, "alice@example.com")
	owner := registerAccount(t, router, "owner@example.com")
	trip := publishPlan(t, router, owner.Tokens.AccessToken, "Sintra Palaces Tour")

	b := bookPlan(t, router, alice.Tokens.AccessToken, trip.ID.String(), time.Now().Add(72*time.Hour))
	for _, status := range []string{"confirmed", "completed"} {
		rr := do(t, router, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%s/status", b.ID), owner.Tokens.AccessToken,
			map[string]any{"status": status})
		testutil.AssertStatus(t, rr, http.StatusOK)
	}

	reviewBody := map[string]any{
		"bookingId": b.ID.String(),
		"rating":    map[string]any{"value": 4, "service": 5, "cleanliness": 3, "location": 5, "communication": 4},
		"title":     "Worth every minute",
		"comment":   "The guide knew every corner of the palace gardens.",
	}

	testutil.When(t, "alice reviews her completed booking", func(t *testing.T) {
		rr := do(t, router, http.MethodPost, "/api/v1/reviews", alice.Tokens.AccessToken, reviewBody)
		testutil.AssertStatus(t, rr, http.StatusCreated)

		rev := testutil.UnmarshalData[review.Review](t, rr)
		require.Equal(t, 4.2, rev.Rating.Overall)
		require.Equal(t, review.ModerationPending, rev.Moderation)
	})

	testutil.Then(t, "a second review for the same booking conflicts", func(t *testing.T) {
		rr := do(t, router, http.MethodPost, "/api/v1/reviews", alice.Tokens.AccessToken, reviewBody)
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
	})
}
