package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	RequestDuration      *prometheus.HistogramVec
	UsersCreated         prometheus.Counter
	BookingsCreated      prometheus.Counter
	BookingTransitions   *prometheus.CounterVec
	ReviewsCreated       prometheus.Counter
	RateLimitRejections  *prometheus.CounterVec
	NotificationsByState *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roamly_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roamly_users_created_total",
			Help: "Total number of users registered",
		}),
		BookingsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roamly_bookings_created_total",
			Help: "Total number of bookings created",
		}),
		BookingTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roamly_booking_transitions_total",
			Help: "Booking status transitions by target status",
		}, []string{"status"}),
		ReviewsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roamly_reviews_created_total",
			Help: "Total number of reviews submitted",
		}),
		RateLimitRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roamly_rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"class"}),
		NotificationsByState: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roamly_notification_deliveries_total",
			Help: "Notification channel dispatch outcomes",
		}, []string{"channel", "status"}),
	}
}

// ObserveRequest records one HTTP request observation.
func (m *Metrics) ObserveRequest(route, method, status string, seconds float64) {
	m.RequestDuration.WithLabelValues(route, method, status).Observe(seconds)
}

// IncrementBookingTransition records a booking status transition.
func (m *Metrics) IncrementBookingTransition(status string) {
	m.BookingTransitions.WithLabelValues(status).Inc()
}

// IncrementRateLimitRejection records a rejected request.
func (m *Metrics) IncrementRateLimitRejection(class string) {
	m.RateLimitRejections.WithLabelValues(class).Inc()
}

// ObserveNotificationDelivery records a channel dispatch outcome.
func (m *Metrics) ObserveNotificationDelivery(channel, status string) {
	m.NotificationsByState.WithLabelValues(channel, status).Inc()
}
