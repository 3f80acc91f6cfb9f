// Package audit captures immutable records of privileged or state-changing
// actions. Services emit events through the Publisher; the postgres store
// writes them to an outbox table and the worker ships them to Kafka.
package audit

import (
	"time"
)

// Severity grades an event for downstream alerting.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Category routes an event to its consumer group.
type Category string

const (
	CategoryAuth     Category = "auth"
	CategoryBooking  Category = "booking"
	CategoryReview   Category = "review"
	CategoryAdmin    Category = "admin"
	CategorySecurity Category = "security"
)

// Action names. The category map below is the source of truth for routing.
type Action string

const (
	EventUserRegistered       Action = "user.registered"
	EventUserUpdated          Action = "user.updated"
	EventUserDeleted          Action = "user.deleted"
	EventPasswordChanged      Action = "user.password_changed"
	EventLoginSucceeded       Action = "auth.login_succeeded"
	EventLoginFailed          Action = "auth.login_failed"
	EventTokenRefreshed       Action = "auth.token_refreshed"
	EventSessionRevoked       Action = "auth.session_revoked"
	EventBookingCreated       Action = "booking.created"
	EventBookingStatusChanged Action = "booking.status_changed"
	EventReviewCreated        Action = "review.created"
	EventReviewModerated      Action = "review.moderated"
	EventReviewDeleted        Action = "review.deleted"
	EventBusinessCreated      Action = "business.created"
	EventBusinessVerified     Action = "business.verified"
)

var eventCategories = map[Action]Category{
	EventUserRegistered:       CategoryAuth,
	EventUserUpdated:          CategoryAdmin,
	EventUserDeleted:          CategoryAdmin,
	EventPasswordChanged:      CategorySecurity,
	EventLoginSucceeded:       CategoryAuth,
	EventLoginFailed:          CategorySecurity,
	EventTokenRefreshed:       CategoryAuth,
	EventSessionRevoked:       CategoryAuth,
	EventBookingCreated:       CategoryBooking,
	EventBookingStatusChanged: CategoryBooking,
	EventReviewCreated:        CategoryReview,
	EventReviewModerated:      CategoryReview,
	EventReviewDeleted:        CategoryReview,
	EventBusinessCreated:      CategoryAdmin,
	EventBusinessVerified:     CategoryAdmin,
}

// Category derives the routing category for an action; unknown actions fall
// into the security category so nothing is silently dropped.
func (a Action) Category() Category {
	if c, ok := eventCategories[a]; ok {
		return c
	}
	return CategorySecurity
}

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	ActorID   string
	Action    string
	Subject   string
	Method    string
	Path      string
	Status    int
	Severity  Severity
	Before    map[string]any
	After     map[string]any
	RequestID string
}
