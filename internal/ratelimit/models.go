// Package ratelimit provides sliding-window request limiting with a Redis
// primary store and an in-memory fallback behind a circuit breaker.
package ratelimit

import (
	"time"
)

// EndpointClass buckets routes into limit tiers.
type EndpointClass string

const (
	// ClassPublic covers unauthenticated browse traffic.
	ClassPublic EndpointClass = "public"
	// ClassAuth covers login/register/refresh, which get a tighter budget.
	ClassAuth EndpointClass = "auth"
	// ClassAuthenticated covers bearer-token traffic, keyed by user ID.
	ClassAuthenticated EndpointClass = "authenticated"
)

// Result reports the outcome of a limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Key builds the bucket key for an identity within a class.
func Key(class EndpointClass, identity string) string {
	return "ratelimit:" + string(class) + ":" + identity
}
