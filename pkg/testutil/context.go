package testutil

import (
	"net/http"

	id "roamly/pkg/domain"
	"roamly/pkg/requestcontext"
)

// WithAuth adds user ID, session ID, and role to the request context,
// simulating what the auth middleware does for authenticated requests.
// Invalid IDs are silently ignored.
func WithAuth(req *http.Request, userID, sessionID string, role id.Role) *http.Request {
	ctx := req.Context()
	if userID != "" {
		if parsed, err := id.ParseUserID(userID); err == nil {
			ctx = requestcontext.WithUserID(ctx, parsed)
		}
	}
	if sessionID != "" {
		if parsed, err := id.ParseSessionID(sessionID); err == nil {
			ctx = requestcontext.WithSessionID(ctx, parsed)
		}
	}
	if role != "" {
		ctx = requestcontext.WithRole(ctx, role)
	}
	return req.WithContext(ctx)
}

// WithUserID adds only a user ID to the request context.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsed, err := id.ParseUserID(userID); err == nil {
		return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
	}
	return req
}
