package auth

import (
	"context"

	id "roamly/pkg/domain"
)

// SessionStore persists sessions for the lifetime of their refresh token.
type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*Session, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*Session, error)
	Delete(ctx context.Context, sessionID id.SessionID) error
}
