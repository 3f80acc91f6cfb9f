package user

import (
	"context"

	id "roamly/pkg/domain"
)

// Store is the persistence contract for users. Implementations return
// sentinel.ErrNotFound / sentinel.ErrConflict; the service translates them
// into domain errors.
type Store interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, userID id.UserID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
}
