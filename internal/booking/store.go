package booking

import (
	"context"

	id "roamly/pkg/domain"
)

// Store persists bookings. Confirmation codes are unique; Create returns
// sentinel.ErrConflict on a code collision.
type Store interface {
	Create(ctx context.Context, b *Booking) error
	FindByID(ctx context.Context, bookingID id.BookingID) (*Booking, error)
	FindByConfirmationCode(ctx context.Context, code string) (*Booking, error)
	ListByUser(ctx context.Context, filter ListFilter) ([]*Booking, int64, error)
	Update(ctx context.Context, b *Booking) error
	CountByUser(ctx context.Context, userID id.UserID) (int, error)
}
