package review

import (
	"context"

	id "roamly/pkg/domain"
)

// Store persists reviews. One review per booking; Create returns
// sentinel.ErrConflict on a second review for the same booking.
type Store interface {
	Create(ctx context.Context, r *Review) error
	FindByID(ctx context.Context, reviewID id.ReviewID) (*Review, error)
	FindByBooking(ctx context.Context, bookingID id.BookingID) (*Review, error)
	ListByPlan(ctx context.Context, filter ListFilter) ([]*Review, int64, error)
	Update(ctx context.Context, r *Review) error
	Delete(ctx context.Context, reviewID id.ReviewID) error
	AggregateByPlan(ctx context.Context, planID id.PlanID) (average float64, count int, err error)
	CountByAuthor(ctx context.Context, authorID id.UserID) (int, error)
}
