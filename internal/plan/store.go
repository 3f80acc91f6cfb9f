package plan

import (
	"context"

	id "roamly/pkg/domain"
)

// Store is the persistence contract for plans.
type Store interface {
	Create(ctx context.Context, p *Plan) error
	FindByID(ctx context.Context, planID id.PlanID) (*Plan, error)
	FindBySlug(ctx context.Context, slug string) (*Plan, error)
	List(ctx context.Context, filter ListFilter) ([]*Plan, int64, error)
	Update(ctx context.Context, p *Plan) error
	IncrementViews(ctx context.Context, planID id.PlanID) error
	AdjustFavorites(ctx context.Context, planID id.PlanID, delta int64) error
	IncrementBookings(ctx context.Context, planID id.PlanID) error
	SetRating(ctx context.Context, planID id.PlanID, rating Rating) error
}
