package business

import (
	"context"

	id "roamly/pkg/domain"
)

// Store persists businesses. Implementations return sentinel errors from
// pkg/platform/sentinel; the service translates them to domain errors.
type Store interface {
	Create(ctx context.Context, b *Business) error
	FindByID(ctx context.Context, businessID id.BusinessID) (*Business, error)
	FindByRegistrationNumber(ctx context.Context, regNumber string) (*Business, error)
	List(ctx context.Context, filter ListFilter) ([]*Business, int64, error)
	Update(ctx context.Context, b *Business) error
}
