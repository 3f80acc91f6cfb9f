package plan

import (
	"context"
	"errors"
	"log/slog"

	id "roamly/pkg/domain"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/platform/sentinel"
	pstrings "roamly/pkg/platform/strings"
	"roamly/pkg/requestcontext"
)

// Service owns plan writes and the browse surface.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Create validates cross-field invariants and issues the slug exactly once.
// On a slug collision the write is retried once with a fresh suffix.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Plan, error) {
	if params.Capacity.Max < params.Capacity.Min {
		return nil, domerrors.New(domerrors.CodeValidation, "capacity.max must be >= capacity.min").
			WithDetails(map[string]string{"capacity.max": "must be >= capacity.min"})
	}

	now := requestcontext.Now(ctx)
	p := &Plan{
		ID:            id.NewPlanID(),
		OwnerID:       params.OwnerID,
		BusinessID:    params.BusinessID,
		Title:         params.Title,
		Slug:          makeSlug(params.Title),
		Description:   params.Description,
		Category:      params.Category,
		Price:         normalizePrice(params.Price),
		DurationHours: params.DurationHours,
		Address:       params.Address,
		Capacity:      params.Capacity,
		Difficulty:    params.Difficulty,
		Schedule:      params.Schedule,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.store.Create(ctx, p)
	if errors.Is(err, sentinel.ErrConflict) {
		p.Slug = makeSlug(params.Title)
		err = s.store.Create(ctx, p)
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, domerrors.New(domerrors.CodeConflict, "plan slug already exists")
		}
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to create plan")
	}
	return p, nil
}

// GetByID returns an active plan and bumps its view counter. The bump is
// best-effort; a failed counter write never fails the read.
func (s *Service) GetByID(ctx context.Context, planID id.PlanID) (*Plan, error) {
	p, err := s.find(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !p.Active && !s.canManage(ctx, p) {
		return nil, domerrors.New(domerrors.CodeNotFound, "plan not found")
	}

	if err := s.store.IncrementViews(ctx, planID); err != nil {
		s.logger.WarnContext(ctx, "failed to bump plan views", "error", err, "plan_id", planID)
	} else {
		p.Stats.Views++
	}
	return p, nil
}

// List returns active plans matching the filter plus the total row count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Plan, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	plans, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, domerrors.Wrap(err, domerrors.CodeInternal, "failed to list plans")
	}
	return plans, total, nil
}

// Update applies a partial write; only the owner or an admin may modify.
func (s *Service) Update(ctx context.Context, planID id.PlanID, update Update) (*Plan, error) {
	p, err := s.find(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !s.canManage(ctx, p) {
		return nil, domerrors.New(domerrors.CodeForbidden, "only the owner can modify this plan")
	}

	if update.Title != nil {
		// Slug is issued once at creation and survives renames.
		p.Title = *update.Title
	}
	if update.Description != nil {
		p.Description = *update.Description
	}
	if update.Category != nil {
		p.Category = *update.Category
	}
	if update.Price != nil {
		p.Price = normalizePrice(*update.Price)
	}
	if update.DurationHours != nil {
		p.DurationHours = *update.DurationHours
	}
	if update.Address != nil {
		p.Address = *update.Address
	}
	if update.Capacity != nil {
		if update.Capacity.Max < update.Capacity.Min {
			return nil, domerrors.New(domerrors.CodeValidation, "capacity.max must be >= capacity.min").
				WithDetails(map[string]string{"capacity.max": "must be >= capacity.min"})
		}
		p.Capacity = *update.Capacity
	}
	if update.Difficulty != nil {
		p.Difficulty = *update.Difficulty
	}
	if update.Schedule != nil {
		p.Schedule = *update.Schedule
	}

	if err := s.persist(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete soft-deletes by marking the plan inactive.
func (s *Service) Delete(ctx context.Context, planID id.PlanID) error {
	p, err := s.find(ctx, planID)
	if err != nil {
		return err
	}
	if !s.canManage(ctx, p) {
		return domerrors.New(domerrors.CodeForbidden, "only the owner can delete this plan")
	}
	p.Active = false
	return s.persist(ctx, p)
}

// Favorite bumps the favorites counter; unfavorite decrements.
func (s *Service) Favorite(ctx context.Context, planID id.PlanID, add bool) error {
	if _, err := s.find(ctx, planID); err != nil {
		return err
	}
	delta := int64(1)
	if !add {
		delta = -1
	}
	if err := s.store.AdjustFavorites(ctx, planID, delta); err != nil {
		return domerrors.Wrap(err, domerrors.CodeInternal, "failed to update favorites counter")
	}
	return nil
}

// RecordBooking bumps the bookings counter; called by the booking service.
func (s *Service) RecordBooking(ctx context.Context, planID id.PlanID) error {
	return s.store.IncrementBookings(ctx, planID)
}

// SetRating replaces the denormalized rating aggregate; called by the review
// service after recomputation.
func (s *Service) SetRating(ctx context.Context, planID id.PlanID, average float64, count int) error {
	return s.store.SetRating(ctx, planID, Rating{Average: average, Count: count})
}

func (s *Service) find(ctx context.Context, planID id.PlanID) (*Plan, error) {
	if planID.IsNil() {
		return nil, domerrors.New(domerrors.CodeValidation, "plan ID required")
	}
	p, err := s.store.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domerrors.New(domerrors.CodeNotFound, "plan not found")
		}
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to load plan")
	}
	return p, nil
}

func (s *Service) persist(ctx context.Context, p *Plan) error {
	p.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domerrors.New(domerrors.CodeNotFound, "plan not found")
		}
		return domerrors.Wrap(err, domerrors.CodeInternal, "failed to update plan")
	}
	return nil
}

func (s *Service) canManage(ctx context.Context, p *Plan) bool {
	return requestcontext.UserID(ctx) == p.OwnerID || requestcontext.Role(ctx).IsAdmin()
}

func normalizePrice(price Price) Price {
	price.Inclusions = pstrings.DedupeAndTrim(price.Inclusions)
	price.Exclusions = pstrings.DedupeAndTrim(price.Exclusions)
	return price
}
