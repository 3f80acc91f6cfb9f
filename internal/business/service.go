package business

import (
	"context"
	"errors"
	"log/slog"

	"roamly/internal/audit"
	id "roamly/pkg/domain"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/platform/sentinel"
	"roamly/pkg/requestcontext"
)

// AuditPublisher receives the business lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store   Store
	auditor AuditPublisher
	logger  *slog.Logger
}

func NewService(store Store, auditor AuditPublisher, logger *slog.Logger) *Service {
	return &Service{store: store, auditor: auditor, logger: logger}
}

// Create registers a business in pending verification state. Registration
// numbers are unique across the marketplace.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Business, error) {
	now := requestcontext.Now(ctx)
	b := &Business{
		ID:                 id.NewBusinessID(),
		OwnerID:            params.OwnerID,
		Name:               params.Name,
		Description:        params.Description,
		Contact:            params.Contact,
		RegistrationNumber: params.RegistrationNumber,
		Address:            params.Address,
		Verification:       Verification{Status: VerificationPending},
		Banking:            params.Banking,
		Active:             true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.store.Create(ctx, b); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, domerrors.New(domerrors.CodeConflict, "registration number already in use")
		}
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to create business")
	}

	s.logAudit(ctx, audit.EventBusinessCreated, b.ID.String(), nil, map[string]any{
		"name":   b.Name,
		"status": string(b.Verification.Status),
	})
	return b, nil
}

func (s *Service) GetByID(ctx context.Context, businessID id.BusinessID) (*Business, error) {
	return s.find(ctx, businessID)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Business, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	items, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, domerrors.Wrap(err, domerrors.CodeInternal, "failed to list businesses")
	}
	return items, total, nil
}

func (s *Service) Update(ctx context.Context, businessID id.BusinessID, update Update) (*Business, error) {
	b, err := s.find(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if !s.canManage(ctx, b) {
		return nil, domerrors.New(domerrors.CodeForbidden, "not allowed to manage this business")
	}

	if update.Name != nil {
		b.Name = *update.Name
	}
	if update.Description != nil {
		b.Description = *update.Description
	}
	if update.Contact != nil {
		b.Contact = *update.Contact
	}
	if update.Address != nil {
		b.Address = *update.Address
	}
	if update.Banking != nil {
		b.Banking = *update.Banking
	}
	b.UpdatedAt = requestcontext.Now(ctx)

	if err := s.persist(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete soft-deletes; existing plans and bookings keep their references.
func (s *Service) Delete(ctx context.Context, businessID id.BusinessID) error {
	b, err := s.find(ctx, businessID)
	if err != nil {
		return err
	}
	if !s.canManage(ctx, b) {
		return domerrors.New(domerrors.CodeForbidden, "not allowed to manage this business")
	}

	b.Active = false
	b.UpdatedAt = requestcontext.Now(ctx)
	return s.persist(ctx, b)
}

// Verify records an admin decision. Only pending businesses can be decided;
// a repeated decision on the same business is a conflict.
func (s *Service) Verify(ctx context.Context, businessID id.BusinessID, status VerificationStatus, notes string) (*Business, error) {
	if status != VerificationVerified && status != VerificationRejected {
		return nil, domerrors.New(domerrors.CodeValidation, "verification status must be verified or rejected")
	}
	if !requestcontext.Role(ctx).IsAdmin() {
		return nil, domerrors.New(domerrors.CodeForbidden, "verification requires an admin role")
	}

	b, err := s.find(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if b.Verification.Status != VerificationPending {
		return nil, domerrors.New(domerrors.CodeConflict, "business verification already decided")
	}

	before := string(b.Verification.Status)
	now := requestcontext.Now(ctx)
	b.Verification = Verification{
		Status:     status,
		VerifiedBy: requestcontext.UserID(ctx),
		VerifiedAt: &now,
		Notes:      notes,
	}
	b.UpdatedAt = now

	if err := s.persist(ctx, b); err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.EventBusinessVerified, b.ID.String(),
		map[string]any{"status": before},
		map[string]any{"status": string(status), "verifiedBy": b.Verification.VerifiedBy.String()},
	)
	return b, nil
}

// IncrementPlanCount is called by the plan service when a plan is published
// or retired under this business.
func (s *Service) IncrementPlanCount(ctx context.Context, businessID id.BusinessID, delta int) error {
	b, err := s.find(ctx, businessID)
	if err != nil {
		return err
	}
	b.Stats.TotalPlans += delta
	if b.Stats.TotalPlans < 0 {
		b.Stats.TotalPlans = 0
	}
	b.UpdatedAt = requestcontext.Now(ctx)
	return s.persist(ctx, b)
}

func (s *Service) find(ctx context.Context, businessID id.BusinessID) (*Business, error) {
	b, err := s.store.FindByID(ctx, businessID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, domerrors.New(domerrors.CodeNotFound, "business not found")
	}
	if err != nil {
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to load business")
	}
	if !b.Active && !s.canManage(ctx, b) {
		return nil, domerrors.New(domerrors.CodeNotFound, "business not found")
	}
	return b, nil
}

func (s *Service) persist(ctx context.Context, b *Business) error {
	if err := s.store.Update(ctx, b); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return domerrors.New(domerrors.CodeConflict, "registration number already in use")
		}
		return domerrors.Wrap(err, domerrors.CodeInternal, "failed to update business")
	}
	return nil
}

func (s *Service) canManage(ctx context.Context, b *Business) bool {
	return requestcontext.UserID(ctx) == b.OwnerID || requestcontext.Role(ctx).IsAdmin()
}

func (s *Service) logAudit(ctx context.Context, action audit.Action, subject string, before, after map[string]any) {
	if s.auditor == nil {
		return
	}
	event := audit.Event{
		ActorID:   requestcontext.UserID(ctx).String(),
		Action:    string(action),
		Subject:   subject,
		Before:    before,
		After:     after,
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "action", action)
	}
}
