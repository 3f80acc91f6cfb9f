package booking

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"roamly/internal/audit"
	"roamly/internal/plan"
	"roamly/internal/platform/metrics"
	id "roamly/pkg/domain"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/platform/sentinel"
	"roamly/pkg/requestcontext"
)

// Pricing applied on top of the plan's base price.
const (
	taxRate        = 0.10
	serviceFeeRate = 0.05
)

// PlanDirectory is the slice of the plan service bookings depend on.
type PlanDirectory interface {
	GetByID(ctx context.Context, planID id.PlanID) (*plan.Plan, error)
	RecordBooking(ctx context.Context, planID id.PlanID) error
}

// AuditPublisher receives booking lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Notifier fans a status change out to the recipient's channels. A nil
// notifier disables delivery without touching the booking flow.
type Notifier interface {
	BookingStatusChanged(ctx context.Context, b *Booking)
}

type Service struct {
	store    Store
	plans    PlanDirectory
	auditor  AuditPublisher
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewService(store Store, plans PlanDirectory, auditor AuditPublisher, notifier Notifier, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: store, plans: plans, auditor: auditor, notifier: notifier, metrics: m, logger: logger}
}

// Create validates the reservation against the plan, snapshots pricing and
// contact details, and issues the confirmation code. A code collision is
// retried exactly once with a fresh code.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Booking, error) {
	params.Guests.Recount()
	if err := validateGuests(params.Guests); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	if !params.Date.After(now) {
		return nil, domerrors.New(domerrors.CodeValidation, "booking date must be in the future").
			WithDetails(map[string]string{"date": "must be in the future"})
	}

	p, err := s.plans.GetByID(ctx, params.PlanID)
	if err != nil {
		return nil, err
	}
	if params.Guests.Total < p.Capacity.Min || params.Guests.Total > p.Capacity.Max {
		return nil, domerrors.Newf(domerrors.CodeValidation,
			"guest count must be between %d and %d for this plan", p.Capacity.Min, p.Capacity.Max)
	}

	b := &Booking{
		ID:               id.NewBookingID(),
		UserID:           params.UserID,
		PlanID:           params.PlanID,
		BusinessID:       p.BusinessID,
		PlanOwnerID:      p.OwnerID,
		Date:             params.Date.UTC(),
		TimeSlot:         params.TimeSlot,
		Guests:           params.Guests,
		Pricing:          computePricing(p.Price, params.Guests),
		Status:           StatusPending,
		ConfirmationCode: newConfirmationCode(now),
		Payment:          params.Payment,
		Contact:          params.Contact,
		SpecialRequests:  params.SpecialRequests,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	b.StatusHistory = append(b.StatusHistory, HistoryEntry{
		Status: StatusPending,
		At:     now,
		By:     params.UserID,
		Note:   "booking created",
	})

	err = s.store.Create(ctx, b)
	if errors.Is(err, sentinel.ErrConflict) {
		b.ConfirmationCode = newConfirmationCode(now)
		err = s.store.Create(ctx, b)
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, domerrors.New(domerrors.CodeConflict, "could not issue a unique confirmation code")
		}
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to create booking")
	}

	if err := s.plans.RecordBooking(ctx, b.PlanID); err != nil {
		s.logger.WarnContext(ctx, "failed to bump plan booking counter", "planId", b.PlanID, "error", err)
	}
	if s.metrics != nil {
		s.metrics.BookingsCreated.Inc()
	}
	s.logAudit(ctx, audit.EventBookingCreated, b, nil, map[string]any{
		"status":           string(b.Status),
		"confirmationCode": b.ConfirmationCode,
	})
	return b, nil
}

// GetByID is visible to the booking owner, the plan owner, and admins.
func (s *Service) GetByID(ctx context.Context, bookingID id.BookingID) (*Booking, error) {
	b, err := s.find(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !s.canView(ctx, b) {
		return nil, domerrors.New(domerrors.CodeForbidden, "not allowed to view this booking")
	}
	return b, nil
}

func (s *Service) ListByUser(ctx context.Context, filter ListFilter) ([]*Booking, int64, error) {
	if filter.UserID != requestcontext.UserID(ctx) && !requestcontext.Role(ctx).IsAdmin() {
		return nil, 0, domerrors.New(domerrors.CodeForbidden, "not allowed to list these bookings")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, domerrors.New(domerrors.CodeValidation, "invalid booking status")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	items, total, err := s.store.ListByUser(ctx, filter)
	if err != nil {
		return nil, 0, domerrors.Wrap(err, domerrors.CodeInternal, "failed to list bookings")
	}
	return items, total, nil
}

// Modify changes guests, date, or time slot while the modification window
// is open. Pricing is recomputed when guests change.
func (s *Service) Modify(ctx context.Context, bookingID id.BookingID, mod Modification) (*Booking, error) {
	b, err := s.find(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != requestcontext.UserID(ctx) && !requestcontext.Role(ctx).IsAdmin() {
		return nil, domerrors.New(domerrors.CodeForbidden, "not allowed to modify this booking")
	}

	now := requestcontext.Now(ctx)
	if !b.CanBeModified(now) {
		return nil, domerrors.New(domerrors.CodeConflict, "booking can no longer be modified")
	}

	if mod.Date != nil {
		if !mod.Date.After(now) {
			return nil, domerrors.New(domerrors.CodeValidation, "booking date must be in the future")
		}
		b.Date = mod.Date.UTC()
	}
	if mod.TimeSlot != nil {
		b.TimeSlot = *mod.TimeSlot
	}
	if mod.Guests != nil {
		guests := *mod.Guests
		guests.Recount()
		if err := validateGuests(guests); err != nil {
			return nil, err
		}
		p, err := s.plans.GetByID(ctx, b.PlanID)
		if err != nil {
			return nil, err
		}
		if guests.Total < p.Capacity.Min || guests.Total > p.Capacity.Max {
			return nil, domerrors.Newf(domerrors.CodeValidation,
				"guest count must be between %d and %d for this plan", p.Capacity.Min, p.Capacity.Max)
		}
		b.Guests = guests
		b.Pricing = computePricing(p.Price, guests)
	}
	b.UpdatedAt = now

	if err := s.persist(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Cancel revokes a booking while the cancellation window is open. The
// booking owner, the plan owner, and admins may cancel.
func (s *Service) Cancel(ctx context.Context, bookingID id.BookingID, note string) (*Booking, error) {
	b, err := s.find(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !s.canView(ctx, b) {
		return nil, domerrors.New(domerrors.CodeForbidden, "not allowed to cancel this booking")
	}

	now := requestcontext.Now(ctx)
	if !b.CanBeCancelled(now) {
		return nil, domerrors.New(domerrors.CodeConflict, "booking can no longer be cancelled")
	}
	return s.transition(ctx, b, StatusCancelled, note)
}

// Transition confirms or completes a booking. Only the plan owner and
// admins drive these transitions.
func (s *Service) Transition(ctx context.Context, bookingID id.BookingID, next Status, note string) (*Booking, error) {
	if next != StatusConfirmed && next != StatusCompleted {
		return nil, domerrors.New(domerrors.CodeValidation, "transition target must be confirmed or completed")
	}

	b, err := s.find(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !s.canOperate(ctx, b) {
		return nil, domerrors.New(domerrors.CodeForbidden, "only the plan owner or an admin can drive this transition")
	}
	return s.transition(ctx, b, next, note)
}

// CountByUser feeds the user profile statistics.
func (s *Service) CountByUser(ctx context.Context, userID id.UserID) (int, error) {
	n, err := s.store.CountByUser(ctx, userID)
	if err != nil {
		return 0, domerrors.Wrap(err, domerrors.CodeInternal, "failed to count bookings")
	}
	return n, nil
}

func (s *Service) transition(ctx context.Context, b *Booking, next Status, note string) (*Booking, error) {
	if !b.Status.CanTransition(next) {
		return nil, domerrors.Newf(domerrors.CodeConflict, "cannot move booking from %s to %s", b.Status, next)
	}

	now := requestcontext.Now(ctx)
	previous := b.Status
	b.Status = next
	b.StatusHistory = append(b.StatusHistory, HistoryEntry{
		Status: next,
		At:     now,
		By:     requestcontext.UserID(ctx),
		Note:   note,
	})
	b.UpdatedAt = now

	if err := s.persist(ctx, b); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementBookingTransition(string(next))
	}
	s.logAudit(ctx, audit.EventBookingStatusChanged, b,
		map[string]any{"status": string(previous)},
		map[string]any{"status": string(next), "note": note},
	)
	if s.notifier != nil && (next == StatusConfirmed || next == StatusCancelled) {
		s.notifier.BookingStatusChanged(ctx, b)
	}
	return b, nil
}

func (s *Service) find(ctx context.Context, bookingID id.BookingID) (*Booking, error) {
	b, err := s.store.FindByID(ctx, bookingID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, domerrors.New(domerrors.CodeNotFound, "booking not found")
	}
	if err != nil {
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to load booking")
	}
	return b, nil
}

func (s *Service) persist(ctx context.Context, b *Booking) error {
	if err := s.store.Update(ctx, b); err != nil {
		return domerrors.Wrap(err, domerrors.CodeInternal, "failed to update booking")
	}
	return nil
}

func (s *Service) canView(ctx context.Context, b *Booking) bool {
	actor := requestcontext.UserID(ctx)
	return actor == b.UserID || actor == b.PlanOwnerID || requestcontext.Role(ctx).IsAdmin()
}

func (s *Service) canOperate(ctx context.Context, b *Booking) bool {
	actor := requestcontext.UserID(ctx)
	return actor == b.PlanOwnerID || requestcontext.Role(ctx).IsAdmin()
}

func (s *Service) logAudit(ctx context.Context, action audit.Action, b *Booking, before, after map[string]any) {
	if s.auditor == nil {
		return
	}
	event := audit.Event{
		ActorID:   requestcontext.UserID(ctx).String(),
		Action:    string(action),
		Subject:   b.ID.String(),
		Before:    before,
		After:     after,
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "action", action)
	}
}

func validateGuests(g Guests) error {
	if g.Adults < 1 {
		return domerrors.New(domerrors.CodeValidation, "at least one adult is required").
			WithDetails(map[string]string{"guests.adults": "must be >= 1"})
	}
	if g.Children < 0 || g.Infants < 0 {
		return domerrors.New(domerrors.CodeValidation, "guest counts cannot be negative")
	}
	if g.Total < 1 {
		return domerrors.New(domerrors.CodeValidation, "at least one guest is required")
	}
	return nil
}

// computePricing snapshots the plan price at booking time. Infants are not
// charged; taxes and the service fee are derived from the subtotal.
func computePricing(price plan.Price, g Guests) Pricing {
	payable := g.Adults + g.Children
	p := Pricing{
		Subtotal: round2(price.Amount * float64(payable)),
		Currency: price.Currency,
	}
	p.Taxes = round2(p.Subtotal * taxRate)
	p.Fees = round2(p.Subtotal * serviceFeeRate)
	p.Recompute()
	p.Total = round2(p.Total)
	return p
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
