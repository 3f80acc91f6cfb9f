package review

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"roamly/internal/audit"
	"roamly/internal/booking"
	"roamly/internal/platform/metrics"
	id "roamly/pkg/domain"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/platform/sentinel"
	"roamly/pkg/requestcontext"
)

// editWindow bounds how long an author can amend an approved review.
const editWindow = 24 * time.Hour

// BookingDirectory is the slice of the booking service reviews depend on.
type BookingDirectory interface {
	GetByID(ctx context.Context, bookingID id.BookingID) (*booking.Booking, error)
}

// PlanRater receives the recomputed rating aggregate.
type PlanRater interface {
	SetRating(ctx context.Context, planID id.PlanID, average float64, count int) error
}

// AuditPublisher receives review lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store    Store
	bookings BookingDirectory
	plans    PlanRater
	auditor  AuditPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewService(store Store, bookings BookingDirectory, plans PlanRater, auditor AuditPublisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: store, bookings: bookings, plans: plans, auditor: auditor, metrics: m, logger: logger}
}

// Create accepts one review per completed booking. The overall rating is
// always derived server-side; new reviews start in pending moderation.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Review, error) {
	if !params.Rating.InRange() {
		return nil, domerrors.New(domerrors.CodeValidation, "all ratings must be between 1 and 5")
	}

	b, err := s.bookings.GetByID(ctx, params.BookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != params.AuthorID {
		return nil, domerrors.New(domerrors.CodeForbidden, "only the booking owner can review it")
	}
	if b.Status != booking.StatusCompleted {
		return nil, domerrors.New(domerrors.CodeValidation, "only completed bookings can be reviewed")
	}

	now := requestcontext.Now(ctx)
	r := &Review{
		ID:           id.NewReviewID(),
		BookingID:    params.BookingID,
		PlanID:       b.PlanID,
		AuthorID:     params.AuthorID,
		Rating:       params.Rating,
		Title:        params.Title,
		Comment:      params.Comment,
		Anonymous:    params.Anonymous,
		Moderation:   ModerationPending,
		HelpfulVotes: []id.UserID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.Rating.ComputeOverall()

	if err := s.store.Create(ctx, r); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, domerrors.New(domerrors.CodeConflict, "booking already has a review")
		}
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to create review")
	}

	if s.metrics != nil {
		s.metrics.ReviewsCreated.Inc()
	}
	s.recomputePlanRating(ctx, r.PlanID)
	s.logAudit(ctx, audit.EventReviewCreated, r.ID.String(), nil, map[string]any{
		"planId":  r.PlanID.String(),
		"overall": r.Rating.Overall,
	})
	return r, nil
}

func (s *Service) GetByID(ctx context.Context, reviewID id.ReviewID) (*Review, error) {
	r, err := s.find(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if requestcontext.Role(ctx).IsAdmin() || r.AuthorID == requestcontext.UserID(ctx) {
		return r, nil
	}
	if r.Moderation != ModerationApproved {
		return nil, domerrors.New(domerrors.CodeNotFound, "review not found")
	}
	return r.Redacted(), nil
}

// ListByPlan returns approved reviews; admins see every moderation state.
func (s *Service) ListByPlan(ctx context.Context, filter ListFilter) ([]*Review, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	admin := requestcontext.Role(ctx).IsAdmin()
	filter.ApprovedOnly = !admin

	items, total, err := s.store.ListByPlan(ctx, filter)
	if err != nil {
		return nil, 0, domerrors.Wrap(err, domerrors.CodeInternal, "failed to list reviews")
	}
	if !admin {
		for i, r := range items {
			items[i] = r.Redacted()
		}
	}
	return items, total, nil
}

// Update lets the author amend an approved review for 24 hours after
// creation. Any violated condition is reported, never silently ignored.
func (s *Service) Update(ctx context.Context, reviewID id.ReviewID, update Update) (*Review, error) {
	r, err := s.find(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if r.AuthorID != requestcontext.UserID(ctx) {
		return nil, domerrors.New(domerrors.CodeForbidden, "only the author can edit a review")
	}

	now := requestcontext.Now(ctx)
	if now.Sub(r.CreatedAt) > editWindow {
		return nil, domerrors.New(domerrors.CodeForbidden, "the review edit window has closed")
	}
	if r.Moderation != ModerationApproved {
		return nil, domerrors.New(domerrors.CodeForbidden, "only approved reviews can be edited")
	}

	if update.Rating != nil {
		if !update.Rating.InRange() {
			return nil, domerrors.New(domerrors.CodeValidation, "all ratings must be between 1 and 5")
		}
		r.Rating = *update.Rating
		r.Rating.ComputeOverall()
	}
	if update.Title != nil {
		r.Title = *update.Title
	}
	if update.Comment != nil {
		r.Comment = *update.Comment
	}
	if update.Anonymous != nil {
		r.Anonymous = *update.Anonymous
	}
	r.UpdatedAt = now

	if err := s.persist(ctx, r); err != nil {
		return nil, err
	}
	s.recomputePlanRating(ctx, r.PlanID)
	return r, nil
}

// Delete removes the author's review; there is no time window.
func (s *Service) Delete(ctx context.Context, reviewID id.ReviewID) error {
	r, err := s.find(ctx, reviewID)
	if err != nil {
		return err
	}
	if r.AuthorID != requestcontext.UserID(ctx) && !requestcontext.Role(ctx).IsAdmin() {
		return domerrors.New(domerrors.CodeForbidden, "only the author can delete a review")
	}

	if err := s.store.Delete(ctx, reviewID); err != nil {
		return domerrors.Wrap(err, domerrors.CodeInternal, "failed to delete review")
	}
	s.recomputePlanRating(ctx, r.PlanID)
	s.logAudit(ctx, audit.EventReviewDeleted, r.ID.String(),
		map[string]any{"planId": r.PlanID.String()}, nil)
	return nil
}

// ToggleHelpful adds the caller's vote, or removes it if already present.
// Both directions are idempotent.
func (s *Service) ToggleHelpful(ctx context.Context, reviewID id.ReviewID) (*Review, error) {
	r, err := s.find(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if r.Moderation != ModerationApproved {
		return nil, domerrors.New(domerrors.CodeNotFound, "review not found")
	}

	voter := requestcontext.UserID(ctx)
	if r.HasVoted(voter) {
		votes := make([]id.UserID, 0, len(r.HelpfulVotes)-1)
		for _, v := range r.HelpfulVotes {
			if v != voter {
				votes = append(votes, v)
			}
		}
		r.HelpfulVotes = votes
	} else {
		r.HelpfulVotes = append(r.HelpfulVotes, voter)
	}
	r.UpdatedAt = requestcontext.Now(ctx)

	if err := s.persist(ctx, r); err != nil {
		return nil, err
	}
	return r.Redacted(), nil
}

// Moderate is admin-only and moves a review to a new moderation status.
func (s *Service) Moderate(ctx context.Context, reviewID id.ReviewID, status ModerationStatus) (*Review, error) {
	if !requestcontext.Role(ctx).IsAdmin() {
		return nil, domerrors.New(domerrors.CodeForbidden, "moderation requires an admin role")
	}
	if !status.Valid() {
		return nil, domerrors.New(domerrors.CodeValidation, "invalid moderation status")
	}

	r, err := s.find(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	previous := r.Moderation
	r.Moderation = status
	r.UpdatedAt = requestcontext.Now(ctx)

	if err := s.persist(ctx, r); err != nil {
		return nil, err
	}
	s.recomputePlanRating(ctx, r.PlanID)
	s.logAudit(ctx, audit.EventReviewModerated, r.ID.String(),
		map[string]any{"status": string(previous)},
		map[string]any{"status": string(status)},
	)
	return r, nil
}

// CountByAuthor feeds the user profile statistics.
func (s *Service) CountByAuthor(ctx context.Context, authorID id.UserID) (int, error) {
	n, err := s.store.CountByAuthor(ctx, authorID)
	if err != nil {
		return 0, domerrors.Wrap(err, domerrors.CodeInternal, "failed to count reviews")
	}
	return n, nil
}

// recomputePlanRating refreshes the plan aggregate from approved reviews.
// Failures are logged, never surfaced to the caller.
func (s *Service) recomputePlanRating(ctx context.Context, planID id.PlanID) {
	if s.plans == nil {
		return
	}
	average, count, err := s.store.AggregateByPlan(ctx, planID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to aggregate plan rating", "planId", planID, "error", err)
		return
	}
	if err := s.plans.SetRating(ctx, planID, average, count); err != nil {
		s.logger.ErrorContext(ctx, "failed to store plan rating", "planId", planID, "error", err)
	}
}

func (s *Service) find(ctx context.Context, reviewID id.ReviewID) (*Review, error) {
	r, err := s.store.FindByID(ctx, reviewID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, domerrors.New(domerrors.CodeNotFound, "review not found")
	}
	if err != nil {
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to load review")
	}
	return r, nil
}

func (s *Service) persist(ctx context.Context, r *Review) error {
	if err := s.store.Update(ctx, r); err != nil {
		return domerrors.Wrap(err, domerrors.CodeInternal, "failed to update review")
	}
	return nil
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
