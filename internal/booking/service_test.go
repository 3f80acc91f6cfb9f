package booking

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"roamly/internal/plan"
	id "roamly/pkg/domain"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/requestcontext"
)

type planDirectoryStub struct {
	plans    map[id.PlanID]*plan.Plan
	recorded []id.PlanID
}

func (s *planDirectoryStub) GetByID(_ context.Context, planID id.PlanID) (*plan.Plan, error) {
	p, ok := s.plans[planID]
	if !ok {
		return nil, domerrors.New(domerrors.CodeNotFound, "plan not found")
	}
	return p, nil
}

func (s *planDirectoryStub) RecordBooking(_ context.Context, planID id.PlanID) error {
	s.recorded = append(s.recorded, planID)
	return nil
}

type notifierStub struct {
	changed []*Booking
}

func (n *notifierStub) BookingStatusChanged(_ context.Context, b *Booking) {
	n.changed = append(n.changed, b)
}

type BookingServiceSuite struct {
	suite.Suite

	store    *InMemoryStore
	plans    *planDirectoryStub
	notifier *notifierStub
	svc      *Service

	now      time.Time
	ownerID  id.UserID
	guestID  id.UserID
	planID   id.PlanID
}

func TestBookingServiceSuite(t *testing.T) {
	suite.Run(t, new(BookingServiceSuite))
}

func (s *BookingServiceSuite) SetupTest() {
	s.now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	s.ownerID = id.NewUserID()
	s.guestID = id.NewUserID()
	s.planID = id.NewPlanID()

	s.plans = &planDirectoryStub{plans: map[id.PlanID]*plan.Plan{
		s.planID: {
			ID:       s.planID,
			OwnerID:  s.ownerID,
			Title:    "Sunrise kayak tour",
			Price:    plan.Price{Amount: 50, Currency: "EUR"},
			Capacity: plan.Capacity{Min: 1, Max: 4},
			Active:   true,
		},
	}}
	s.store = NewInMemoryStore()
	s.notifier = &notifierStub{}
	s.svc = NewService(s.store, s.plans, nil, s.notifier, nil, slog.Default())
}

func (s *BookingServiceSuite) ctxAs(userID id.UserID, role id.Role) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), userID)
	ctx = requestcontext.WithRole(ctx, role)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *BookingServiceSuite) create(ctx context.Context) *Booking {
	b, err := s.svc.Create(ctx, CreateParams{
		UserID: s.guestID,
		PlanID: s.planID,
		Date:   s.now.Add(72 * time.Hour),
		Guests: Guests{Adults: 2, Children: 1},
	})
	s.Require().NoError(err)
	return b
}

func (s *BookingServiceSuite) TestCreate() {
	ctx := s.ctxAs(s.guestID, id.RoleUser)

	s.Run("snapshots pricing and opens the history", func() {
		b := s.create(ctx)

		s.Equal(StatusPending, b.Status)
		s.Equal(3, b.Guests.Total)
		s.Equal(150.0, b.Pricing.Subtotal)
		s.Equal(15.0, b.Pricing.Taxes)
		s.Equal(7.5, b.Pricing.Fees)
		s.Equal(172.5, b.Pricing.Total)
		s.Equal("EUR", b.Pricing.Currency)
		s.NotEmpty(b.ConfirmationCode)
		s.Equal(s.ownerID, b.PlanOwnerID)

		s.Require().Len(b.StatusHistory, 1)
		s.Equal(StatusPending, b.StatusHistory[0].Status)
		s.Equal(s.guestID, b.StatusHistory[0].By)

		s.Require().Len(s.plans.recorded, 1)
		s.Equal(s.planID, s.plans.recorded[0])
	})

	s.Run("infants are not charged", func() {
		b, err := s.svc.Create(ctx, CreateParams{
			UserID: s.guestID,
			PlanID: s.planID,
			Date:   s.now.Add(72 * time.Hour),
			Guests: Guests{Adults: 1, Infants: 1},
		})
		s.Require().NoError(err)
		s.Equal(2, b.Guests.Total)
		s.Equal(50.0, b.Pricing.Subtotal)
	})

	s.Run("rejects dates that are not in the future", func() {
		_, err := s.svc.Create(ctx, CreateParams{
			UserID: s.guestID,
			PlanID: s.planID,
			Date:   s.now,
			Guests: Guests{Adults: 1},
		})
		s.True(domerrors.HasCode(err, domerrors.CodeValidation))
	})

	s.Run("rejects a party without adults", func() {
		_, err := s.svc.Create(ctx, CreateParams{
			UserID: s.guestID,
			PlanID: s.planID,
			Date:   s.now.Add(72 * time.Hour),
			Guests: Guests{Children: 2},
		})
		s.True(domerrors.HasCode(err, domerrors.CodeValidation))
	})

	s.Run("rejects a party over plan capacity", func() {
		_, err := s.svc.Create(ctx, CreateParams{
			UserID: s.guestID,
			PlanID: s.planID,
			Date:   s.now.Add(72 * time.Hour),
			Guests: Guests{Adults: 3, Children: 2},
		})
		s.True(domerrors.HasCode(err, domerrors.CodeValidation))
	})

	s.Run("unknown plan surfaces not found", func() {
		_, err := s.svc.Create(ctx, CreateParams{
			UserID: s.guestID,
			PlanID: id.NewPlanID(),
			Date:   s.now.Add(72 * time.Hour),
			Guests: Guests{Adults: 1},
		})
		s.True(domerrors.HasCode(err, domerrors.CodeNotFound))
	})
}

func (s *BookingServiceSuite) TestVisibility() {
	ctx := s.ctxAs(s.guestID, id.RoleUser)
	b := s.create(ctx)

	s.Run("owner sees the booking", func() {
		got, err := s.svc.GetByID(ctx, b.ID)
		s.Require().NoError(err)
		s.Equal(b.ID, got.ID)
	})

	s.Run("plan owner sees the booking", func() {
		_, err := s.svc.GetByID(s.ctxAs(s.ownerID, id.RoleUser), b.ID)
		s.NoError(err)
	})

	s.Run("admin sees the booking", func() {
		_, err := s.svc.GetByID(s.ctxAs(id.NewUserID(), id.RoleAdmin), b.ID)
		s.NoError(err)
	})

	s.Run("strangers are forbidden", func() {
		_, err := s.svc.GetByID(s.ctxAs(id.NewUserID(), id.RoleUser), b.ID)
		s.True(domerrors.HasCode(err, domerrors.CodeForbidden))
	})

	s.Run("listing another user's bookings is forbidden", func() {
		_, _, err := s.svc.ListByUser(s.ctxAs(id.NewUserID(), id.RoleUser), ListFilter{UserID: s.guestID})
		s.True(domerrors.HasCode(err, domerrors.CodeForbidden))
	})
}

func (s *BookingServiceSuite) TestTransitions() {
	guestCtx := s.ctxAs(s.guestID, id.RoleUser)
	ownerCtx := s.ctxAs(s.ownerID, id.RoleUser)
	b := s.create(guestCtx)

	s.Run("guest cannot confirm", func() {
		_, err := s.svc.Transition(guestCtx, b.ID, StatusConfirmed, "")
		s.True(domerrors.HasCode(err, domerrors.CodeForbidden))
	})

	s.Run("plan owner confirms and the recipient is notified", func() {
		got, err := s.svc.Transition(ownerCtx, b.ID, StatusConfirmed, "see you there")
		s.Require().NoError(err)
		s.Equal(StatusConfirmed, got.Status)
		s.Require().Len(got.StatusHistory, 2)
		s.Equal("see you there", got.StatusHistory[1].Note)
		s.Equal(s.ownerID, got.StatusHistory[1].By)
		s.Len(s.notifier.changed, 1)
	})

	s.Run("confirmed moves to completed without a notification", func() {
		got, err := s.svc.Transition(ownerCtx, b.ID, StatusCompleted, "")
		s.Require().NoError(err)
		s.Equal(StatusCompleted, got.Status)
		s.Len(s.notifier.changed, 1)
	})

	s.Run("completed is terminal", func() {
		_, err := s.svc.Transition(ownerCtx, b.ID, StatusConfirmed, "")
		s.True(domerrors.HasCode(err, domerrors.CodeConflict))
	})

	s.Run("only confirmed and completed are valid targets", func() {
		_, err := s.svc.Transition(ownerCtx, b.ID, StatusCancelled, "")
		s.True(domerrors.HasCode(err, domerrors.CodeValidation))
	})
}

func (s *BookingServiceSuite) TestCancel() {
	ctx := s.ctxAs(s.guestID, id.RoleUser)

	s.Run("cancels inside the window and notifies", func() {
		b := s.create(ctx)
		got, err := s.svc.Cancel(ctx, b.ID, "change of plans")
		s.Require().NoError(err)
		s.Equal(StatusCancelled, got.Status)
		s.Len(s.notifier.changed, 1)
	})

	s.Run("refuses once less than 24h remain", func() {
		b, err := s.svc.Create(ctx, CreateParams{
			UserID: s.guestID,
			PlanID: s.planID,
			Date:   s.now.Add(12 * time.Hour),
			Guests: Guests{Adults: 1},
		})
		s.Require().NoError(err)

		_, err = s.svc.Cancel(ctx, b.ID, "")
		s.True(domerrors.HasCode(err, domerrors.CodeConflict))
	})

	s.Run("refuses a second cancellation", func() {
		b := s.create(ctx)
		_, err := s.svc.Cancel(ctx, b.ID, "")
		s.Require().NoError(err)

		_, err = s.svc.Cancel(ctx, b.ID, "")
		s.True(domerrors.HasCode(err, domerrors.CodeConflict))
	})
}

func (s *BookingServiceSuite) TestModify() {
	ctx := s.ctxAs(s.guestID, id.RoleUser)
	b := s.create(ctx)

	s.Run("reprices when guests change", func() {
		got, err := s.svc.Modify(ctx, b.ID, Modification{
			Guests: &Guests{Adults: 1},
		})
		s.Require().NoError(err)
		s.Equal(1, got.Guests.Total)
		s.Equal(50.0, got.Pricing.Subtotal)
		s.Equal(57.5, got.Pricing.Total)
	})

	s.Run("rejects guests over capacity", func() {
		_, err := s.svc.Modify(ctx, b.ID, Modification{
			Guests: &Guests{Adults: 5},
		})
		s.True(domerrors.HasCode(err, domerrors.CodeValidation))
	})

	s.Run("refuses once less than 48h remain", func() {
		near, err := s.svc.Create(ctx, CreateParams{
			UserID: s.guestID,
			PlanID: s.planID,
			Date:   s.now.Add(36 * time.Hour),
			Guests: Guests{Adults: 1},
		})
		s.Require().NoError(err)

		slot := "10:00"
		_, err = s.svc.Modify(ctx, near.ID, Modification{TimeSlot: &slot})
		s.True(domerrors.HasCode(err, domerrors.CodeConflict))
	})

	s.Run("strangers are forbidden", func() {
		slot := "10:00"
		_, err := s.svc.Modify(s.ctxAs(id.NewUserID(), id.RoleUser), b.ID, Modification{TimeSlot: &slot})
		s.True(domerrors.HasCode(err, domerrors.CodeForbidden))
	})
}

func (s *BookingServiceSuite) TestListByUser() {
	ctx := s.ctxAs(s.guestID, id.RoleUser)
	for i := 0; i < 3; i++ {
		s.create(ctx)
	}
	cancelled, err := s.svc.Cancel(ctx, s.create(ctx).ID, "")
	s.Require().NoError(err)

	s.Run("returns the user's bookings with the total", func() {
		items, total, err := s.svc.ListByUser(ctx, ListFilter{UserID: s.guestID})
		s.Require().NoError(err)
		s.Len(items, 4)
		s.Equal(int64(4), total)
	})

	s.Run("filters by status", func() {
		items, total, err := s.svc.ListByUser(ctx, ListFilter{UserID: s.guestID, Status: StatusCancelled})
		s.Require().NoError(err)
		s.Require().Len(items, 1)
		s.Equal(cancelled.ID, items[0].ID)
		s.Equal(int64(1), total)
	})

	s.Run("paginates", func() {
		items, total, err := s.svc.ListByUser(ctx, ListFilter{UserID: s.guestID, Page: 2, Limit: 3})
		s.Require().NoError(err)
		s.Len(items, 1)
		s.Equal(int64(4), total)
	})

	s.Run("rejects an invalid status filter", func() {
		_, _, err := s.svc.ListByUser(ctx, ListFilter{UserID: s.guestID, Status: Status("bogus")})
		s.True(domerrors.HasCode(err, domerrors.CodeValidation))
	})
}

func (s *BookingServiceSuite) TestConfirmationCodesAreUnique() {
	ctx := s.ctxAs(s.guestID, id.RoleUser)
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		b := s.create(ctx)
		s.Require().False(seen[b.ConfirmationCode], fmt.Sprintf("duplicate code %s", b.ConfirmationCode))
		seen[b.ConfirmationCode] = true
	}
}
