package plan

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "roamly/pkg/domain"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/requestcontext"
)

type PlanServiceSuite struct {
	suite.Suite

	store *InMemoryStore
	svc   *Service

	now     time.Time
	ownerID id.UserID
}

func TestPlanServiceSuite(t *testing.T) {
	suite.Run(t, new(PlanServiceSuite))
}

func (s *PlanServiceSuite) SetupTest() {
	s.now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	s.ownerID = id.NewUserID()
	s.store = NewInMemoryStore()
	s.svc = NewService(s.store, slog.Default())
}

func (s *PlanServiceSuite) ctxAs(userID id.UserID, role id.Role) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), userID)
	ctx = requestcontext.WithRole(ctx, role)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *PlanServiceSuite) create(title string) *Plan {
	p, err := s.svc.Create(s.ctxAs(s.ownerID, id.RoleUser), CreateParams{
		OwnerID:  s.ownerID,
		Title:    title,
		Category: CategoryNature,
		Price:    Price{Amount: 45, Currency: "EUR"},
		Capacity: Capacity{Min: 1, Max: 8},
		Address:  Address{City: "Lisbon"},
	})
	s.Require().NoError(err)
	return p
}

func (s *PlanServiceSuite) TestCreate() {
	s.Run("issues a slug and starts active", func() {
		p := s.create("Douro Valley Hike")
		s.Contains(p.Slug, "douro-valley-hike")
		s.True(p.Active)
	})

	s.Run("rejects inverted capacity bounds", func() {
		_, err := s.svc.Create(s.ctxAs(s.ownerID, id.RoleUser), CreateParams{
			OwnerID:  s.ownerID,
			Title:    "Broken",
			Capacity: Capacity{Min: 5, Max: 2},
		})
		s.True(domerrors.HasCode(err, domerrors.CodeValidation))
	})

	s.Run("dedupes price inclusions", func() {
		p, err := s.svc.Create(s.ctxAs(s.ownerID, id.RoleUser), CreateParams{
			OwnerID: s.ownerID,
			Title:   "Lunch included",
			Price: Price{
				Amount:     30,
				Currency:   "EUR",
				Inclusions: []string{" lunch", "lunch ", "guide"},
			},
			Capacity: Capacity{Min: 1, Max: 4},
		})
		s.Require().NoError(err)
		s.Equal([]string{"lunch", "guide"}, p.Price.Inclusions)
	})
}

func (s *PlanServiceSuite) TestGetBumpsViews() {
	p := s.create("Viewed Plan")
	publicCtx := s.ctxAs(id.NewUserID(), id.RoleUser)

	got, err := s.svc.GetByID(publicCtx, p.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), got.Stats.Views)

	got, err = s.svc.GetByID(publicCtx, p.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), got.Stats.Views)
}

func (s *PlanServiceSuite) TestUpdate() {
	p := s.create("Original Title")
	ownerCtx := s.ctxAs(s.ownerID, id.RoleUser)

	s.Run("rename keeps the slug", func() {
		title := "Fresh Title"
		got, err := s.svc.Update(ownerCtx, p.ID, Update{Title: &title})
		s.Require().NoError(err)
		s.Equal("Fresh Title", got.Title)
		s.Equal(p.Slug, got.Slug)
	})

	s.Run("capacity bounds are re-checked", func() {
		bad := Capacity{Min: 10, Max: 2}
		_, err := s.svc.Update(ownerCtx, p.ID, Update{Capacity: &bad})
		s.True(domerrors.HasCode(err, domerrors.CodeValidation))
	})

	s.Run("strangers are forbidden", func() {
		title := "Hijacked"
		_, err := s.svc.Update(s.ctxAs(id.NewUserID(), id.RoleUser), p.ID, Update{Title: &title})
		s.True(domerrors.HasCode(err, domerrors.CodeForbidden))
	})
}

func (s *PlanServiceSuite) TestDeleteHidesFromPublic() {
	p := s.create("Retired Plan")
	ownerCtx := s.ctxAs(s.ownerID, id.RoleUser)
	s.Require().NoError(s.svc.Delete(ownerCtx, p.ID))

	s.Run("public lookups miss", func() {
		_, err := s.svc.GetByID(s.ctxAs(id.NewUserID(), id.RoleUser), p.ID)
		s.True(domerrors.HasCode(err, domerrors.CodeNotFound))
	})

	s.Run("owner still sees it", func() {
		got, err := s.svc.GetByID(ownerCtx, p.ID)
		s.Require().NoError(err)
		s.False(got.Active)
	})

	s.Run("inactive plans drop out of listings", func() {
		items, total, err := s.svc.List(context.Background(), ListFilter{})
		s.Require().NoError(err)
		s.Empty(items)
		s.Equal(int64(0), total)
	})
}

func (s *PlanServiceSuite) TestListFilters() {
	nature := s.create("Nature Walk")
	urban, err := s.svc.Create(s.ctxAs(s.ownerID, id.RoleUser), CreateParams{
		OwnerID:  s.ownerID,
		Title:    "City Lights",
		Category: CategoryUrban,
		Price:    Price{Amount: 90, Currency: "EUR"},
		Capacity: Capacity{Min: 1, Max: 10},
		Address:  Address{City: "Porto"},
	})
	s.Require().NoError(err)

	s.Run("by category", func() {
		items, _, err := s.svc.List(context.Background(), ListFilter{Category: CategoryUrban})
		s.Require().NoError(err)
		s.Require().Len(items, 1)
		s.Equal(urban.ID, items[0].ID)
	})

	s.Run("by city", func() {
		items, _, err := s.svc.List(context.Background(), ListFilter{City: "Lisbon"})
		s.Require().NoError(err)
		s.Require().Len(items, 1)
		s.Equal(nature.ID, items[0].ID)
	})

	s.Run("by price range", func() {
		items, _, err := s.svc.List(context.Background(), ListFilter{MinPrice: 50})
		s.Require().NoError(err)
		s.Require().Len(items, 1)
		s.Equal(urban.ID, items[0].ID)
	})
}

func (s *PlanServiceSuite) TestFavoriteCounter() {
	p := s.create("Favorited Plan")
	ctx := s.ctxAs(id.NewUserID(), id.RoleUser)

	s.Require().NoError(s.svc.Favorite(ctx, p.ID, true))
	s.Require().NoError(s.svc.Favorite(ctx, p.ID, true))
	s.Require().NoError(s.svc.Favorite(ctx, p.ID, false))

	got, err := s.store.FindByID(context.Background(), p.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), got.Stats.Favorites)
}

func (s *PlanServiceSuite) TestRatingAggregate() {
	p := s.create("Rated Plan")
	s.Require().NoError(s.svc.SetRating(context.Background(), p.ID, 4.2, 12))

	got, err := s.store.FindByID(context.Background(), p.ID)
	s.Require().NoError(err)
	s.Equal(4.2, got.Rating.Average)
	s.Equal(12, got.Rating.Count)
}
