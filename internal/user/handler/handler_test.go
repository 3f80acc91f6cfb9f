package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"roamly/internal/user"
	id "roamly/pkg/domain"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/testutil"
	"roamly/pkg/validate"
)

type activityStub struct{}

func (activityStub) CountBookingsByUser(context.Context, id.UserID) (int64, error) { return 0, nil }
func (activityStub) CountReviewsByAuthor(context.Context, id.UserID) (int64, error) {
	return 0, nil
}

type UserHandlerSuite struct {
	suite.Suite

	svc    *user.Service
	router chi.Router

	current *user.User
}

func TestUserHandlerSuite(t *testing.T) {
	suite.Run(t, new(UserHandlerSuite))
}

func (s *UserHandlerSuite) SetupTest() {
	logger := slog.Default()
	s.svc = user.NewService(user.NewInMemoryStore(), activityStub{}, nil, logger)

	h := New(s.svc, logger, validate.New())
	s.router = chi.NewRouter()
	h.Register(s.router)

	u, err := s.svc.Register(context.Background(), user.RegisterParams{
		Email:    "handler@example.com",
		Password: "s3cret-pass",
	})
	s.Require().NoError(err)
	s.current = u
}

func (s *UserHandlerSuite) authed(req *http.Request) *http.Request {
	return testutil.WithAuth(req, s.current.ID.String(), "", id.RoleUser)
}

func (s *UserHandlerSuite) TestGetUser() {
	s.Run("returns the profile without the password hash", func() {
		req := s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/users/"+s.current.ID.String()))
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		body := string(testutil.ReadBody(s.T(), rr))
		s.Contains(body, s.current.Email)
		s.NotContains(body, "passwordHash")
		s.NotContains(body, "$2a$")
	})

	s.Run("invalid ids are rejected", func() {
		req := s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/users/not-a-uuid"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(domerrors.CodeValidation))
	})

	s.Run("unknown users are 404", func() {
		req := s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/users/"+id.NewUserID().String()))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(domerrors.CodeNotFound))
	})
}

func (s *UserHandlerSuite) TestUpdateProfile() {
	s.Run("self update succeeds", func() {
		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPut, "/users/"+s.current.ID.String(),
			map[string]any{"firstName": "Rita"}))
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		got := testutil.UnmarshalData[user.User](s.T(), rr)
		s.Equal("Rita", got.FirstName)
	})

	s.Run("editing someone else is forbidden", func() {
		other, err := s.svc.Register(context.Background(), user.RegisterParams{
			Email:    "victim@example.com",
			Password: "s3cret-pass",
		})
		s.Require().NoError(err)

		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPut, "/users/"+other.ID.String(),
			map[string]any{"firstName": "Hacked"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, string(domerrors.CodeForbidden))
	})

	s.Run("invalid phone fails validation", func() {
		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPut, "/users/"+s.current.ID.String(),
			map[string]any{"phone": "not-a-phone"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(domerrors.CodeValidation))
	})
}

func (s *UserHandlerSuite) TestChangePassword() {
	s.Run("short new passwords fail validation", func() {
		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPut, "/users/me/change-password",
			map[string]any{"currentPassword": "s3cret-pass", "newPassword": "short"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(domerrors.CodeValidation))
	})

	s.Run("wrong current password is unauthorized", func() {
		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPut, "/users/me/change-password",
			map[string]any{"currentPassword": "wrong", "newPassword": "new-pass-123"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(domerrors.CodeUnauthorized))
	})

	s.Run("valid change succeeds", func() {
		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPut, "/users/me/change-password",
			map[string]any{"currentPassword": "s3cret-pass", "newPassword": "new-pass-123"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
	})
}

func (s *UserHandlerSuite) TestFavorites() {
	s.Run("add returns 201 with the list", func() {
		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/users/me/favorites",
			map[string]any{"destinationId": "lisbon", "kind": "city"}))
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		favs := testutil.UnmarshalData[[]user.FavoriteDestination](s.T(), rr)
		s.Len(*favs, 1)
	})

	s.Run("unknown kind fails validation", func() {
		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/users/me/favorites",
			map[string]any{"destinationId": "porto", "kind": "volcano"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(domerrors.CodeValidation))
	})

	s.Run("remove by destination id", func() {
		req := s.authed(testutil.NewRequest(s.T(), http.MethodDelete, "/users/me/favorites/lisbon"))
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		favs := testutil.UnmarshalData[[]user.FavoriteDestination](s.T(), rr)
		s.Empty(*favs)
	})
}

func (s *UserHandlerSuite) TestStats() {
	req := s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/users/me/stats"))
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	stats := testutil.UnmarshalData[user.Stats](s.T(), rr)
	s.Equal(int64(0), stats.Bookings)
}
