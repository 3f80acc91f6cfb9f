package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"roamly/internal/notification"
	id "roamly/pkg/domain"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/testutil"
)

type NotificationHandlerSuite struct {
	suite.Suite

	svc    *notification.Service
	router chi.Router

	recipient id.UserID
	inbox     *notification.Notification
}

func TestNotificationHandlerSuite(t *testing.T) {
	suite.Run(t, new(NotificationHandlerSuite))
}

func (s *NotificationHandlerSuite) SetupTest() {
	logger := slog.Default()
	s.svc = notification.NewService(notification.NewInMemoryStore(), nil, nil, logger)

	h := New(s.svc, logger)
	s.router = chi.NewRouter()
	h.Register(s.router)

	s.recipient = id.NewUserID()
	n, err := s.svc.Create(context.Background(), notification.CreateParams{
		RecipientID: s.recipient,
		Type:        notification.TypeBookingConfirmed,
		Title:       "Booking confirmed",
		Body:        "See you on Saturday.",
	})
	s.Require().NoError(err)
	s.inbox = n
}

func (s *NotificationHandlerSuite) authed(req *http.Request) *http.Request {
	return testutil.WithAuth(req, s.recipient.String(), "", id.RoleUser)
}

func (s *NotificationHandlerSuite) TestMarkRead() {
	s.Run("marking read is a PUT", func() {
		req := s.authed(testutil.NewRequest(s.T(), http.MethodPut, "/notifications/"+s.inbox.ID.String()+"/read"))
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		got := testutil.UnmarshalData[notification.Notification](s.T(), rr)
		s.True(got.Read)
	})

	s.Run("POST is not routed", func() {
		req := s.authed(testutil.NewRequest(s.T(), http.MethodPost, "/notifications/"+s.inbox.ID.String()+"/read"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusMethodNotAllowed)
	})

	s.Run("someone else's notification is forbidden", func() {
		req := testutil.WithAuth(
			testutil.NewRequest(s.T(), http.MethodPut, "/notifications/"+s.inbox.ID.String()+"/read"),
			id.NewUserID().String(), "", id.RoleUser)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, string(domerrors.CodeForbidden))
	})

	s.Run("invalid ids are rejected", func() {
		req := s.authed(testutil.NewRequest(s.T(), http.MethodPut, "/notifications/not-a-uuid/read"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(domerrors.CodeValidation))
	})
}

func (s *NotificationHandlerSuite) TestMarkAllRead() {
	req := s.authed(testutil.NewRequest(s.T(), http.MethodPost, "/notifications/read-all"))
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	got := testutil.UnmarshalData[markAllResponse](s.T(), rr)
	s.Equal(int64(1), got.Updated)
}
