package notification

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"roamly/internal/user"
	id "roamly/pkg/domain"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/requestcontext"
)

type prefsStub struct {
	users map[id.UserID]*user.User
}

func (p *prefsStub) GetByID(_ context.Context, userID id.UserID) (*user.User, error) {
	u, ok := p.users[userID]
	if !ok {
		return nil, domerrors.New(domerrors.CodeNotFound, "user not found")
	}
	return u, nil
}

type NotificationServiceSuite struct {
	suite.Suite

	store *InMemoryStore
	prefs *prefsStub
	svc   *Service

	now         time.Time
	recipientID id.UserID
}

func TestNotificationServiceSuite(t *testing.T) {
	suite.Run(t, new(NotificationServiceSuite))
}

func (s *NotificationServiceSuite) SetupTest() {
	s.now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	s.recipientID = id.NewUserID()

	prefs := user.DefaultPreferences()
	prefs.Notifications.SMS = true
	prefs.Notifications.Email = false
	s.prefs = &prefsStub{users: map[id.UserID]*user.User{
		s.recipientID: {ID: s.recipientID, Preferences: prefs},
	}}

	s.store = NewInMemoryStore()
	s.svc = NewService(s.store, s.prefs, nil, slog.Default())
}

func (s *NotificationServiceSuite) ctxAs(userID id.UserID, role id.Role) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), userID)
	ctx = requestcontext.WithRole(ctx, role)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *NotificationServiceSuite) create(params CreateParams) *Notification {
	if params.RecipientID.IsNil() {
		params.RecipientID = s.recipientID
	}
	if params.Type == "" {
		params.Type = TypeSystem
	}
	n, err := s.svc.Create(context.Background(), params)
	s.Require().NoError(err)
	return n
}

func (s *NotificationServiceSuite) TestCreate() {
	s.Run("channels follow the recipient's toggles", func() {
		n := s.create(CreateParams{Title: "Hi"})
		s.True(n.Channels.Push.Enabled)
		s.False(n.Channels.Email.Enabled)
		s.True(n.Channels.SMS.Enabled)
		s.Equal(DeliveryPending, n.Channels.Push.Status)
	})

	s.Run("unknown recipients fall back to defaults", func() {
		n := s.create(CreateParams{RecipientID: id.NewUserID(), Title: "Hi"})
		s.True(n.Channels.Push.Enabled)
		s.True(n.Channels.Email.Enabled)
		s.False(n.Channels.SMS.Enabled)
	})

	s.Run("expiry is derived from the ttl", func() {
		ctx := requestcontext.WithTime(context.Background(), s.now)
		n, err := s.svc.Create(ctx, CreateParams{
			RecipientID: s.recipientID,
			Type:        TypeBookingConfirmed,
			ExpiresIn:   time.Hour,
		})
		s.Require().NoError(err)
		s.Require().NotNil(n.ExpiresAt)
		s.Equal(s.now.Add(time.Hour), *n.ExpiresAt)
	})

	s.Run("rejects unknown types", func() {
		_, err := s.svc.Create(context.Background(), CreateParams{
			RecipientID: s.recipientID,
			Type:        Type("bogus"),
		})
		s.True(domerrors.HasCode(err, domerrors.CodeValidation))
	})
}

func (s *NotificationServiceSuite) TestList() {
	read := s.create(CreateParams{Title: "first"})
	s.create(CreateParams{Title: "second"})

	recipientCtx := s.ctxAs(s.recipientID, id.RoleUser)
	_, err := s.svc.MarkRead(recipientCtx, read.ID)
	s.Require().NoError(err)

	s.Run("lists the recipient's notifications", func() {
		items, total, err := s.svc.List(recipientCtx, ListFilter{RecipientID: s.recipientID})
		s.Require().NoError(err)
		s.Len(items, 2)
		s.Equal(int64(2), total)
	})

	s.Run("unread filter excludes read ones", func() {
		items, total, err := s.svc.List(recipientCtx, ListFilter{RecipientID: s.recipientID, UnreadOnly: true})
		s.Require().NoError(err)
		s.Require().Len(items, 1)
		s.Equal("second", items[0].Title)
		s.Equal(int64(1), total)
	})

	s.Run("expired notifications never show up", func() {
		n := s.create(CreateParams{Title: "ephemeral"})
		past := time.Now().UTC().Add(-time.Minute)
		n.ExpiresAt = &past
		s.Require().NoError(s.store.Update(context.Background(), n))

		items, _, err := s.svc.List(recipientCtx, ListFilter{RecipientID: s.recipientID})
		s.Require().NoError(err)
		for _, item := range items {
			s.NotEqual("ephemeral", item.Title)
		}
	})

	s.Run("strangers cannot list someone else's", func() {
		_, _, err := s.svc.List(s.ctxAs(id.NewUserID(), id.RoleUser), ListFilter{RecipientID: s.recipientID})
		s.True(domerrors.HasCode(err, domerrors.CodeForbidden))
	})
}

func (s *NotificationServiceSuite) TestMarkRead() {
	n := s.create(CreateParams{Title: "unread"})
	recipientCtx := s.ctxAs(s.recipientID, id.RoleUser)

	s.Run("recipient marks it read", func() {
		got, err := s.svc.MarkRead(recipientCtx, n.ID)
		s.Require().NoError(err)
		s.True(got.Read)
	})

	s.Run("marking twice is a no-op", func() {
		got, err := s.svc.MarkRead(recipientCtx, n.ID)
		s.Require().NoError(err)
		s.True(got.Read)
	})

	s.Run("others are forbidden", func() {
		other := s.create(CreateParams{Title: "not yours"})
		_, err := s.svc.MarkRead(s.ctxAs(id.NewUserID(), id.RoleUser), other.ID)
		s.True(domerrors.HasCode(err, domerrors.CodeForbidden))
	})
}

func (s *NotificationServiceSuite) TestMarkAllRead() {
	for i := 0; i < 3; i++ {
		s.create(CreateParams{Title: "bulk"})
	}

	recipientCtx := s.ctxAs(s.recipientID, id.RoleUser)
	count, err := s.svc.MarkAllRead(recipientCtx)
	s.Require().NoError(err)
	s.Equal(int64(3), count)

	items, _, err := s.svc.List(recipientCtx, ListFilter{RecipientID: s.recipientID, UnreadOnly: true})
	s.Require().NoError(err)
	s.Empty(items)
}
