package notification

import (
	"context"
	"errors"
	"log/slog"

	"roamly/internal/user"
	id "roamly/pkg/domain"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/platform/sentinel"
	"roamly/pkg/requestcontext"
)

// PreferenceSource resolves the recipient's channel toggles.
type PreferenceSource interface {
	GetByID(ctx context.Context, userID id.UserID) (*user.User, error)
}

type Service struct {
	store      Store
	prefs      PreferenceSource
	dispatcher *Dispatcher
	logger     *slog.Logger
}

func NewService(store Store, prefs PreferenceSource, dispatcher *Dispatcher, logger *slog.Logger) *Service {
	return &Service{store: store, prefs: prefs, dispatcher: dispatcher, logger: logger}
}

// Create stores the notification with channels enabled per the recipient's
// preference toggles, then dispatches asynchronously. The dispatch context
// is detached so the originating request can complete first.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Notification, error) {
	if !params.Type.Valid() {
		return nil, domerrors.New(domerrors.CodeValidation, "invalid notification type")
	}

	toggles := user.DefaultPreferences().Notifications
	if s.prefs != nil {
		u, err := s.prefs.GetByID(ctx, params.RecipientID)
		if err == nil {
			toggles = u.Preferences.Notifications
		} else if !domerrors.HasCode(err, domerrors.CodeNotFound) {
			return nil, err
		}
	}

	now := requestcontext.Now(ctx)
	n := &Notification{
		ID:          id.NewNotificationID(),
		RecipientID: params.RecipientID,
		Type:        params.Type,
		Title:       params.Title,
		Body:        params.Body,
		Data:        params.Data,
		Channels: Channels{
			Push:  ChannelState{Enabled: toggles.Push, Status: DeliveryPending},
			Email: ChannelState{Enabled: toggles.Email, Status: DeliveryPending},
			SMS:   ChannelState{Enabled: toggles.SMS, Status: DeliveryPending},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if params.ExpiresIn > 0 {
		expires := now.Add(params.ExpiresIn)
		n.ExpiresAt = &expires
	}

	if err := s.store.Create(ctx, n); err != nil {
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to create notification")
	}

	if s.dispatcher != nil {
		go s.dispatcher.Dispatch(context.WithoutCancel(ctx), n)
	}
	return n, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Notification, int64, error) {
	if filter.RecipientID != requestcontext.UserID(ctx) && !requestcontext.Role(ctx).IsAdmin() {
		return nil, 0, domerrors.New(domerrors.CodeForbidden, "not allowed to list these notifications")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	items, total, err := s.store.ListByRecipient(ctx, filter)
	if err != nil {
		return nil, 0, domerrors.Wrap(err, domerrors.CodeInternal, "failed to list notifications")
	}
	return items, total, nil
}

func (s *Service) MarkRead(ctx context.Context, notificationID id.NotificationID) (*Notification, error) {
	n, err := s.find(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != requestcontext.UserID(ctx) {
		return nil, domerrors.New(domerrors.CodeForbidden, "not allowed to modify this notification")
	}
	if n.Read {
		return n, nil
	}

	n.Read = true
	n.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, n); err != nil {
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to mark notification read")
	}
	return n, nil
}

func (s *Service) MarkAllRead(ctx context.Context) (int64, error) {
	n, err := s.store.MarkAllRead(ctx, requestcontext.UserID(ctx))
	if err != nil {
		return 0, domerrors.Wrap(err, domerrors.CodeInternal, "failed to mark notifications read")
	}
	return n, nil
}

func (s *Service) find(ctx context.Context, notificationID id.NotificationID) (*Notification, error) {
	n, err := s.store.FindByID(ctx, notificationID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, domerrors.New(domerrors.CodeNotFound, "notification not found")
	}
	if err != nil {
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to load notification")
	}
	return n, nil
}
