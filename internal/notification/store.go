package notification

import (
	"context"

	id "roamly/pkg/domain"
)

// Store persists notifications.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	FindByID(ctx context.Context, notificationID id.NotificationID) (*Notification, error)
	ListByRecipient(ctx context.Context, filter ListFilter) ([]*Notification, int64, error)
	Update(ctx context.Context, n *Notification) error
	MarkAllRead(ctx context.Context, recipientID id.UserID) (int64, error)
}
