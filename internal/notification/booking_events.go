package notification

import (
	"context"
	"fmt"
	"time"

	"roamly/internal/booking"
)

// bookingNotificationTTL keeps stale booking notices from dispatching long
// after the fact.
const bookingNotificationTTL = 7 * 24 * time.Hour

// BookingEvents adapts the notification service to the booking package's
// Notifier interface.
type BookingEvents struct {
	notifications *Service
}

func NewBookingEvents(notifications *Service) *BookingEvents {
	return &BookingEvents{notifications: notifications}
}

func (e *BookingEvents) BookingStatusChanged(ctx context.Context, b *booking.Booking) {
	var (
		ntype Type
		title string
	)
	switch b.Status {
	case booking.StatusConfirmed:
		ntype = TypeBookingConfirmed
		title = "Your booking is confirmed"
	case booking.StatusCancelled:
		ntype = TypeBookingCancelled
		title = "Your booking was cancelled"
	default:
		return
	}

	_, err := e.notifications.Create(ctx, CreateParams{
		RecipientID: b.UserID,
		Type:        ntype,
		Title:       title,
		Body:        fmt.Sprintf("Booking %s for %s is now %s.", b.ConfirmationCode, b.Date.Format("2006-01-02"), b.Status),
		Data: map[string]string{
			"bookingId":        b.ID.String(),
			"confirmationCode": b.ConfirmationCode,
			"status":           string(b.Status),
		},
		ExpiresIn: bookingNotificationTTL,
	})
	if err != nil {
		e.notifications.logger.ErrorContext(ctx, "failed to create booking notification",
			"bookingId", b.ID, "error", err)
	}
}
