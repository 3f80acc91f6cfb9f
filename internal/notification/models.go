// Package notification implements in-app notifications with asynchronous
// multi-channel delivery.
package notification

import (
	"time"

	id "roamly/pkg/domain"
)

type Type string

const (
	TypeBookingConfirmed Type = "booking_confirmed"
	TypeBookingCancelled Type = "booking_cancelled"
	TypeReviewReply      Type = "review_reply"
	TypeSystem           Type = "system"
)

func (t Type) Valid() bool {
	switch t {
	case TypeBookingConfirmed, TypeBookingCancelled, TypeReviewReply, TypeSystem:
		return true
	}
	return false
}

type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// ChannelState tracks one channel's delivery independently of the others.
type ChannelState struct {
	Enabled bool           `json:"enabled"`
	Sent    bool           `json:"sent"`
	SentAt  *time.Time     `json:"sentAt,omitempty"`
	Status  DeliveryStatus `json:"deliveryStatus"`
}

type Channels struct {
	Push  ChannelState `json:"push"`
	Email ChannelState `json:"email"`
	SMS   ChannelState `json:"sms"`
}

type Notification struct {
	ID          id.NotificationID `json:"id"`
	RecipientID id.UserID         `json:"recipientId"`
	Type        Type              `json:"type"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	Channels    Channels          `json:"channels"`
	Read        bool              `json:"read"`
	ExpiresAt   *time.Time        `json:"expiresAt,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Expired reports whether the notification must not be dispatched or listed.
func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && !now.Before(*n.ExpiresAt)
}

type CreateParams struct {
	RecipientID id.UserID
	Type        Type
	Title       string
	Body        string
	Data        map[string]string
	ExpiresIn   time.Duration
}

type ListFilter struct {
	RecipientID id.UserID
	UnreadOnly  bool
	Page        int
	Limit       int
}
