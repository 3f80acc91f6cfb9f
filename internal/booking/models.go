// Package booking implements the reservation lifecycle from creation
// through confirmation, completion, and cancellation.
package booking

import (
	"time"

	id "roamly/pkg/domain"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// transitions defines the booking state machine. Completed and cancelled
// are terminal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether the state machine allows moving from s
// to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Guests struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
	Total    int `json:"total"`
}

// Recount derives the total. Callers must invoke it after every guest write.
func (g *Guests) Recount() {
	g.Total = g.Adults + g.Children + g.Infants
}

type Pricing struct {
	Subtotal  float64 `json:"subtotal"`
	Taxes     float64 `json:"taxes"`
	Fees      float64 `json:"fees"`
	Discounts float64 `json:"discounts"`
	Total     float64 `json:"total"`
	Currency  string  `json:"currency"`
}

// Recompute derives the total from its parts.
func (p *Pricing) Recompute() {
	p.Total = p.Subtotal + p.Taxes + p.Fees - p.Discounts
}

type Payment struct {
	Method        string `json:"method,omitempty"`
	Status        string `json:"status,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
}

// Contact is a snapshot taken at creation; later profile edits do not
// rewrite past bookings.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type HistoryEntry struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
	By     id.UserID `json:"by"`
	Note   string    `json:"note,omitempty"`
}

type Booking struct {
	ID               id.BookingID   `json:"id"`
	UserID           id.UserID      `json:"userId"`
	PlanID           id.PlanID      `json:"planId"`
	BusinessID       *id.BusinessID `json:"businessId,omitempty"`
	PlanOwnerID      id.UserID      `json:"-"`
	Date             time.Time      `json:"date"`
	TimeSlot         string         `json:"timeSlot"`
	Guests           Guests         `json:"guests"`
	Pricing          Pricing        `json:"pricing"`
	Status           Status         `json:"status"`
	StatusHistory    []HistoryEntry `json:"statusHistory"`
	ConfirmationCode string         `json:"confirmationCode"`
	Payment          Payment        `json:"payment"`
	Contact          Contact        `json:"contact"`
	SpecialRequests  string         `json:"specialRequests,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// CanBeCancelled allows cancellation for pending or confirmed bookings
// strictly more than 24 hours before the booked date.
func (b *Booking) CanBeCancelled(now time.Time) bool {
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return false
	}
	return b.Date.Sub(now) > 24*time.Hour
}

// CanBeModified allows guest and date changes strictly more than 48 hours
// before the booked date.
func (b *Booking) CanBeModified(now time.Time) bool {
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return false
	}
	return b.Date.Sub(now) > 48*time.Hour
}

type CreateParams struct {
	UserID          id.UserID
	PlanID          id.PlanID
	Date            time.Time
	TimeSlot        string
	Guests          Guests
	Payment         Payment
	Contact         Contact
	SpecialRequests string
}

// Modification carries the fields an owner may change while CanBeModified
// holds. Nil means leave unchanged.
type Modification struct {
	Date     *time.Time
	TimeSlot *string
	Guests   *Guests
}

type ListFilter struct {
	UserID id.UserID
	Status Status
	Page   int
	Limit  int
}
