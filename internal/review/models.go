// Package review implements plan reviews, moderation, and helpful votes.
package review

import (
	"math"
	"time"

	id "roamly/pkg/domain"
)

type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending_review"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
	ModerationFlagged  ModerationStatus = "flagged"
)

func (s ModerationStatus) Valid() bool {
	switch s {
	case ModerationPending, ModerationApproved, ModerationRejected, ModerationFlagged:
		return true
	}
	return false
}

// Rating holds the five sub-ratings the author gives. Overall is always
// derived on the server and never accepted from a client.
type Rating struct {
	Value         int     `json:"value"`
	Service       int     `json:"service"`
	Cleanliness   int     `json:"cleanliness"`
	Location      int     `json:"location"`
	Communication int     `json:"communication"`
	Overall       float64 `json:"overall"`
}

// ComputeOverall sets the mean of the five sub-ratings rounded to one
// decimal place.
func (r *Rating) ComputeOverall() {
	sum := r.Value + r.Service + r.Cleanliness + r.Location + r.Communication
	r.Overall = math.Round(float64(sum)/5*10) / 10
}

// InRange reports whether every sub-rating is between 1 and 5.
func (r Rating) InRange() bool {
	for _, v := range []int{r.Value, r.Service, r.Cleanliness, r.Location, r.Communication} {
		if v < 1 || v > 5 {
			return false
		}
	}
	return true
}

type Review struct {
	ID           id.ReviewID      `json:"id"`
	BookingID    id.BookingID     `json:"bookingId"`
	PlanID       id.PlanID        `json:"planId"`
	AuthorID     id.UserID        `json:"authorId,omitempty"`
	Rating       Rating           `json:"rating"`
	Title        string           `json:"title"`
	Comment      string           `json:"comment"`
	Anonymous    bool             `json:"anonymous"`
	Moderation   ModerationStatus `json:"moderationStatus"`
	HelpfulVotes []id.UserID      `json:"helpfulVotes"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// Redacted returns a copy safe for public listing: anonymous reviews drop
// the author id.
func (r *Review) Redacted() *Review {
	clone := *r
	clone.HelpfulVotes = append([]id.UserID(nil), r.HelpfulVotes...)
	if clone.Anonymous {
		clone.AuthorID = id.UserID{}
	}
	return &clone
}

// HasVoted reports whether the user already marked the review helpful.
func (r *Review) HasVoted(userID id.UserID) bool {
	for _, v := range r.HelpfulVotes {
		if v == userID {
			return true
		}
	}
	return false
}

type CreateParams struct {
	BookingID id.BookingID
	AuthorID  id.UserID
	Rating    Rating
	Title     string
	Comment   string
	Anonymous bool
}

// Update carries the author-editable fields. Nil means leave unchanged.
type Update struct {
	Rating    *Rating
	Title     *string
	Comment   *string
	Anonymous *bool
}

type ListFilter struct {
	PlanID       id.PlanID
	ApprovedOnly bool
	Page         int
	Limit        int
}
