package plan

import (
	"time"

	id "roamly/pkg/domain"
)

// Category is the closed plan category enumeration.
type Category string

const (
	CategoryAdventure  Category = "adventure"
	CategoryCultural   Category = "cultural"
	CategoryGastronomy Category = "gastronomy"
	CategoryNature     Category = "nature"
	CategoryWellness   Category = "wellness"
	CategoryUrban      Category = "urban"
)

// Difficulty grades the physical demand of a plan.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyModerate Difficulty = "moderate"
	DifficultyHard     Difficulty = "hard"
)

// Plan is a bookable tourism offering. Price, address, capacity, schedule,
// rating, and stats are fixed-shape sub-documents owned by the row.
type Plan struct {
	ID            id.PlanID      `json:"id"`
	OwnerID       id.UserID      `json:"ownerId"`
	BusinessID    *id.BusinessID `json:"businessId,omitempty"`
	Title         string         `json:"title"`
	Slug          string         `json:"slug"`
	Description   string         `json:"description"`
	Category      Category       `json:"category"`
	Price         Price          `json:"price"`
	DurationHours float64        `json:"durationHours"`
	Address       Address        `json:"address"`
	Capacity      Capacity       `json:"capacity"`
	Difficulty    Difficulty     `json:"difficulty"`
	Schedule      Schedule       `json:"schedule"`
	Rating        Rating         `json:"rating"`
	Stats         UsageStats     `json:"stats"`
	Active        bool           `json:"active"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Price describes what the amount covers.
type Price struct {
	Amount     float64  `json:"amount"`
	Currency   string   `json:"currency"`
	Inclusions []string `json:"inclusions,omitempty"`
	Exclusions []string `json:"exclusions,omitempty"`
}

// Address is a geolocated street address.
type Address struct {
	Street    string  `json:"street,omitempty"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Capacity bounds group size. Max >= Min is enforced at write time.
type Capacity struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Schedule describes availability: weekday flags, bookable time slots, and
// blackout dates.
type Schedule struct {
	Weekdays      []time.Weekday `json:"weekdays"`
	TimeSlots     []string       `json:"timeSlots"`
	BlackoutDates []string       `json:"blackoutDates,omitempty"`
}

// Rating is the denormalized review aggregate, recomputed by the review
// service whenever an approved review is created or deleted.
type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// UsageStats tracks engagement counters.
type UsageStats struct {
	Views     int64 `json:"views"`
	Bookings  int64 `json:"bookings"`
	Favorites int64 `json:"favorites"`
}

// CreateParams carries validated input into Create.
type CreateParams struct {
	OwnerID       id.UserID
	BusinessID    *id.BusinessID
	Title         string
	Description   string
	Category      Category
	Price         Price
	DurationHours float64
	Address       Address
	Capacity      Capacity
	Difficulty    Difficulty
	Schedule      Schedule
}

// Update is a partial write; nil fields are left untouched.
type Update struct {
	Title         *string
	Description   *string
	Category      *Category
	Price         *Price
	DurationHours *float64
	Address       *Address
	Capacity      *Capacity
	Difficulty    *Difficulty
	Schedule      *Schedule
}

// ListFilter narrows List results. Zero values mean "no constraint".
type ListFilter struct {
	Category Category
	City     string
	MinPrice float64
	MaxPrice float64
	OwnerID  id.UserID
	Page     int
	Limit    int
}
