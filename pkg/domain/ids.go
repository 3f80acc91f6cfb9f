// Package domain holds typed identifiers and closed enumerations shared across
// services. IDs wrap uuid.UUID so a BookingID can never be passed where a
// UserID is expected.
package domain

import "github.com/google/uuid"

type (
	UserID         uuid.UUID
	PlanID         uuid.UUID
	BusinessID     uuid.UUID
	BookingID      uuid.UUID
	ReviewID       uuid.UUID
	SessionID      uuid.UUID
	NotificationID uuid.UUID
)

func NewUserID() UserID                 { return UserID(uuid.New()) }
func NewPlanID() PlanID                 { return PlanID(uuid.New()) }
func NewBusinessID() BusinessID         { return BusinessID(uuid.New()) }
func NewBookingID() BookingID           { return BookingID(uuid.New()) }
func NewReviewID() ReviewID             { return ReviewID(uuid.New()) }
func NewSessionID() SessionID           { return SessionID(uuid.New()) }
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id PlanID) String() string         { return uuid.UUID(id).String() }
func (id BusinessID) String() string     { return uuid.UUID(id).String() }
func (id BookingID) String() string      { return uuid.UUID(id).String() }
func (id ReviewID) String() string       { return uuid.UUID(id).String() }
func (id SessionID) String() string      { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id PlanID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id BusinessID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id BookingID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id ReviewID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id PlanID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id BusinessID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id BookingID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id ReviewID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id SessionID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id NotificationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error         { return unmarshalID((*uuid.UUID)(id), b) }
func (id *PlanID) UnmarshalText(b []byte) error         { return unmarshalID((*uuid.UUID)(id), b) }
func (id *BusinessID) UnmarshalText(b []byte) error     { return unmarshalID((*uuid.UUID)(id), b) }
func (id *BookingID) UnmarshalText(b []byte) error      { return unmarshalID((*uuid.UUID)(id), b) }
func (id *ReviewID) UnmarshalText(b []byte) error       { return unmarshalID((*uuid.UUID)(id), b) }
func (id *SessionID) UnmarshalText(b []byte) error      { return unmarshalID((*uuid.UUID)(id), b) }
func (id *NotificationID) UnmarshalText(b []byte) error { return unmarshalID((*uuid.UUID)(id), b) }

func unmarshalID(dst *uuid.UUID, b []byte) error {
	parsed, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*dst = parsed
	return nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	return UserID(u), err
}

func ParsePlanID(s string) (PlanID, error) {
	u, err := uuid.Parse(s)
	return PlanID(u), err
}

func ParseBusinessID(s string) (BusinessID, error) {
	u, err := uuid.Parse(s)
	return BusinessID(u), err
}

func ParseBookingID(s string) (BookingID, error) {
	u, err := uuid.Parse(s)
	return BookingID(u), err
}

func ParseReviewID(s string) (ReviewID, error) {
	u, err := uuid.Parse(s)
	return ReviewID(u), err
}

func ParseSessionID(s string) (SessionID, error) {
	u, err := uuid.Parse(s)
	return SessionID(u), err
}

func ParseNotificationID(s string) (NotificationID, error) {
	u, err := uuid.Parse(s)
	return NotificationID(u), err
}
