package user

import (
	"time"

	id "roamly/pkg/domain"
)

// User is the account aggregate. Favorites and preferences are embedded,
// owned sub-documents; their invariants (dedup by destination id, partial
// preference merge) are enforced in the service write path.
type User struct {
	ID           id.UserID             `json:"id"`
	Email        string                `json:"email"`
	PasswordHash string                `json:"-"`
	FirstName    string                `json:"firstName"`
	LastName     string                `json:"lastName"`
	Phone        string                `json:"phone,omitempty"`
	AvatarURL    string                `json:"avatarUrl,omitempty"`
	Role         id.Role               `json:"role"`
	IsResident   bool                  `json:"isResident"`
	Active       bool                  `json:"active"`
	Preferences  Preferences           `json:"preferences"`
	SocialLinks  map[string]string     `json:"socialLinks,omitempty"`
	Favorites    []FavoriteDestination `json:"favorites"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// Preferences is a nested document; updates merge field by field, never
// replacing the whole document.
type Preferences struct {
	Language      string              `json:"language"`
	Currency      string              `json:"currency"`
	Notifications NotificationToggles `json:"notifications"`
}

// NotificationToggles controls which channels dispatch for this user.
type NotificationToggles struct {
	Push  bool `json:"push"`
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
}

// DefaultPreferences are applied at registration.
func DefaultPreferences() Preferences {
	return Preferences{
		Language: "en",
		Currency: "EUR",
		Notifications: NotificationToggles{
			Push:  true,
			Email: true,
			SMS:   false,
		},
	}
}

// FavoriteDestination is an embedded favorites entry, keyed by DestinationID.
type FavoriteDestination struct {
	DestinationID string    `json:"destinationId"`
	Kind          string    `json:"kind"`
	Notes         string    `json:"notes,omitempty"`
	AddedAt       time.Time `json:"addedAt"`
}

// Stats summarizes a user's activity for the stats endpoints.
type Stats struct {
	Bookings  int64 `json:"bookings"`
	Reviews   int64 `json:"reviews"`
	Favorites int   `json:"favorites"`
}

// RegisterParams carries validated registration input into the service.
type RegisterParams struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Phone      string
	Role       id.Role
	IsResident bool
}

// ProfileUpdate is a partial profile write; nil fields are left untouched.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	Phone       *string
	IsResident  *bool
	SocialLinks map[string]string
}

// PreferencesUpdate is a partial merge; nil fields retain prior values,
// including the nested notification toggles.
type PreferencesUpdate struct {
	Language      *string
	Currency      *string
	Notifications *NotificationTogglesUpdate
}

// NotificationTogglesUpdate merges channel toggles individually.
type NotificationTogglesUpdate struct {
	Push  *bool
	Email *bool
	SMS   *bool
}
