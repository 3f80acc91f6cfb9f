// Package business manages the companies that publish tourism plans,
// including the admin verification workflow.
package business

import (
	"time"

	id "roamly/pkg/domain"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationPending, VerificationVerified, VerificationRejected:
		return true
	}
	return false
}

type Contact struct {
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
}

type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type Verification struct {
	Status     VerificationStatus `json:"status"`
	VerifiedBy id.UserID          `json:"verifiedBy,omitempty"`
	VerifiedAt *time.Time         `json:"verifiedAt,omitempty"`
	Notes      string             `json:"notes,omitempty"`
}

// BankingInfo is held for payouts and must never appear in API responses.
// The json tag keeps it out of every serialized Business.
type BankingInfo struct {
	AccountHolder string `json:"accountHolder,omitempty"`
	IBAN          string `json:"iban,omitempty"`
	SwiftCode     string `json:"swiftCode,omitempty"`
}

type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type Stats struct {
	TotalPlans    int `json:"totalPlans"`
	TotalBookings int `json:"totalBookings"`
}

type Business struct {
	ID                 id.BusinessID `json:"id"`
	OwnerID            id.UserID     `json:"ownerId"`
	Name               string        `json:"name"`
	Description        string        `json:"description,omitempty"`
	Contact            Contact       `json:"contact"`
	RegistrationNumber string        `json:"registrationNumber"`
	Address            Address       `json:"address"`
	Verification       Verification  `json:"verification"`
	Banking            BankingInfo   `json:"-"`
	Rating             Rating        `json:"rating"`
	Stats              Stats         `json:"stats"`
	Active             bool          `json:"active"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

type CreateParams struct {
	OwnerID            id.UserID
	Name               string
	Description        string
	Contact            Contact
	RegistrationNumber string
	Address            Address
	Banking            BankingInfo
}

// Update carries the owner-editable fields. Nil means leave unchanged.
type Update struct {
	Name        *string
	Description *string
	Contact     *Contact
	Address     *Address
	Banking     *BankingInfo
}

type ListFilter struct {
	City     string
	Status   VerificationStatus
	OwnerID  id.UserID
	Page     int
	Limit    int
}
