// Package auth implements login, token issuance, refresh rotation, and
// session management.
package auth

import (
	"time"

	"github.com/mssola/useragent"

	id "roamly/pkg/domain"
)

type RevocationReason string

const (
	ReasonUserLogout     RevocationReason = "user_logout"
	ReasonAdminAction    RevocationReason = "admin_action"
	ReasonSecurity       RevocationReason = "security"
	ReasonExpired        RevocationReason = "expired"
	ReasonPasswordChange RevocationReason = "password_change"
)

// Device is parsed from the User-Agent header at session creation.
type Device struct {
	Name    string `json:"name,omitempty"`
	OS      string `json:"os,omitempty"`
	Browser string `json:"browser,omitempty"`
	Mobile  bool   `json:"mobile"`
}

// ParseDevice extracts device metadata from a raw User-Agent string.
func ParseDevice(raw string) Device {
	if raw == "" {
		return Device{}
	}
	ua := useragent.New(raw)
	browser, version := ua.Browser()
	d := Device{
		Name:    ua.Platform(),
		OS:      ua.OS(),
		Browser: browser,
		Mobile:  ua.Mobile(),
	}
	if version != "" {
		d.Browser = browser + " " + version
	}
	return d
}

type Revocation struct {
	At     time.Time        `json:"at"`
	By     id.UserID        `json:"by"`
	Reason RevocationReason `json:"reason"`
}

// Session tracks one refresh-token lineage. The refresh token itself is
// never stored; only its SHA-256 hash is.
type Session struct {
	ID               id.SessionID `json:"id"`
	UserID           id.UserID    `json:"userId"`
	RefreshTokenHash string       `json:"-"`
	Device           Device       `json:"device"`
	IP               string       `json:"ip,omitempty"`
	Location         string       `json:"location,omitempty"`
	Active           bool         `json:"active"`
	ExpiresAt        time.Time    `json:"expiresAt"`
	Revocation       *Revocation  `json:"revocation,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
	LastUsedAt       time.Time    `json:"lastUsedAt"`
}

// Usable reports whether the session can still mint access tokens.
func (s *Session) Usable(now time.Time) bool {
	return s.Active && now.Before(s.ExpiresAt)
}

// TokenPair is returned from every operation that issues credentials.
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}
