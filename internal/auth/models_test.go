package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "roamly/pkg/domain"
)

func TestParseDevice(t *testing.T) {
	t.Run("desktop browser", func(t *testing.T) {
		d := ParseDevice("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		assert.Contains(t, d.Browser, "Chrome")
		assert.False(t, d.Mobile)
		assert.NotEmpty(t, d.OS)
	})

	t.Run("mobile browser", func(t *testing.T) {
		d := ParseDevice("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
		assert.True(t, d.Mobile)
	})

	t.Run("empty user agent", func(t *testing.T) {
		assert.Equal(t, Device{}, ParseDevice(""))
	})
}

func TestSessionUsable(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	t.Run("active and unexpired", func(t *testing.T) {
		s := &Session{Active: true, ExpiresAt: now.Add(time.Hour)}
		assert.True(t, s.Usable(now))
	})

	t.Run("revoked", func(t *testing.T) {
		s := &Session{Active: false, ExpiresAt: now.Add(time.Hour)}
		assert.False(t, s.Usable(now))
	})

	t.Run("expired", func(t *testing.T) {
		s := &Session{Active: true, ExpiresAt: now.Add(-time.Second)}
		assert.False(t, s.Usable(now))
	})

	t.Run("expiry instant itself is unusable", func(t *testing.T) {
		s := &Session{Active: true, ExpiresAt: now}
		assert.False(t, s.Usable(now))
	})
}

func TestRefreshTokenFormat(t *testing.T) {
	t.Run("raw token embeds the session id", func(t *testing.T) {
		sessionID := id.NewSessionID()
		raw, hash, err := newRefreshToken(sessionID)
		assert.NoError(t, err)

		parsed, err := splitRefreshToken(raw)
		assert.NoError(t, err)
		assert.Equal(t, sessionID, parsed)
		assert.True(t, matchRefreshToken(raw, hash))
	})

	t.Run("hash rejects a tampered token", func(t *testing.T) {
		raw, hash, err := newRefreshToken(id.NewSessionID())
		assert.NoError(t, err)
		assert.False(t, matchRefreshToken(raw+"x", hash))
	})

	t.Run("malformed tokens are rejected", func(t *testing.T) {
		_, err := splitRefreshToken("not-a-token")
		assert.Error(t, err)
	})
}
