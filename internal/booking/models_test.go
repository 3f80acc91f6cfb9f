package booking

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusConfirmed, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransition(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestCancellationWindow(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	t.Run("open while strictly more than 24h remain", func(t *testing.T) {
		b := &Booking{Status: StatusConfirmed, Date: now.Add(24*time.Hour + time.Second)}
		assert.True(t, b.CanBeCancelled(now))
	})

	t.Run("closed at exactly 24h", func(t *testing.T) {
		b := &Booking{Status: StatusConfirmed, Date: now.Add(24 * time.Hour)}
		assert.False(t, b.CanBeCancelled(now))
	})

	t.Run("closed under 24h", func(t *testing.T) {
		b := &Booking{Status: StatusPending, Date: now.Add(23 * time.Hour)}
		assert.False(t, b.CanBeCancelled(now))
	})

	t.Run("closed in terminal states regardless of date", func(t *testing.T) {
		for _, status := range []Status{StatusCancelled, StatusCompleted} {
			b := &Booking{Status: status, Date: now.Add(72 * time.Hour)}
			assert.False(t, b.CanBeCancelled(now), string(status))
		}
	})
}

func TestModificationWindow(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	t.Run("open while strictly more than 48h remain", func(t *testing.T) {
		b := &Booking{Status: StatusPending, Date: now.Add(48*time.Hour + time.Second)}
		assert.True(t, b.CanBeModified(now))
	})

	t.Run("closed at exactly 48h", func(t *testing.T) {
		b := &Booking{Status: StatusPending, Date: now.Add(48 * time.Hour)}
		assert.False(t, b.CanBeModified(now))
	})

	t.Run("cancellable but not modifiable between 24h and 48h", func(t *testing.T) {
		b := &Booking{Status: StatusConfirmed, Date: now.Add(36 * time.Hour)}
		assert.True(t, b.CanBeCancelled(now))
		assert.False(t, b.CanBeModified(now))
	})
}

func TestGuestsRecount(t *testing.T) {
	g := Guests{Adults: 2, Children: 1, Infants: 1, Total: 99}
	g.Recount()
	assert.Equal(t, 4, g.Total)
}

func TestPricingRecompute(t *testing.T) {
	p := Pricing{Subtotal: 100, Taxes: 10, Fees: 5, Discounts: 15}
	p.Recompute()
	assert.Equal(t, 100.0, p.Total)
}

func TestConfirmationCode(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	t.Run("carries prefix, timestamp, and random tail", func(t *testing.T) {
		code := newConfirmationCode(now)
		assert.True(t, strings.HasPrefix(code, codePrefix))

		tail := code[len(codePrefix):]
		assert.Greater(t, len(tail), 4)
		for _, c := range tail {
			assert.Contains(t, codeAlphabet+"0123456789", string(c))
		}
	})

	t.Run("codes issued in the same instant differ", func(t *testing.T) {
		seen := map[string]bool{}
		for i := 0; i < 50; i++ {
			seen[newConfirmationCode(now)] = true
		}
		assert.Greater(t, len(seen), 1)
	})
}
