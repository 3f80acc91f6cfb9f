package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitDefaults(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)

	require.NoError(t, pub.Emit(context.Background(), Event{
		ActorID: "actor-1",
		Action:  string(EventLoginSucceeded),
	}))

	events := store.All()
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, SeverityInfo, events[0].Severity)
}

func TestEmitKeepsExplicitFields(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)

	stamp := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), Event{
		ActorID:   "actor-1",
		Action:    string(EventSessionRevoked),
		Severity:  SeverityCritical,
		Timestamp: stamp,
	}))

	events := store.All()
	require.Len(t, events, 1)
	assert.Equal(t, stamp, events[0].Timestamp)
	assert.Equal(t, SeverityCritical, events[0].Severity)
}

func TestListByActor(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	ctx := context.Background()

	require.NoError(t, pub.Emit(ctx, Event{ActorID: "a", Action: string(EventUserUpdated)}))
	require.NoError(t, pub.Emit(ctx, Event{ActorID: "b", Action: string(EventUserUpdated)}))
	require.NoError(t, pub.Emit(ctx, Event{ActorID: "a", Action: string(EventUserDeleted)}))

	events, err := pub.List(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestActionCategories(t *testing.T) {
	assert.Equal(t, CategorySecurity, EventLoginFailed.Category())
	assert.Equal(t, CategoryBooking, EventBookingCreated.Category())
	assert.Equal(t, CategoryAdmin, EventBusinessVerified.Category())
	assert.Equal(t, CategorySecurity, Action("made.up").Category())
}

func TestPurgeOlderThan(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	cutoff := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, Event{ActorID: "a", Timestamp: cutoff.Add(-time.Hour)}))
	require.NoError(t, store.Append(ctx, Event{ActorID: "a", Timestamp: cutoff.Add(time.Hour)}))

	purged, err := store.PurgeOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	assert.Len(t, store.All(), 1)
}
