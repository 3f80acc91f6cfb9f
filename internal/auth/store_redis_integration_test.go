//go:build integration

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"roamly/internal/auth"
	id "roamly/pkg/domain"
	"roamly/pkg/platform/sentinel"
	"roamly/pkg/testutil/containers"
)

type RedisSessionStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *auth.RedisSessionStore
}

func TestRedisSessionStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisSessionStoreSuite))
}

func (s *RedisSessionStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = auth.NewRedisSessionStore(s.redis.Client)
}

func (s *RedisSessionStoreSuite) SetupTest() {
	err := s.redis.FlushAll(context.Background())
	s.Require().NoError(err)
}

func newSession(userID id.UserID, ttl time.Duration) *auth.Session {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &auth.Session{
		ID:               id.NewSessionID(),
		UserID:           userID,
		RefreshTokenHash: "d2a84f4b8b650937ec8f73cd8be2c74a",
		Device:           auth.Device{OS: "macOS", Browser: "Chrome 126", Mobile: false},
		IP:               "203.0.113.7",
		Active:           true,
		ExpiresAt:        now.Add(ttl),
		CreatedAt:        now,
		LastUsedAt:       now,
	}
}

// TestRoundTrip checks that the stored envelope keeps the refresh token
// hash even though the API representation hides it.
func (s *RedisSessionStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	sess := newSession(id.NewUserID(), time.Hour)
	s.Require().NoError(s.store.Save(ctx, sess))

	got, err := s.store.FindByID(ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(sess.ID, got.ID)
	s.Equal(sess.UserID, got.UserID)
	s.Equal(sess.RefreshTokenHash, got.RefreshTokenHash)
	s.Equal(sess.Device, got.Device)
	s.Equal(sess.IP, got.IP)
	s.True(got.Active)
}

func (s *RedisSessionStoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(context.Background(), id.NewSessionID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisSessionStoreSuite) TestSaveOverwrites() {
	ctx := context.Background()
	sess := newSession(id.NewUserID(), time.Hour)
	s.Require().NoError(s.store.Save(ctx, sess))

	sess.Active = false
	sess.Revocation = &auth.Revocation{
		At:     time.Now().UTC().Truncate(time.Millisecond),
		By:     sess.UserID,
		Reason: auth.ReasonUserLogout,
	}
	s.Require().NoError(s.store.Save(ctx, sess))

	got, err := s.store.FindByID(ctx, sess.ID)
	s.Require().NoError(err)
	s.False(got.Active)
	s.Require().NotNil(got.Revocation)
	s.Equal(auth.ReasonUserLogout, got.Revocation.Reason)
}

func (s *RedisSessionStoreSuite) TestListByUser() {
	ctx := context.Background()
	userID := id.NewUserID()

	first := newSession(userID, time.Hour)
	second := newSession(userID, time.Hour)
	other := newSession(id.NewUserID(), time.Hour)
	s.Require().NoError(s.store.Save(ctx, first))
	s.Require().NoError(s.store.Save(ctx, second))
	s.Require().NoError(s.store.Save(ctx, other))

	sessions, err := s.store.ListByUser(ctx, userID)
	s.Require().NoError(err)
	s.Len(sessions, 2)
	for _, sess := range sessions {
		s.Equal(userID, sess.UserID)
	}
}

// TestListPrunesExpiredIndexEntries exercises the stale-index path: the
// session key expires via TTL while the user set still references it.
func (s *RedisSessionStoreSuite) TestListPrunesExpiredIndexEntries() {
	ctx := context.Background()
	userID := id.NewUserID()

	// Save the short-lived session first: Save bumps the index TTL, and
	// the keeper's hour-long TTL must be the one that sticks.
	keeper := newSession(userID, time.Hour)
	shortLived := newSession(userID, 50*time.Millisecond)
	s.Require().NoError(s.store.Save(ctx, shortLived))
	s.Require().NoError(s.store.Save(ctx, keeper))

	time.Sleep(100 * time.Millisecond)

	sessions, err := s.store.ListByUser(ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(sessions, 1)
	s.Equal(keeper.ID, sessions[0].ID)

	// The stale id must have been removed from the index set.
	members, err := s.redis.Client.SMembers(ctx, "user_sessions:"+userID.String()).Result()
	s.Require().NoError(err)
	s.Equal([]string{keeper.ID.String()}, members)
}

func (s *RedisSessionStoreSuite) TestTTLFollowsExpiry() {
	ctx := context.Background()
	sess := newSession(id.NewUserID(), 30*time.Minute)
	s.Require().NoError(s.store.Save(ctx, sess))

	ttl, err := s.redis.Client.TTL(ctx, "session:"+sess.ID.String()).Result()
	s.Require().NoError(err)
	s.Greater(ttl, 29*time.Minute)
	s.LessOrEqual(ttl, 30*time.Minute)
}

func (s *RedisSessionStoreSuite) TestDelete() {
	ctx := context.Background()
	sess := newSession(id.NewUserID(), time.Hour)
	s.Require().NoError(s.store.Save(ctx, sess))

	s.Require().NoError(s.store.Delete(ctx, sess.ID))

	_, err := s.store.FindByID(ctx, sess.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	// Deleting an already-gone session is a no-op.
	s.Require().NoError(s.store.Delete(ctx, sess.ID))

	sessions, err := s.store.ListByUser(ctx, sess.UserID)
	s.Require().NoError(err)
	s.Empty(sessions)
}
