package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "roamly/pkg/domain"
	"roamly/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix = "session:"
	userIndexPrefix  = "user_sessions:"
)

// RedisSessionStore keeps sessions in redis with a TTL bound to the
// refresh token expiry. A per-user set indexes the active session ids.
type RedisSessionStore struct {
	client redis.Cmdable
}

func NewRedisSessionStore(client redis.Cmdable) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

// storedSession re-adds the fields the API representation hides. The
// refresh token hash must survive the round-trip.
type storedSession struct {
	*Session
	RefreshTokenHash string `json:"refreshTokenHash"`
}

func (s *RedisSessionStore) Save(ctx context.Context, sess *Session) error {
	payload, err := json.Marshal(storedSession{Session: sess, RefreshTokenHash: sess.RefreshTokenHash})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+sess.ID.String(), payload, ttl)
	pipe.SAdd(ctx, userIndexPrefix+sess.UserID.String(), sess.ID.String())
	pipe.Expire(ctx, userIndexPrefix+sess.UserID.String(), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) FindByID(ctx context.Context, sessionID id.SessionID) (*Session, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+sessionID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess Session
	stored := storedSession{Session: &sess}
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	sess.RefreshTokenHash = stored.RefreshTokenHash
	return &sess, nil
}

func (s *RedisSessionStore) ListByUser(ctx context.Context, userID id.UserID) ([]*Session, error) {
	ids, err := s.client.SMembers(ctx, userIndexPrefix+userID.String()).Result()
	if err != nil {
		return nil, fmt.Errorf("list session index: %w", err)
	}

	sessions := make([]*Session, 0, len(ids))
	for _, rawID := range ids {
		sessionID, err := id.ParseSessionID(rawID)
		if err != nil {
			continue
		}
		sess, err := s.FindByID(ctx, sessionID)
		if errors.Is(err, sentinel.ErrNotFound) {
			// Expired entry still referenced by the index; drop it.
			s.client.SRem(ctx, userIndexPrefix+userID.String(), rawID)
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	sess, err := s.FindByID(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+sessionID.String())
	pipe.SRem(ctx, userIndexPrefix+sess.UserID.String(), sessionID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
