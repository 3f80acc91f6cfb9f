package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"roamly/internal/audit"
	"roamly/internal/jwttoken"
	"roamly/internal/user"
	id "roamly/pkg/domain"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/platform/sentinel"
	"roamly/pkg/requestcontext"
)

// UserDirectory is the slice of the user service auth depends on.
type UserDirectory interface {
	Register(ctx context.Context, params user.RegisterParams) (*user.User, error)
	Authenticate(ctx context.Context, email, password string) (*user.User, error)
	GetByID(ctx context.Context, userID id.UserID) (*user.User, error)
}

// AuditPublisher receives authentication events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	users      UserDirectory
	sessions   SessionStore
	tokens     *jwttoken.Service
	auditor    AuditPublisher
	logger     *slog.Logger
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(users UserDirectory, sessions SessionStore, tokens *jwttoken.Service, auditor AuditPublisher, logger *slog.Logger, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		auditor:    auditor,
		logger:     logger,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Register creates the account and immediately opens a session for it.
func (s *Service) Register(ctx context.Context, params user.RegisterParams) (*user.User, *TokenPair, error) {
	u, err := s.users.Register(ctx, params)
	if err != nil {
		return nil, nil, err
	}

	pair, _, err := s.startSession(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// Login verifies credentials and opens a new session. Failed attempts are
// audited with the address that made them.
func (s *Service) Login(ctx context.Context, email, password string) (*user.User, *TokenPair, error) {
	u, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		s.logAudit(ctx, audit.EventLoginFailed, email, map[string]any{
			"ip": requestcontext.ClientIP(ctx),
		})
		return nil, nil, err
	}

	pair, sess, err := s.startSession(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	s.logAudit(ctx, audit.EventLoginSucceeded, u.ID.String(), map[string]any{
		"sessionId": sess.ID.String(),
		"ip":        sess.IP,
	})
	return u, pair, nil
}

// Refresh rotates the refresh token: the presented token is invalidated
// and a fresh pair is issued on the same session. A token that fails the
// hash check revokes the whole session, since someone else already spent it.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	sessionID, err := splitRefreshToken(refreshToken)
	if err != nil {
		return nil, domerrors.New(domerrors.CodeUnauthorized, "invalid refresh token")
	}

	sess, err := s.sessions.FindByID(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, domerrors.New(domerrors.CodeUnauthorized, "invalid refresh token")
	}
	if err != nil {
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to load session")
	}

	now := time.Now().UTC()
	if !sess.Usable(now) {
		return nil, domerrors.New(domerrors.CodeUnauthorized, "session expired or revoked")
	}
	if !matchRefreshToken(refreshToken, sess.RefreshTokenHash) {
		s.revoke(ctx, sess, sess.UserID, ReasonSecurity)
		s.logAudit(ctx, audit.EventSessionRevoked, sess.ID.String(), map[string]any{
			"reason": string(ReasonSecurity),
		})
		return nil, domerrors.New(domerrors.CodeUnauthorized, "invalid refresh token")
	}

	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	raw, hash, err := newRefreshToken(sess.ID)
	if err != nil {
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to rotate refresh token")
	}
	sess.RefreshTokenHash = hash
	sess.ExpiresAt = now.Add(s.refreshTTL)
	sess.LastUsedAt = now
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to save session")
	}

	access, err := s.tokens.GenerateAccessToken(u.ID, sess.ID, u.Role, s.accessTTL)
	if err != nil {
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to sign access token")
	}

	s.logAudit(ctx, audit.EventTokenRefreshed, sess.ID.String(), nil)
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: raw,
		ExpiresAt:    now.Add(s.accessTTL),
	}, nil
}

// Logout revokes the session that made the call.
func (s *Service) Logout(ctx context.Context) error {
	sessionID := requestcontext.SessionID(ctx)
	if sessionID.IsNil() {
		return domerrors.New(domerrors.CodeUnauthorized, "no active session")
	}
	return s.RevokeSession(ctx, sessionID, ReasonUserLogout)
}

// LogoutAll revokes every session the calling user holds.
func (s *Service) LogoutAll(ctx context.Context) (int, error) {
	return s.RevokeAllForUser(ctx, requestcontext.UserID(ctx), ReasonUserLogout)
}

// Me returns the authenticated user's profile.
func (s *Service) Me(ctx context.Context) (*user.User, error) {
	return s.users.GetByID(ctx, requestcontext.UserID(ctx))
}

// ListSessions is visible to the session owner and admins.
func (s *Service) ListSessions(ctx context.Context, userID id.UserID) ([]*Session, error) {
	if userID != requestcontext.UserID(ctx) && !requestcontext.Role(ctx).IsAdmin() {
		return nil, domerrors.New(domerrors.CodeForbidden, "not allowed to list these sessions")
	}
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to list sessions")
	}
	return sessions, nil
}

// RevokeSession marks a session inactive. The owner and admins may revoke.
func (s *Service) RevokeSession(ctx context.Context, sessionID id.SessionID, reason RevocationReason) error {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return domerrors.New(domerrors.CodeNotFound, "session not found")
	}
	if err != nil {
		return domerrors.Wrap(err, domerrors.CodeInternal, "failed to load session")
	}

	actor := requestcontext.UserID(ctx)
	if sess.UserID != actor && !requestcontext.Role(ctx).IsAdmin() {
		return domerrors.New(domerrors.CodeForbidden, "not allowed to revoke this session")
	}
	if requestcontext.Role(ctx).IsAdmin() && sess.UserID != actor && reason == ReasonUserLogout {
		reason = ReasonAdminAction
	}

	s.revoke(ctx, sess, actor, reason)
	s.logAudit(ctx, audit.EventSessionRevoked, sess.ID.String(), map[string]any{
		"reason": string(reason),
	})
	return nil
}

// RevokeAllForUser revokes every session the user holds; used on logout-all
// and after password changes.
func (s *Service) RevokeAllForUser(ctx context.Context, userID id.UserID, reason RevocationReason) (int, error) {
	if userID != requestcontext.UserID(ctx) && !requestcontext.Role(ctx).IsAdmin() {
		return 0, domerrors.New(domerrors.CodeForbidden, "not allowed to revoke these sessions")
	}

	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return 0, domerrors.Wrap(err, domerrors.CodeInternal, "failed to list sessions")
	}

	revoked := 0
	for _, sess := range sessions {
		if !sess.Active {
			continue
		}
		s.revoke(ctx, sess, requestcontext.UserID(ctx), reason)
		revoked++
	}
	if revoked > 0 {
		s.logAudit(ctx, audit.EventSessionRevoked, userID.String(), map[string]any{
			"reason": string(reason),
			"count":  revoked,
		})
	}
	return revoked, nil
}

// RevokeForPasswordChange satisfies the user package's SessionRevoker hook.
func (s *Service) RevokeForPasswordChange(ctx context.Context, userID id.UserID) error {
	_, err := s.RevokeAllForUser(ctx, userID, ReasonPasswordChange)
	return err
}

func (s *Service) startSession(ctx context.Context, u *user.User) (*TokenPair, *Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:         id.NewSessionID(),
		UserID:     u.ID,
		Device:     ParseDevice(requestcontext.UserAgent(ctx)),
		IP:         requestcontext.ClientIP(ctx),
		Active:     true,
		ExpiresAt:  now.Add(s.refreshTTL),
		CreatedAt:  now,
		LastUsedAt: now,
	}

	raw, hash, err := newRefreshToken(sess.ID)
	if err != nil {
		return nil, nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to issue refresh token")
	}
	sess.RefreshTokenHash = hash

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to save session")
	}

	access, err := s.tokens.GenerateAccessToken(u.ID, sess.ID, u.Role, s.accessTTL)
	if err != nil {
		return nil, nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to sign access token")
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: raw,
		ExpiresAt:    now.Add(s.accessTTL),
	}, sess, nil
}

func (s *Service) revoke(ctx context.Context, sess *Session, by id.UserID, reason RevocationReason) {
	sess.Active = false
	sess.Revocation = &Revocation{
		At:     time.Now().UTC(),
		By:     by,
		Reason: reason,
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist session revocation",
			"sessionId", sess.ID, "error", err)
	}
}

func (s *Service) logAudit(ctx context.Context, action audit.Action, subject string, after map[string]any) {
	if s.auditor == nil {
		return
	}
	event := audit.Event{
		ActorID:   requestcontext.UserID(ctx).String(),
		Action:    string(action),
		Subject:   subject,
		After:     after,
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "action", action)
	}
}

// newRefreshToken returns the raw token handed to the client and the hash
// kept server-side. The session id is embedded so the lookup needs no
// secondary index.
func newRefreshToken(sessionID id.SessionID) (raw, hash string, err error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", "", fmt.Errorf("generate refresh secret: %w", err)
	}
	raw = sessionID.String() + "." + hex.EncodeToString(secret)
	return raw, hashRefreshToken(raw), nil
}

func splitRefreshToken(raw string) (id.SessionID, error) {
	part, _, ok := strings.Cut(raw, ".")
	if !ok {
		return id.SessionID{}, errors.New("malformed refresh token")
	}
	return id.ParseSessionID(part)
}

func hashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func matchRefreshToken(raw, storedHash string) bool {
	computed := hashRefreshToken(raw)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
