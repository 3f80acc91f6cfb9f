package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"roamly/internal/audit"
	id "roamly/pkg/domain"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/email"
	"roamly/pkg/platform/sentinel"
	"roamly/pkg/requestcontext"
)

// AuditPublisher is the slice of the audit pipeline services need.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// ActivityCounter supplies booking/review counts for the stats endpoints.
// Implemented by the booking and review stores.
type ActivityCounter interface {
	CountBookingsByUser(ctx context.Context, userID id.UserID) (int64, error)
	CountReviewsByAuthor(ctx context.Context, userID id.UserID) (int64, error)
}

// SessionRevoker invalidates a user's sessions after a password change.
// Wired after construction to avoid a dependency cycle with the auth layer.
type SessionRevoker interface {
	RevokeForPasswordChange(ctx context.Context, userID id.UserID) error
}

// Service owns account writes: registration, profile, preferences, favorites,
// and soft deletion. Passwords are bcrypt-hashed on every write path.
type Service struct {
	store    Store
	activity ActivityCounter
	auditor  AuditPublisher
	sessions SessionRevoker
	logger   *slog.Logger
}

func NewService(store Store, activity ActivityCounter, auditor AuditPublisher, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		activity: activity,
		auditor:  auditor,
		logger:   logger,
	}
}

// Register creates an account. The password is hashed before it ever reaches
// a store; plain text is never persisted or compared.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*User, error) {
	if params.Role == "" {
		params.Role = id.RoleUser
	}
	if params.FirstName == "" && params.LastName == "" {
		params.FirstName, params.LastName = email.DeriveNameFromEmail(params.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to hash password")
	}

	now := requestcontext.Now(ctx)
	u := &User{
		ID:           id.NewUserID(),
		Email:        strings.ToLower(strings.TrimSpace(params.Email)),
		PasswordHash: string(hash),
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Phone:        params.Phone,
		Role:         params.Role,
		IsResident:   params.IsResident,
		Active:       true,
		Preferences:  DefaultPreferences(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, domerrors.New(domerrors.CodeConflict, "email already registered")
		}
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to create user")
	}

	s.logAudit(ctx, audit.EventUserRegistered, u.ID.String(), map[string]any{"email": u.Email, "role": u.Role.String()})
	return u, nil
}

// Authenticate verifies credentials for the auth service. Inactive accounts
// fail identically to wrong passwords so probing cannot distinguish them.
func (s *Service) Authenticate(ctx context.Context, emailAddr, password string) (*User, error) {
	u, err := s.store.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domerrors.New(domerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to look up user")
	}
	if !u.Active {
		return nil, domerrors.New(domerrors.CodeUnauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, domerrors.New(domerrors.CodeUnauthorized, "invalid credentials")
	}
	return u, nil
}

// GetByID fetches an account; inactive accounts are only visible to admins.
func (s *Service) GetByID(ctx context.Context, userID id.UserID) (*User, error) {
	u, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Active && !requestcontext.Role(ctx).IsAdmin() && requestcontext.UserID(ctx) != userID {
		return nil, domerrors.New(domerrors.CodeNotFound, "user not found")
	}
	return u, nil
}

// UpdateProfile applies a partial profile write for the acting user.
func (s *Service) UpdateProfile(ctx context.Context, userID id.UserID, update ProfileUpdate) (*User, error) {
	u, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.FirstName != nil {
		u.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		u.LastName = *update.LastName
	}
	if update.Phone != nil {
		u.Phone = *update.Phone
	}
	if update.IsResident != nil {
		u.IsResident = *update.IsResident
	}
	if update.SocialLinks != nil {
		u.SocialLinks = update.SocialLinks
	}

	if err := s.persist(ctx, u); err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventUserUpdated, u.ID.String(), nil)
	return u, nil
}

// ChangePassword verifies the old password then stores a new hash.
func (s *Service) ChangePassword(ctx context.Context, userID id.UserID, oldPassword, newPassword string) error {
	u, err := s.find(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)); err != nil {
		return domerrors.New(domerrors.CodeUnauthorized, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return domerrors.Wrap(err, domerrors.CodeInternal, "failed to hash password")
	}
	u.PasswordHash = string(hash)

	if err := s.persist(ctx, u); err != nil {
		return err
	}
	if s.sessions != nil {
		if err := s.sessions.RevokeForPasswordChange(ctx, u.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to revoke sessions after password change",
				"userId", u.ID, "error", err)
		}
	}
	s.logAudit(ctx, audit.EventPasswordChanged, u.ID.String(), nil)
	return nil
}

// SetSessionRevoker connects the auth layer once both services exist.
func (s *Service) SetSessionRevoker(revoker SessionRevoker) {
	s.sessions = revoker
}

// UpdatePreferences merges only the supplied fields; omitted fields,
// including individual notification toggles, retain their prior values.
func (s *Service) UpdatePreferences(ctx context.Context, userID id.UserID, update PreferencesUpdate) (*User, error) {
	u, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.Language != nil {
		u.Preferences.Language = *update.Language
	}
	if update.Currency != nil {
		u.Preferences.Currency = *update.Currency
	}
	if update.Notifications != nil {
		if update.Notifications.Push != nil {
			u.Preferences.Notifications.Push = *update.Notifications.Push
		}
		if update.Notifications.Email != nil {
			u.Preferences.Notifications.Email = *update.Notifications.Email
		}
		if update.Notifications.SMS != nil {
			u.Preferences.Notifications.SMS = *update.Notifications.SMS
		}
	}

	if err := s.persist(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateAvatar stores a new avatar URL.
func (s *Service) UpdateAvatar(ctx context.Context, userID id.UserID, avatarURL string) (*User, error) {
	u, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.AvatarURL = avatarURL
	if err := s.persist(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SoftDelete marks the account inactive and rewrites the email so the unique
// key is freed for re-registration. The record itself survives.
func (s *Service) SoftDelete(ctx context.Context, userID id.UserID) error {
	u, err := s.find(ctx, userID)
	if err != nil {
		return err
	}

	original := u.Email
	u.Active = false
	u.Email = fmt.Sprintf("deleted_%d_%s", requestcontext.Now(ctx).Unix(), original)

	if err := s.persist(ctx, u); err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventUserDeleted, u.ID.String(), map[string]any{"email": original})
	return nil
}

// AddFavorite appends a destination. A duplicate destination id is rejected
// rather than silently deduplicated.
func (s *Service) AddFavorite(ctx context.Context, userID id.UserID, fav FavoriteDestination) (*User, error) {
	u, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, existing := range u.Favorites {
		if existing.DestinationID == fav.DestinationID {
			return nil, domerrors.New(domerrors.CodeValidation, "destination already in favorites")
		}
	}

	fav.AddedAt = requestcontext.Now(ctx)
	u.Favorites = append(u.Favorites, fav)

	if err := s.persist(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// RemoveFavorite deletes by destination id. Removing an absent favorite is a
// no-op success and leaves the list unchanged.
func (s *Service) RemoveFavorite(ctx context.Context, userID id.UserID, destinationID string) (*User, error) {
	u, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := make([]FavoriteDestination, 0, len(u.Favorites))
	for _, fav := range u.Favorites {
		if fav.DestinationID != destinationID {
			kept = append(kept, fav)
		}
	}
	if len(kept) == len(u.Favorites) {
		return u, nil
	}
	u.Favorites = kept

	if err := s.persist(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ListFavorites returns the embedded favorites collection.
func (s *Service) ListFavorites(ctx context.Context, userID id.UserID) ([]FavoriteDestination, error) {
	u, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Favorites, nil
}

// GetStats aggregates activity counts for a user.
func (s *Service) GetStats(ctx context.Context, userID id.UserID) (*Stats, error) {
	u, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}

	bookings, err := s.activity.CountBookingsByUser(ctx, userID)
	if err != nil {
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to count bookings")
	}
	reviews, err := s.activity.CountReviewsByAuthor(ctx, userID)
	if err != nil {
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to count reviews")
	}

	return &Stats{
		Bookings:  bookings,
		Reviews:   reviews,
		Favorites: len(u.Favorites),
	}, nil
}

func (s *Service) find(ctx context.Context, userID id.UserID) (*User, error) {
	if userID.IsNil() {
		return nil, domerrors.New(domerrors.CodeValidation, "user ID required")
	}
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domerrors.New(domerrors.CodeNotFound, "user not found")
		}
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to load user")
	}
	return u, nil
}

func (s *Service) persist(ctx context.Context, u *User) error {
	u.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return domerrors.New(domerrors.CodeConflict, "email already registered")
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return domerrors.New(domerrors.CodeNotFound, "user not found")
		}
		return domerrors.Wrap(err, domerrors.CodeInternal, "failed to update user")
	}
	return nil
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
