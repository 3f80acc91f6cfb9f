// Package handler exposes the user endpoints: profile, password,
// preferences, favorites, and stats.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"roamly/internal/user"
	id "roamly/pkg/domain"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/platform/httputil"
	"roamly/pkg/requestcontext"
	"roamly/pkg/validate"
)

// Service defines the user operations the handler delegates to.
type Service interface {
	GetByID(ctx context.Context, userID id.UserID) (*user.User, error)
	UpdateProfile(ctx context.Context, userID id.UserID, update user.ProfileUpdate) (*user.User, error)
	ChangePassword(ctx context.Context, userID id.UserID, oldPassword, newPassword string) error
	UpdatePreferences(ctx context.Context, userID id.UserID, update user.PreferencesUpdate) (*user.User, error)
	UpdateAvatar(ctx context.Context, userID id.UserID, avatarURL string) (*user.User, error)
	SoftDelete(ctx context.Context, userID id.UserID) error
	AddFavorite(ctx context.Context, userID id.UserID, fav user.FavoriteDestination) (*user.User, error)
	RemoveFavorite(ctx context.Context, userID id.UserID, destinationID string) (*user.User, error)
	ListFavorites(ctx context.Context, userID id.UserID) ([]user.FavoriteDestination, error)
	GetStats(ctx context.Context, userID id.UserID) (*user.Stats, error)
}

type Handler struct {
	users     Service
	logger    *slog.Logger
	validator *validate.Validator
}

func New(users Service, logger *slog.Logger, validator *validate.Validator) *Handler {
	return &Handler{users: users, logger: logger, validator: validator}
}

// Register mounts the user routes; the caller applies auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Put("/me/change-password", h.handleChangePassword)
		r.Put("/me/preferences", h.handleUpdatePreferences)
		r.Put("/me/avatar", h.handleUpdateAvatar)
		r.Get("/me/favorites", h.handleListFavorites)
		r.Post("/me/favorites", h.handleAddFavorite)
		r.Delete("/me/favorites/{destinationID}", h.handleRemoveFavorite)
		r.Get("/me/stats", h.handleMyStats)

		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
		r.Get("/{id}/stats", h.handleStats)
	})
}

type updateProfileRequest struct {
	FirstName   *string           `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName    *string           `json:"lastName" validate:"omitempty,min=1,max=100"`
	Phone       *string           `json:"phone" validate:"omitempty,e164"`
	IsResident  *bool             `json:"isResident"`
	SocialLinks map[string]string `json:"socialLinks" validate:"omitempty,dive,url"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128"`
}

type updatePreferencesRequest struct {
	Language      *string `json:"language" validate:"omitempty,len=2"`
	Currency      *string `json:"currency" validate:"omitempty,len=3"`
	Notifications *struct {
		Push  *bool `json:"push"`
		Email *bool `json:"email"`
		SMS   *bool `json:"sms"`
	} `json:"notifications"`
}

type updateAvatarRequest struct {
	AvatarURL string `json:"avatarUrl" validate:"required,url"`
}

type addFavoriteRequest struct {
	DestinationID string `json:"destinationId" validate:"required,min=1,max=100"`
	Kind          string `json:"kind" validate:"required,oneof=plan business city"`
	Notes         string `json:"notes" validate:"omitempty,max=500"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "user retrieved", u)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	if !h.canActOn(r.Context(), userID) {
		httputil.WriteError(w, h.logger, domerrors.New(domerrors.CodeForbidden, "cannot modify another user"))
		return
	}

	var req updateProfileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), userID, user.ProfileUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Phone:       req.Phone,
		IsResident:  req.IsResident,
		SocialLinks: req.SocialLinks,
	})
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "profile updated", u)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	if !h.canActOn(r.Context(), userID) {
		httputil.WriteError(w, h.logger, domerrors.New(domerrors.CodeForbidden, "cannot delete another user"))
		return
	}
	if err := h.users.SoftDelete(r.Context(), userID); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "user deleted", nil)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	userID := requestcontext.UserID(r.Context())
	if err := h.users.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "password changed", nil)
}

func (h *Handler) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req updatePreferencesRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	update := user.PreferencesUpdate{
		Language: req.Language,
		Currency: req.Currency,
	}
	if req.Notifications != nil {
		update.Notifications = &user.NotificationTogglesUpdate{
			Push:  req.Notifications.Push,
			Email: req.Notifications.Email,
			SMS:   req.Notifications.SMS,
		}
	}

	u, err := h.users.UpdatePreferences(r.Context(), requestcontext.UserID(r.Context()), update)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "preferences updated", u.Preferences)
}

func (h *Handler) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	var req updateAvatarRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	u, err := h.users.UpdateAvatar(r.Context(), requestcontext.UserID(r.Context()), req.AvatarURL)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "avatar updated", u)
}

func (h *Handler) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	favorites, err := h.users.ListFavorites(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "favorites retrieved", favorites)
}

func (h *Handler) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	var req addFavoriteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	u, err := h.users.AddFavorite(r.Context(), requestcontext.UserID(r.Context()), user.FavoriteDestination{
		DestinationID: req.DestinationID,
		Kind:          req.Kind,
		Notes:         req.Notes,
	})
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, "favorite added", u.Favorites)
}

func (h *Handler) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	destinationID := chi.URLParam(r, "destinationID")
	u, err := h.users.RemoveFavorite(r.Context(), requestcontext.UserID(r.Context()), destinationID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "favorite removed", u.Favorites)
}

func (h *Handler) handleMyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.users.GetStats(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "stats retrieved", stats)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	stats, err := h.users.GetStats(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "stats retrieved", stats)
}

func (h *Handler) pathUserID(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, h.logger, domerrors.New(domerrors.CodeValidation, "invalid user id"))
		return id.UserID{}, false
	}
	return userID, true
}

// canActOn allows self-service or admin access.
func (h *Handler) canActOn(ctx context.Context, target id.UserID) bool {
	return requestcontext.UserID(ctx) == target || requestcontext.Role(ctx).IsAdmin()
}
