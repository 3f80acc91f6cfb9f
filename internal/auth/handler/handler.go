// Package handler exposes the authentication and session endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"roamly/internal/auth"
	"roamly/internal/user"
	id "roamly/pkg/domain"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/platform/httputil"
	"roamly/pkg/requestcontext"
	"roamly/pkg/validate"
)

// Service defines the auth operations the handler delegates to.
type Service interface {
	Register(ctx context.Context, params user.RegisterParams) (*user.User, *auth.TokenPair, error)
	Login(ctx context.Context, email, password string) (*user.User, *auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	Logout(ctx context.Context) error
	LogoutAll(ctx context.Context) (int, error)
	Me(ctx context.Context) (*user.User, error)
	ListSessions(ctx context.Context, userID id.UserID) ([]*auth.Session, error)
	RevokeSession(ctx context.Context, sessionID id.SessionID, reason auth.RevocationReason) error
}

type Handler struct {
	auth      Service
	logger    *slog.Logger
	validator *validate.Validator
}

func New(auth Service, logger *slog.Logger, validator *validate.Validator) *Handler {
	return &Handler{auth: auth, logger: logger, validator: validator}
}

// RegisterPublic mounts the credential routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/refresh", h.handleRefresh)
}

// RegisterProtected mounts the session routes.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/auth/logout", h.handleLogout)
	r.Post("/auth/logout-all", h.handleLogoutAll)
	r.Get("/auth/me", h.handleMe)
	r.Get("/auth/sessions", h.handleListSessions)
	r.Delete("/auth/sessions/{id}", h.handleRevokeSession)
}

type registerRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	FirstName  string `json:"firstName" validate:"omitempty,max=100"`
	LastName   string `json:"lastName" validate:"omitempty,max=100"`
	Phone      string `json:"phone" validate:"omitempty,e164"`
	IsResident bool   `json:"isResident"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type authResponse struct {
	User   *user.User      `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	u, tokens, err := h.auth.Register(r.Context(), user.RegisterParams{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      req.Phone,
		Role:       id.RoleUser,
		IsResident: req.IsResident,
	})
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, "account created", authResponse{User: u, Tokens: tokens})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	u, tokens, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "login successful", authResponse{User: u, Tokens: tokens})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	tokens, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "tokens refreshed", tokens)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "logged out", nil)
}

type logoutAllResponse struct {
	Revoked int `json:"revoked"`
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	revoked, err := h.auth.LogoutAll(r.Context())
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "all sessions revoked", logoutAllResponse{Revoked: revoked})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.auth.Me(r.Context())
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "profile retrieved", u)
}

type sessionsResponse struct {
	Sessions []*auth.Session `json:"sessions"`
	Current  id.SessionID    `json:"currentSessionId"`
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := requestcontext.UserID(r.Context())
	if raw := r.URL.Query().Get("userId"); raw != "" {
		parsed, err := id.ParseUserID(raw)
		if err != nil {
			httputil.WriteError(w, h.logger, domerrors.New(domerrors.CodeValidation, "invalid user id"))
			return
		}
		userID = parsed
	}

	sessions, err := h.auth.ListSessions(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "sessions retrieved", sessionsResponse{
		Sessions: sessions,
		Current:  requestcontext.SessionID(r.Context()),
	})
}

func (h *Handler) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, h.logger, domerrors.New(domerrors.CodeValidation, "invalid session id"))
		return
	}

	if err := h.auth.RevokeSession(r.Context(), sessionID, auth.ReasonUserLogout); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "session revoked", nil)
}
