// Package handler exposes the notification inbox endpoints. All routes
// require a bearer token.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"roamly/internal/notification"
	id "roamly/pkg/domain"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/platform/httputil"
	"roamly/pkg/requestcontext"
)

// Service defines the notification operations the handler delegates to.
type Service interface {
	List(ctx context.Context, filter notification.ListFilter) ([]*notification.Notification, int64, error)
	MarkRead(ctx context.Context, notificationID id.NotificationID) (*notification.Notification, error)
	MarkAllRead(ctx context.Context) (int64, error)
}

type Handler struct {
	notifications Service
	logger        *slog.Logger
}

func New(notifications Service, logger *slog.Logger) *Handler {
	return &Handler{notifications: notifications, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.handleList)
	r.Put("/notifications/{id}/read", h.handleMarkRead)
	r.Post("/notifications/read-all", h.handleMarkAllRead)
}

type listResponse struct {
	Notifications []*notification.Notification `json:"notifications"`
	httputil.Pagination
	TotalNotifications int64 `json:"totalNotifications"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := notification.ListFilter{
		RecipientID: requestcontext.UserID(r.Context()),
		UnreadOnly:  q.Get("unread") == "true",
		Page:        queryInt(q.Get("page"), 1),
		Limit:       queryInt(q.Get("limit"), 20),
	}

	items, total, err := h.notifications.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "notifications retrieved", listResponse{
		Notifications:      items,
		Pagination:         httputil.NewPagination(filter.Page, filter.Limit, total),
		TotalNotifications: total,
	})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, h.logger, domerrors.New(domerrors.CodeValidation, "invalid notification id"))
		return
	}

	n, err := h.notifications.MarkRead(r.Context(), notificationID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "notification marked read", n)
}

type markAllResponse struct {
	Updated int64 `json:"updated"`
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.notifications.MarkAllRead(r.Context())
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "notifications marked read", markAllResponse{Updated: updated})
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
