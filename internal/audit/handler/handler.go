// Package handler exposes the audit trail to administrators.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"roamly/internal/audit"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/platform/httputil"
)

// Service defines the audit reads the handler delegates to.
type Service interface {
	List(ctx context.Context, actorID string) ([]audit.Event, error)
}

type Handler struct {
	events Service
	logger *slog.Logger
}

func New(events Service, logger *slog.Logger) *Handler {
	return &Handler{events: events, logger: logger}
}

// RegisterAdmin mounts the audit routes; the router guards them with the
// admin role middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/audit/events", h.handleList)
}

type listResponse struct {
	Events []audit.Event `json:"events"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actorID := r.URL.Query().Get("actorId")
	if actorID == "" {
		httputil.WriteError(w, h.logger, domerrors.New(domerrors.CodeValidation, "actorId is required"))
		return
	}

	events, err := h.events.List(r.Context(), actorID)
	if err != nil {
		httputil.WriteError(w, h.logger, domerrors.Wrap(err, domerrors.CodeInternal, "failed to list audit events"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "audit events retrieved", listResponse{Events: events})
}
