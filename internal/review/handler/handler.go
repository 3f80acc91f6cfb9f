// Package handler exposes the review endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"roamly/internal/review"
	id "roamly/pkg/domain"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/platform/httputil"
	"roamly/pkg/requestcontext"
	"roamly/pkg/validate"
)

// Service defines the review operations the handler delegates to.
type Service interface {
	Create(ctx context.Context, params review.CreateParams) (*review.Review, error)
	GetByID(ctx context.Context, reviewID id.ReviewID) (*review.Review, error)
	ListByPlan(ctx context.Context, filter review.ListFilter) ([]*review.Review, int64, error)
	Update(ctx context.Context, reviewID id.ReviewID, update review.Update) (*review.Review, error)
	Delete(ctx context.Context, reviewID id.ReviewID) error
	ToggleHelpful(ctx context.Context, reviewID id.ReviewID) (*review.Review, error)
	Moderate(ctx context.Context, reviewID id.ReviewID, status review.ModerationStatus) (*review.Review, error)
}

type Handler struct {
	reviews   Service
	logger    *slog.Logger
	validator *validate.Validator
}

func New(reviews Service, logger *slog.Logger, validator *validate.Validator) *Handler {
	return &Handler{reviews: reviews, logger: logger, validator: validator}
}

// RegisterPublic mounts the unauthenticated read routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/plans/{planID}/reviews", h.handleListByPlan)
	r.Get("/reviews/{id}", h.handleGet)
}

// RegisterProtected mounts the authoring routes.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/reviews", h.handleCreate)
	r.Put("/reviews/{id}", h.handleUpdate)
	r.Delete("/reviews/{id}", h.handleDelete)
	r.Post("/reviews/{id}/helpful", h.handleToggleHelpful)
}

// RegisterAdmin mounts the moderation route.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/reviews/{id}/moderate", h.handleModerate)
}

type ratingRequest struct {
	Value         int `json:"value" validate:"gte=1,lte=5"`
	Service       int `json:"service" validate:"gte=1,lte=5"`
	Cleanliness   int `json:"cleanliness" validate:"gte=1,lte=5"`
	Location      int `json:"location" validate:"gte=1,lte=5"`
	Communication int `json:"communication" validate:"gte=1,lte=5"`
}

type createReviewRequest struct {
	BookingID string        `json:"bookingId" validate:"required,uuid"`
	Rating    ratingRequest `json:"rating" validate:"required"`
	Title     string        `json:"title" validate:"required,min=3,max=150"`
	Comment   string        `json:"comment" validate:"required,min=10,max=3000"`
	Anonymous bool          `json:"anonymous"`
}

type updateReviewRequest struct {
	Rating    *ratingRequest `json:"rating"`
	Title     *string        `json:"title" validate:"omitempty,min=3,max=150"`
	Comment   *string        `json:"comment" validate:"omitempty,min=10,max=3000"`
	Anonymous *bool          `json:"anonymous"`
}

type moderateRequest struct {
	Status string `json:"status" validate:"required,oneof=pending_review approved rejected flagged"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	bookingID, err := id.ParseBookingID(req.BookingID)
	if err != nil {
		httputil.WriteError(w, h.logger, domerrors.New(domerrors.CodeValidation, "invalid booking id"))
		return
	}

	rev, err := h.reviews.Create(r.Context(), review.CreateParams{
		BookingID: bookingID,
		AuthorID:  requestcontext.UserID(r.Context()),
		Rating:    toRating(req.Rating),
		Title:     req.Title,
		Comment:   req.Comment,
		Anonymous: req.Anonymous,
	})
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, "review created", rev)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := h.pathReviewID(w, r)
	if !ok {
		return
	}
	rev, err := h.reviews.GetByID(r.Context(), reviewID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "review retrieved", rev)
}

type listResponse struct {
	Reviews []*review.Review `json:"reviews"`
	httputil.Pagination
	TotalReviews int64 `json:"totalReviews"`
}

func (h *Handler) handleListByPlan(w http.ResponseWriter, r *http.Request) {
	planID, err := id.ParsePlanID(chi.URLParam(r, "planID"))
	if err != nil {
		httputil.WriteError(w, h.logger, domerrors.New(domerrors.CodeValidation, "invalid plan id"))
		return
	}

	q := r.URL.Query()
	filter := review.ListFilter{
		PlanID: planID,
		Page:   queryInt(q.Get("page"), 1),
		Limit:  queryInt(q.Get("limit"), 20),
	}

	items, total, err := h.reviews.ListByPlan(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "reviews retrieved", listResponse{
		Reviews:      items,
		Pagination:   httputil.NewPagination(filter.Page, filter.Limit, total),
		TotalReviews: total,
	})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := h.pathReviewID(w, r)
	if !ok {
		return
	}

	var req updateReviewRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	update := review.Update{
		Title:     req.Title,
		Comment:   req.Comment,
		Anonymous: req.Anonymous,
	}
	if req.Rating != nil {
		rating := toRating(*req.Rating)
		update.Rating = &rating
	}

	rev, err := h.reviews.Update(r.Context(), reviewID, update)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "review updated", rev)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := h.pathReviewID(w, r)
	if !ok {
		return
	}
	if err := h.reviews.Delete(r.Context(), reviewID); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "review deleted", nil)
}

func (h *Handler) handleToggleHelpful(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := h.pathReviewID(w, r)
	if !ok {
		return
	}
	rev, err := h.reviews.ToggleHelpful(r.Context(), reviewID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "helpful vote toggled", rev)
}

func (h *Handler) handleModerate(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := h.pathReviewID(w, r)
	if !ok {
		return
	}

	var req moderateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	rev, err := h.reviews.Moderate(r.Context(), reviewID, review.ModerationStatus(req.Status))
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "review moderated", rev)
}

func (h *Handler) pathReviewID(w http.ResponseWriter, r *http.Request) (id.ReviewID, bool) {
	reviewID, err := id.ParseReviewID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, h.logger, domerrors.New(domerrors.CodeValidation, "invalid review id"))
		return id.ReviewID{}, false
	}
	return reviewID, true
}

func toRating(req ratingRequest) review.Rating {
	return review.Rating{
		Value:         req.Value,
		Service:       req.Service,
		Cleanliness:   req.Cleanliness,
		Location:      req.Location,
		Communication: req.Communication,
	}
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
