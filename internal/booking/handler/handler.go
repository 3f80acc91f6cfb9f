// Package handler exposes the booking endpoints. All routes require a
// bearer token.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"roamly/internal/booking"
	id "roamly/pkg/domain"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/platform/httputil"
	"roamly/pkg/requestcontext"
	"roamly/pkg/validate"
)

// Service defines the booking operations the handler delegates to.
type Service interface {
	Create(ctx context.Context, params booking.CreateParams) (*booking.Booking, error)
	GetByID(ctx context.Context, bookingID id.BookingID) (*booking.Booking, error)
	ListByUser(ctx context.Context, filter booking.ListFilter) ([]*booking.Booking, int64, error)
	Modify(ctx context.Context, bookingID id.BookingID, mod booking.Modification) (*booking.Booking, error)
	Cancel(ctx context.Context, bookingID id.BookingID, note string) (*booking.Booking, error)
	Transition(ctx context.Context, bookingID id.BookingID, next booking.Status, note string) (*booking.Booking, error)
}

type Handler struct {
	bookings  Service
	logger    *slog.Logger
	validator *validate.Validator
}

func New(bookings Service, logger *slog.Logger, validator *validate.Validator) *Handler {
	return &Handler{bookings: bookings, logger: logger, validator: validator}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/bookings", h.handleCreate)
	r.Get("/bookings", h.handleList)
	r.Get("/bookings/{id}", h.handleGet)
	r.Put("/bookings/{id}", h.handleModify)
	r.Post("/bookings/{id}/cancel", h.handleCancel)
	r.Post("/bookings/{id}/status", h.handleTransition)
}

type guestsRequest struct {
	Adults   int `json:"adults" validate:"gte=1"`
	Children int `json:"children" validate:"gte=0"`
	Infants  int `json:"infants" validate:"gte=0"`
}

type paymentRequest struct {
	Method        string `json:"method" validate:"omitempty,oneof=card paypal transfer cash"`
	Status        string `json:"status" validate:"omitempty,oneof=pending paid refunded"`
	TransactionID string `json:"transactionId" validate:"omitempty,max=100"`
}

type contactRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,e164"`
}

type createBookingRequest struct {
	PlanID          string         `json:"planId" validate:"required,uuid"`
	Date            time.Time      `json:"date" validate:"required"`
	TimeSlot        string         `json:"timeSlot" validate:"required,datetime=15:04"`
	Guests          guestsRequest  `json:"guests" validate:"required"`
	Payment         paymentRequest `json:"payment"`
	Contact         contactRequest `json:"contact" validate:"required"`
	SpecialRequests string         `json:"specialRequests" validate:"omitempty,max=1000"`
}

type modifyBookingRequest struct {
	Date     *time.Time     `json:"date"`
	TimeSlot *string        `json:"timeSlot" validate:"omitempty,datetime=15:04"`
	Guests   *guestsRequest `json:"guests"`
}

type cancelBookingRequest struct {
	Note string `json:"note" validate:"omitempty,max=500"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed completed"`
	Note   string `json:"note" validate:"omitempty,max=500"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	planID, err := id.ParsePlanID(req.PlanID)
	if err != nil {
		httputil.WriteError(w, h.logger, domerrors.New(domerrors.CodeValidation, "invalid plan id"))
		return
	}

	b, err := h.bookings.Create(r.Context(), booking.CreateParams{
		UserID:          requestcontext.UserID(r.Context()),
		PlanID:          planID,
		Date:            req.Date,
		TimeSlot:        req.TimeSlot,
		Guests:          booking.Guests{Adults: req.Guests.Adults, Children: req.Guests.Children, Infants: req.Guests.Infants},
		Payment:         booking.Payment(req.Payment),
		Contact:         booking.Contact(req.Contact),
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, "booking created", b)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.pathBookingID(w, r)
	if !ok {
		return
	}
	b, err := h.bookings.GetByID(r.Context(), bookingID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "booking retrieved", b)
}

type listResponse struct {
	Bookings []*booking.Booking `json:"bookings"`
	httputil.Pagination
	TotalBookings int64 `json:"totalBookings"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	userID := requestcontext.UserID(r.Context())
	if raw := q.Get("userId"); raw != "" {
		parsed, err := id.ParseUserID(raw)
		if err != nil {
			httputil.WriteError(w, h.logger, domerrors.New(domerrors.CodeValidation, "invalid user id"))
			return
		}
		userID = parsed
	}

	filter := booking.ListFilter{
		UserID: userID,
		Status: booking.Status(q.Get("status")),
		Page:   queryInt(q.Get("page"), 1),
		Limit:  queryInt(q.Get("limit"), 20),
	}

	items, total, err := h.bookings.ListByUser(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "bookings retrieved", listResponse{
		Bookings:      items,
		Pagination:    httputil.NewPagination(filter.Page, filter.Limit, total),
		TotalBookings: total,
	})
}

func (h *Handler) handleModify(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.pathBookingID(w, r)
	if !ok {
		return
	}

	var req modifyBookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	mod := booking.Modification{
		Date:     req.Date,
		TimeSlot: req.TimeSlot,
	}
	if req.Guests != nil {
		g := booking.Guests{Adults: req.Guests.Adults, Children: req.Guests.Children, Infants: req.Guests.Infants}
		mod.Guests = &g
	}

	b, err := h.bookings.Modify(r.Context(), bookingID, mod)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "booking updated", b)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.pathBookingID(w, r)
	if !ok {
		return
	}

	var req cancelBookingRequest
	if r.ContentLength > 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.WriteError(w, h.logger, err)
			return
		}
	}

	b, err := h.bookings.Cancel(r.Context(), bookingID, req.Note)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "booking cancelled", b)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.pathBookingID(w, r)
	if !ok {
		return
	}

	var req transitionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	b, err := h.bookings.Transition(r.Context(), bookingID, booking.Status(req.Status), req.Note)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "booking status updated", b)
}

func (h *Handler) pathBookingID(w http.ResponseWriter, r *http.Request) (id.BookingID, bool) {
	bookingID, err := id.ParseBookingID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, h.logger, domerrors.New(domerrors.CodeValidation, "invalid booking id"))
		return id.BookingID{}, false
	}
	return bookingID, true
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
