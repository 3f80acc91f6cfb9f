// Package handler exposes the business registry endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"roamly/internal/business"
	id "roamly/pkg/domain"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/platform/httputil"
	"roamly/pkg/requestcontext"
	"roamly/pkg/validate"
)

// Service defines the business operations the handler delegates to.
type Service interface {
	Create(ctx context.Context, params business.CreateParams) (*business.Business, error)
	GetByID(ctx context.Context, businessID id.BusinessID) (*business.Business, error)
	List(ctx context.Context, filter business.ListFilter) ([]*business.Business, int64, error)
	Update(ctx context.Context, businessID id.BusinessID, update business.Update) (*business.Business, error)
	Delete(ctx context.Context, businessID id.BusinessID) error
	Verify(ctx context.Context, businessID id.BusinessID, status business.VerificationStatus, notes string) (*business.Business, error)
}

type Handler struct {
	businesses Service
	logger     *slog.Logger
	validator  *validate.Validator
}

func New(businesses Service, logger *slog.Logger, validator *validate.Validator) *Handler {
	return &Handler{businesses: businesses, logger: logger, validator: validator}
}

// RegisterPublic mounts the unauthenticated browse routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/businesses", h.handleList)
	r.Get("/businesses/{id}", h.handleGet)
}

// RegisterProtected mounts the owner routes.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/businesses", h.handleCreate)
	r.Put("/businesses/{id}", h.handleUpdate)
	r.Delete("/businesses/{id}", h.handleDelete)
}

// RegisterAdmin mounts the verification route; the router guards it with
// the admin role middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/businesses/{id}/verify", h.handleVerify)
}

type contactRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"omitempty,e164"`
	Website string `json:"website" validate:"omitempty,url"`
}

type addressRequest struct {
	Street  string `json:"street" validate:"omitempty,max=200"`
	City    string `json:"city" validate:"required,max=100"`
	Country string `json:"country" validate:"required,max=100"`
}

type bankingRequest struct {
	AccountHolder string `json:"accountHolder" validate:"omitempty,max=200"`
	IBAN          string `json:"iban" validate:"omitempty,min=15,max=34"`
	SwiftCode     string `json:"swiftCode" validate:"omitempty,min=8,max=11"`
}

type createBusinessRequest struct {
	Name               string          `json:"name" validate:"required,min=2,max=150"`
	Description        string          `json:"description" validate:"omitempty,max=5000"`
	Contact            contactRequest  `json:"contact" validate:"required"`
	RegistrationNumber string          `json:"registrationNumber" validate:"required,min=3,max=50"`
	Address            addressRequest  `json:"address" validate:"required"`
	Banking            *bankingRequest `json:"banking"`
}

type updateBusinessRequest struct {
	Name        *string         `json:"name" validate:"omitempty,min=2,max=150"`
	Description *string         `json:"description" validate:"omitempty,max=5000"`
	Contact     *contactRequest `json:"contact"`
	Address     *addressRequest `json:"address"`
	Banking     *bankingRequest `json:"banking"`
}

type verifyBusinessRequest struct {
	Status string `json:"status" validate:"required,oneof=verified rejected"`
	Notes  string `json:"notes" validate:"omitempty,max=1000"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createBusinessRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	params := business.CreateParams{
		OwnerID:            requestcontext.UserID(r.Context()),
		Name:               req.Name,
		Description:        req.Description,
		Contact:            business.Contact(req.Contact),
		RegistrationNumber: req.RegistrationNumber,
		Address:            business.Address(req.Address),
	}
	if req.Banking != nil {
		params.Banking = business.BankingInfo(*req.Banking)
	}

	b, err := h.businesses.Create(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, "business created", b)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.pathBusinessID(w, r)
	if !ok {
		return
	}
	b, err := h.businesses.GetByID(r.Context(), businessID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "business retrieved", b)
}

type listResponse struct {
	Businesses []*business.Business `json:"businesses"`
	httputil.Pagination
	TotalBusinesses int64 `json:"totalBusinesses"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := business.ListFilter{
		City:   q.Get("city"),
		Status: business.VerificationStatus(q.Get("status")),
		Page:   queryInt(q.Get("page"), 1),
		Limit:  queryInt(q.Get("limit"), 20),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		httputil.WriteError(w, h.logger, domerrors.New(domerrors.CodeValidation, "invalid verification status"))
		return
	}

	items, total, err := h.businesses.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "businesses retrieved", listResponse{
		Businesses:      items,
		Pagination:      httputil.NewPagination(filter.Page, filter.Limit, total),
		TotalBusinesses: total,
	})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.pathBusinessID(w, r)
	if !ok {
		return
	}

	var req updateBusinessRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	update := business.Update{
		Name:        req.Name,
		Description: req.Description,
	}
	if req.Contact != nil {
		c := business.Contact(*req.Contact)
		update.Contact = &c
	}
	if req.Address != nil {
		a := business.Address(*req.Address)
		update.Address = &a
	}
	if req.Banking != nil {
		bk := business.BankingInfo(*req.Banking)
		update.Banking = &bk
	}

	b, err := h.businesses.Update(r.Context(), businessID, update)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "business updated", b)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.pathBusinessID(w, r)
	if !ok {
		return
	}
	if err := h.businesses.Delete(r.Context(), businessID); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "business deleted", nil)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.pathBusinessID(w, r)
	if !ok {
		return
	}

	var req verifyBusinessRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	b, err := h.businesses.Verify(r.Context(), businessID, business.VerificationStatus(req.Status), req.Notes)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "business verification updated", b)
}

func (h *Handler) pathBusinessID(w http.ResponseWriter, r *http.Request) (id.BusinessID, bool) {
	businessID, err := id.ParseBusinessID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, h.logger, domerrors.New(domerrors.CodeValidation, "invalid business id"))
		return id.BusinessID{}, false
	}
	return businessID, true
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
