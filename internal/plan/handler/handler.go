// Package handler exposes the plan browse and management endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"roamly/internal/plan"
	id "roamly/pkg/domain"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/platform/httputil"
	"roamly/pkg/requestcontext"
	"roamly/pkg/validate"
)

// Service defines the plan operations the handler delegates to.
type Service interface {
	Create(ctx context.Context, params plan.CreateParams) (*plan.Plan, error)
	GetByID(ctx context.Context, planID id.PlanID) (*plan.Plan, error)
	List(ctx context.Context, filter plan.ListFilter) ([]*plan.Plan, int64, error)
	Update(ctx context.Context, planID id.PlanID, update plan.Update) (*plan.Plan, error)
	Delete(ctx context.Context, planID id.PlanID) error
	Favorite(ctx context.Context, planID id.PlanID, add bool) error
}

type Handler struct {
	plans     Service
	logger    *slog.Logger
	validator *validate.Validator
}

func New(plans Service, logger *slog.Logger, validator *validate.Validator) *Handler {
	return &Handler{plans: plans, logger: logger, validator: validator}
}

// RegisterPublic mounts the unauthenticated browse routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/plans", h.handleList)
	r.Get("/plans/{id}", h.handleGet)
}

// RegisterProtected mounts the routes that require a bearer token.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/plans", h.handleCreate)
	r.Put("/plans/{id}", h.handleUpdate)
	r.Delete("/plans/{id}", h.handleDelete)
	r.Post("/plans/{id}/favorite", h.handleFavorite)
}

type priceRequest struct {
	Amount     float64  `json:"amount" validate:"gte=0"`
	Currency   string   `json:"currency" validate:"required,len=3"`
	Inclusions []string `json:"inclusions" validate:"omitempty,dive,min=1,max=200"`
	Exclusions []string `json:"exclusions" validate:"omitempty,dive,min=1,max=200"`
}

type addressRequest struct {
	Street    string  `json:"street" validate:"omitempty,max=200"`
	City      string  `json:"city" validate:"required,max=100"`
	Country   string  `json:"country" validate:"required,max=100"`
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

type capacityRequest struct {
	Min int `json:"min" validate:"gte=1"`
	Max int `json:"max" validate:"gtefield=Min"`
}

type scheduleRequest struct {
	Weekdays      []int    `json:"weekdays" validate:"required,min=1,dive,gte=0,lte=6"`
	TimeSlots     []string `json:"timeSlots" validate:"required,min=1,dive,datetime=15:04"`
	BlackoutDates []string `json:"blackoutDates" validate:"omitempty,dive,datetime=2006-01-02"`
}

type createPlanRequest struct {
	BusinessID    *string         `json:"businessId" validate:"omitempty,uuid"`
	Title         string          `json:"title" validate:"required,min=3,max=150"`
	Description   string          `json:"description" validate:"required,min=10,max=5000"`
	Category      string          `json:"category" validate:"required,oneof=adventure cultural gastronomy nature wellness urban"`
	Price         priceRequest    `json:"price" validate:"required"`
	DurationHours float64         `json:"durationHours" validate:"gt=0,lte=720"`
	Address       addressRequest  `json:"address" validate:"required"`
	Capacity      capacityRequest `json:"capacity" validate:"required"`
	Difficulty    string          `json:"difficulty" validate:"required,oneof=easy moderate hard"`
	Schedule      scheduleRequest `json:"schedule" validate:"required"`
}

type updatePlanRequest struct {
	Title         *string          `json:"title" validate:"omitempty,min=3,max=150"`
	Description   *string          `json:"description" validate:"omitempty,min=10,max=5000"`
	Category      *string          `json:"category" validate:"omitempty,oneof=adventure cultural gastronomy nature wellness urban"`
	Price         *priceRequest    `json:"price"`
	DurationHours *float64         `json:"durationHours" validate:"omitempty,gt=0,lte=720"`
	Address       *addressRequest  `json:"address"`
	Capacity      *capacityRequest `json:"capacity"`
	Difficulty    *string          `json:"difficulty" validate:"omitempty,oneof=easy moderate hard"`
	Schedule      *scheduleRequest `json:"schedule"`
}

type favoriteRequest struct {
	Add bool `json:"add"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	params := plan.CreateParams{
		OwnerID:       requestcontext.UserID(r.Context()),
		Title:         req.Title,
		Description:   req.Description,
		Category:      plan.Category(req.Category),
		Price:         toPrice(req.Price),
		DurationHours: req.DurationHours,
		Address:       toAddress(req.Address),
		Capacity:      plan.Capacity{Min: req.Capacity.Min, Max: req.Capacity.Max},
		Difficulty:    plan.Difficulty(req.Difficulty),
		Schedule:      toSchedule(req.Schedule),
	}
	if req.BusinessID != nil {
		businessID, err := id.ParseBusinessID(*req.BusinessID)
		if err != nil {
			httputil.WriteError(w, h.logger, domerrors.New(domerrors.CodeValidation, "invalid business id"))
			return
		}
		params.BusinessID = &businessID
	}

	p, err := h.plans.Create(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, "plan created", p)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	planID, ok := h.pathPlanID(w, r)
	if !ok {
		return
	}
	p, err := h.plans.GetByID(r.Context(), planID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "plan retrieved", p)
}

type listResponse struct {
	Plans []*plan.Plan `json:"plans"`
	httputil.Pagination
	TotalPlans int64 `json:"totalPlans"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := plan.ListFilter{
		Category: plan.Category(q.Get("category")),
		City:     q.Get("city"),
		Page:     queryInt(q.Get("page"), 1),
		Limit:    queryInt(q.Get("limit"), 20),
	}
	filter.MinPrice, _ = strconv.ParseFloat(q.Get("minPrice"), 64)
	filter.MaxPrice, _ = strconv.ParseFloat(q.Get("maxPrice"), 64)

	plans, total, err := h.plans.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "plans retrieved", listResponse{
		Plans:      plans,
		Pagination: httputil.NewPagination(filter.Page, filter.Limit, total),
		TotalPlans: total,
	})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	planID, ok := h.pathPlanID(w, r)
	if !ok {
		return
	}

	var req updatePlanRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	update := plan.Update{
		Title:         req.Title,
		Description:   req.Description,
		DurationHours: req.DurationHours,
	}
	if req.Category != nil {
		c := plan.Category(*req.Category)
		update.Category = &c
	}
	if req.Price != nil {
		p := toPrice(*req.Price)
		update.Price = &p
	}
	if req.Address != nil {
		a := toAddress(*req.Address)
		update.Address = &a
	}
	if req.Capacity != nil {
		c := plan.Capacity{Min: req.Capacity.Min, Max: req.Capacity.Max}
		update.Capacity = &c
	}
	if req.Difficulty != nil {
		d := plan.Difficulty(*req.Difficulty)
		update.Difficulty = &d
	}
	if req.Schedule != nil {
		sc := toSchedule(*req.Schedule)
		update.Schedule = &sc
	}

	p, err := h.plans.Update(r.Context(), planID, update)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "plan updated", p)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	planID, ok := h.pathPlanID(w, r)
	if !ok {
		return
	}
	if err := h.plans.Delete(r.Context(), planID); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "plan deleted", nil)
}

func (h *Handler) handleFavorite(w http.ResponseWriter, r *http.Request) {
	planID, ok := h.pathPlanID(w, r)
	if !ok {
		return
	}

	req := favoriteRequest{Add: true}
	if r.ContentLength > 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.WriteError(w, h.logger, err)
			return
		}
	}

	if err := h.plans.Favorite(r.Context(), planID, req.Add); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, "favorite recorded", nil)
}

func (h *Handler) pathPlanID(w http.ResponseWriter, r *http.Request) (id.PlanID, bool) {
	planID, err := id.ParsePlanID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, h.logger, domerrors.New(domerrors.CodeValidation, "invalid plan id"))
		return id.PlanID{}, false
	}
	return planID, true
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

func toPrice(req priceRequest) plan.Price {
	return plan.Price{
		Amount:     req.Amount,
		Currency:   req.Currency,
		Inclusions: req.Inclusions,
		Exclusions: req.Exclusions,
	}
}

func toAddress(req addressRequest) plan.Address {
	return plan.Address{
		Street:    req.Street,
		City:      req.City,
		Country:   req.Country,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}
}

func toSchedule(req scheduleRequest) plan.Schedule {
	weekdays := make([]time.Weekday, len(req.Weekdays))
	for i, d := range req.Weekdays {
		weekdays[i] = time.Weekday(d)
	}
	return plan.Schedule{
		Weekdays:      weekdays,
		TimeSlots:     req.TimeSlots,
		BlackoutDates: req.BlackoutDates,
	}
}
