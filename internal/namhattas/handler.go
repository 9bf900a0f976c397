package namhattas

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/namhatta/namhatta/internal/auth"
	"github.com/namhatta/namhatta/internal/platform/httpx"
	"github.com/namhatta/namhatta/internal/shared"
)

// Handler wires namhatta endpoints. Approval is ADMIN and OFFICE only.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     auth.Guard
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard auth.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers namhatta routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard.RequireAuth)
	r.Use(h.guard.DistrictScope)

	r.Get("/", h.list)
	r.Get("/{id}", h.get)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.Authorize(auth.RoleAdmin, auth.RoleOffice))
		r.Post("/", h.create)
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.reject)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Search: r.URL.Query().Get("search"),
		Status: r.URL.Query().Get("status"),
	}
	filter.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filter.PageSize, _ = strconv.Atoi(r.URL.Query().Get("pageSize"))

	page, err := h.service.List(r.Context(), shared.DistrictsFromContext(r.Context()), filter)
	if err != nil {
		h.logger.Error("list namhattas", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	n, err := h.service.Get(r.Context(), shared.DistrictsFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, "get namhatta", err)
		return
	}
	httpx.JSON(w, http.StatusOK, n)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Code        string `json:"code" validate:"required"`
		Name        string `json:"name" validate:"required"`
		SecretaryID *int64 `json:"secretaryId"`
	}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "code and name are required")
		return
	}
	n, err := h.service.Create(r.Context(), Namhatta{Code: in.Code, Name: in.Name, SecretaryID: in.SecretaryID})
	if err != nil {
		h.respondError(w, "create namhatta", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, n)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in struct {
		RegistrationNo string `json:"registrationNo" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "registrationNo is required")
		return
	}
	n, err := h.service.Approve(r.Context(), id, in.RegistrationNo)
	if err != nil {
		h.respondError(w, "approve namhatta", err)
		return
	}
	httpx.JSON(w, http.StatusOK, n)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	n, err := h.service.Reject(r.Context(), id)
	if err != nil {
		h.respondError(w, "reject namhatta", err)
		return
	}
	httpx.JSON(w, http.StatusOK, n)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, shared.ErrForbidden) &&
		!errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrDuplicate) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a positive integer")
		return 0, false
	}
	return id, true
}
