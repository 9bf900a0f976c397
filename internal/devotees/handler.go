package devotees

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

// Handler wires devotee endpoints. Reads are open to all authenticated
// roles under district scoping; writes require ADMIN or OFFICE.
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

// MountRoutes registers devotee routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard.RequireAuth)
	r.Use(h.guard.DistrictScope)

	r.Get("/", h.list)
	r.Get("/{id}", h.get)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.Authorize(auth.RoleAdmin, auth.RoleOffice))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
	})
}

type devoteeInput struct {
	LegalName  string `json:"legalName" validate:"required"`
	Name       string `json:"name"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone"`
	NamhattaID *int64 `json:"namhattaId"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Search:       r.URL.Query().Get("search"),
		DistrictCode: r.URL.Query().Get("district"),
	}
	if raw := r.URL.Query().Get("namhattaId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "namhattaId must be an integer")
			return
		}
		filter.NamhattaID = &id
	}
	filter.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filter.PageSize, _ = strconv.Atoi(r.URL.Query().Get("pageSize"))

	page, err := h.service.List(r.Context(), shared.DistrictsFromContext(r.Context()), filter)
	if err != nil {
		h.logger.Error("list devotees", slog.Any("error", err))
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
	d, err := h.service.Get(r.Context(), shared.DistrictsFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, "get devotee", err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in devoteeInput
	if !h.decode(w, r, &in) {
		return
	}
	d, err := h.service.Create(r.Context(), Devotee{
		LegalName:  in.LegalName,
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		NamhattaID: in.NamhattaID,
	})
	if err != nil {
		h.respondError(w, "create devotee", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in devoteeInput
	if !h.decode(w, r, &in) {
		return
	}
	d, err := h.service.Update(r.Context(), shared.DistrictsFromContext(r.Context()), Devotee{
		ID:         id,
		LegalName:  in.LegalName,
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		NamhattaID: in.NamhattaID,
	})
	if err != nil {
		h.respondError(w, "update devotee", err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "missing or invalid fields")
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, shared.ErrForbidden) {
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
