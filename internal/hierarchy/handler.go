package hierarchy

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/namhatta/namhatta/internal/auth"
	"github.com/namhatta/namhatta/internal/platform/httpx"
	"github.com/namhatta/namhatta/internal/shared"
)

// Handler wires HTTP endpoints for the senapoti hierarchy.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     auth.Guard
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard auth.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers hierarchy routes on the provided router. Reads are
// open to any authenticated user; mutations require ADMIN or
// DISTRICT_SUPERVISOR, and supervisors act only inside their districts.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard.RequireAuth)
	r.Use(h.guard.DistrictScope)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.Authorize(auth.RoleAdmin, auth.RoleDistrictSupervisor))
		r.Post("/promote", h.handlePromote)
		r.Post("/demote", h.handleDemote)
		r.Post("/remove-role", h.handleRemoveRole)
		r.Post("/transfer-subordinates", h.handleTransferSubordinates)
	})

	r.Get("/subordinates/{id}", h.handleDirectSubordinates)
	r.Get("/subordinates/{id}/all", h.handleAllSubordinates)
	r.Get("/available-supervisors/{district}/{role}", h.handleAvailableSupervisors)
}

func (h *Handler) handlePromote(w http.ResponseWriter, r *http.Request) {
	var req PromoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	principal, ok := h.authorizeDevotee(w, r, req.DevoteeID)
	if !ok {
		return
	}
	result, err := h.service.Promote(r.Context(), req, principal.ID)
	if err != nil {
		h.respondError(w, "promote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleDemote(w http.ResponseWriter, r *http.Request) {
	var req DemoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	principal, ok := h.authorizeDevotee(w, r, req.DevoteeID)
	if !ok {
		return
	}
	result, err := h.service.Demote(r.Context(), req, principal.ID)
	if err != nil {
		h.respondError(w, "demote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleRemoveRole(w http.ResponseWriter, r *http.Request) {
	var req RemoveRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	principal, ok := h.authorizeDevotee(w, r, req.DevoteeID)
	if !ok {
		return
	}
	result, err := h.service.RemoveRole(r.Context(), req, principal.ID)
	if err != nil {
		h.respondError(w, "remove role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleTransferSubordinates(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !h.decode(w, r, &req) {
		return
	}
	principal, ok := h.authorizeDevotee(w, r, req.FromDevoteeID)
	if !ok {
		return
	}
	result, err := h.service.TransferSubordinates(r.Context(), req, principal.ID)
	if err != nil {
		h.respondError(w, "transfer subordinates", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleDirectSubordinates(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	subs, err := h.service.DirectSubordinates(r.Context(), id)
	if err != nil {
		h.respondError(w, "list subordinates", err)
		return
	}
	if subs == nil {
		subs = []Member{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"subordinates": subs})
}

func (h *Handler) handleAllSubordinates(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	subs, err := h.service.AllSubordinates(r.Context(), id)
	if err != nil {
		h.respondError(w, "list all subordinates", err)
		return
	}
	if subs == nil {
		subs = []Member{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"subordinates": subs})
}

func (h *Handler) handleAvailableSupervisors(w http.ResponseWriter, r *http.Request) {
	district := chi.URLParam(r, "district")
	if district == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "district is required")
		return
	}
	role, err := ParseSenapotiRole(chi.URLParam(r, "role"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown senapoti role")
		return
	}

	constraint := shared.DistrictsFromContext(r.Context())
	if !constraint.Allows(district) {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}

	excludeIDs, err := parseExcludeIDs(r.URL.Query().Get("exclude"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "exclude must be a comma separated list of ids")
		return
	}

	supervisors, err := h.service.AvailableSupervisors(r.Context(), district, role, excludeIDs)
	if err != nil {
		h.respondError(w, "list available supervisors", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"supervisors": supervisors})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "missing required fields")
		return false
	}
	return true
}

// authorizeDevotee resolves the caller and applies district scoping to the
// devotee being acted on.
func (h *Handler) authorizeDevotee(w http.ResponseWriter, r *http.Request, devoteeID int64) (*shared.Principal, bool) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, shared.ErrAuthRequired)
		return nil, false
	}
	constraint := shared.DistrictsFromContext(r.Context())
	if err := h.service.AuthorizeDistrict(r.Context(), constraint, devoteeID); err != nil {
		h.respondError(w, "district check", err)
		return nil, false
	}
	return principal, true
}

// respondError maps service failures. Validation failures carry the full
// itemized result so the client can show every violation at once.
func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		httpx.JSON(w, http.StatusBadRequest, ve.Result)
		return
	}
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

func parseExcludeIDs(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
