package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/namhatta/namhatta/internal/platform/httpx"
	"github.com/namhatta/namhatta/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     Guard
	validator *validator.Validate

	secureCookies   bool
	tokenTTL        time.Duration
	loginRateLimit  int
	loginRateWindow time.Duration
}

// HandlerConfig carries the knobs the auth endpoints need.
type HandlerConfig struct {
	SecureCookies   bool
	TokenTTL        time.Duration
	LoginRateLimit  int
	LoginRateWindow time.Duration
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard Guard, cfg HandlerConfig) *Handler {
	if cfg.LoginRateLimit <= 0 {
		cfg.LoginRateLimit = 5
	}
	if cfg.LoginRateWindow <= 0 {
		cfg.LoginRateWindow = 15 * time.Minute
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	return &Handler{
		logger:          logger,
		service:         service,
		guard:           guard,
		validator:       validator.New(),
		secureCookies:   cfg.SecureCookies,
		tokenTTL:        cfg.TokenTTL,
		loginRateLimit:  cfg.LoginRateLimit,
		loginRateWindow: cfg.LoginRateWindow,
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(h.loginRateLimit, h.loginRateWindow, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post("/login", h.handleLogin)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAuth)
		r.Post("/logout", h.handleLogout)
		r.Get("/verify", h.handleVerify)
		r.Get("/user-districts", h.handleUserDistricts)
	})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type principalSummary struct {
	ID        int64    `json:"id"`
	Username  string   `json:"username"`
	Role      string   `json:"role"`
	Districts []string `json:"districts"`
}

func summarize(p *shared.Principal) principalSummary {
	districts := p.Districts
	if districts == nil {
		districts = []string{}
	}
	return principalSummary{ID: p.ID, Username: p.Username, Role: p.Role, Districts: districts}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "username and password are required")
		return
	}

	principal, token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
			return
		}
		h.logger.Error("login", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	h.setTokenCookie(w, token, h.tokenTTL)
	httpx.JSON(w, http.StatusOK, map[string]any{"user": summarize(principal)})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, shared.ErrAuthRequired)
		return
	}
	rawToken := ""
	if cookie, err := r.Cookie(CookieName); err == nil {
		rawToken = cookie.Value
	}
	if err := h.service.Logout(r.Context(), principal.ID, rawToken); err != nil {
		h.logger.Error("logout", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.clearTokenCookie(w)
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, shared.ErrAuthRequired)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": summarize(principal)})
}

func (h *Handler) handleUserDistricts(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, shared.ErrAuthRequired)
		return
	}
	districts := principal.Districts
	if districts == nil {
		districts = []string{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"districts": districts})
}

func (h *Handler) setTokenCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
