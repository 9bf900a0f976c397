package auth

import (
	"log/slog"
	"net/http"

	"github.com/namhatta/namhatta/internal/platform/httpx"
	"github.com/namhatta/namhatta/internal/shared"
)

// CookieName is the HttpOnly cookie carrying the auth token.
const CookieName = "auth_token"

// Guard is the request-time gate. Every protected route passes through
// RequireAuth; role and district checks layer on top.
type Guard struct {
	Logger  *slog.Logger
	Service *Service

	// AuthEnabled=false activates the development bypass. Production
	// refuses the bypass unconditionally.
	AuthEnabled bool
	Production  bool
}

// bypass handles the development-only authentication bypass. Returns
// (handled, allowed): handled means the caller should stop processing.
func (g Guard) bypass(w http.ResponseWriter) (bool, bool) {
	if g.AuthEnabled {
		return false, false
	}
	if g.Production {
		if g.Logger != nil {
			g.Logger.Error("authentication bypass attempted in production")
		}
		httpx.RespondError(w, shared.ErrSecurityConfig)
		return true, false
	}
	if g.Logger != nil {
		g.Logger.Warn("authentication bypass active in development mode")
	}
	return true, true
}

// RequireAuth verifies the token cookie, checks revocation and session
// validity, and attaches the hydrated principal to the request context.
// It terminates at the first failure with a generic 401.
func (g Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handled, allowed := g.bypass(w); handled {
			if !allowed {
				return
			}
			principal := &shared.Principal{ID: 1, Username: "dev-user", Role: string(RoleAdmin)}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
			return
		}

		cookie, err := r.Cookie(CookieName)
		if err != nil || cookie.Value == "" {
			httpx.RespondError(w, shared.ErrAuthRequired)
			return
		}

		principal, err := g.Service.Authenticate(r.Context(), cookie.Value)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

// Authorize rejects with 403 unless the principal holds one of the allowed
// roles. Must run after RequireAuth.
func (g Guard) Authorize(allowed ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if handled, ok := g.bypass(w); handled {
				if !ok {
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.RespondError(w, shared.ErrAuthRequired)
				return
			}
			for _, role := range allowed {
				if principal.Role == string(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.RespondError(w, shared.ErrForbidden)
		})
	}
}

// DistrictScope attaches the query constraint derived from the principal.
// ADMIN and OFFICE are unrestricted; a DISTRICT_SUPERVISOR is pinned to its
// own district set regardless of any client-supplied filter. The constraint
// is an explicit context value threaded into the query layer, never a
// mutation of the inbound request.
func (g Guard) DistrictScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handled, ok := g.bypass(w); handled {
			if !ok {
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		principal := shared.PrincipalFromContext(r.Context())
		if principal == nil {
			httpx.RespondError(w, shared.ErrAuthRequired)
			return
		}
		constraint := shared.DistrictConstraint{}
		if principal.Role == string(RoleDistrictSupervisor) {
			constraint = shared.DistrictConstraint{Restricted: true, Codes: principal.Districts}
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithDistricts(r.Context(), constraint)))
	})
}
