package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/namhatta/namhatta/internal/auth"
	"github.com/namhatta/namhatta/internal/dashboard"
	"github.com/namhatta/namhatta/internal/devotees"
	"github.com/namhatta/namhatta/internal/hierarchy"
	"github.com/namhatta/namhatta/internal/namhattas"
	"github.com/namhatta/namhatta/internal/observability"
	"github.com/namhatta/namhatta/internal/users"
	"github.com/namhatta/namhatta/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AuthHandler      *auth.Handler
	HierarchyHandler *hierarchy.Handler
	UsersHandler     *users.Handler
	DevoteesHandler  *devotees.Handler
	NamhattasHandler *namhattas.Handler
	DashboardHandler *dashboard.Handler
	JobsHandler      *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router serving the JSON API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/senapoti", params.HierarchyHandler.MountRoutes)
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.DevoteesHandler != nil {
			r.Route("/devotees", params.DevoteesHandler.MountRoutes)
		}
		if params.NamhattasHandler != nil {
			r.Route("/namhattas", params.NamhattasHandler.MountRoutes)
		}
		if params.DashboardHandler != nil {
			r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
