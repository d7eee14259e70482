package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/workstack/workstack/internal/auth"
	"github.com/workstack/workstack/internal/config"
	wsmiddleware "github.com/workstack/workstack/internal/middleware"
	"github.com/workstack/workstack/internal/services/admin"
	"github.com/workstack/workstack/internal/services/iam"
	"github.com/workstack/workstack/internal/services/project"
	"github.com/workstack/workstack/internal/services/task"
)

// RouterOptions controls the construction of the HTTP router.
type RouterOptions struct {
	Tokens         *auth.TokenService
	Accounts       *iam.Accounts
	Provisioner    *iam.Provisioner
	RelyingParties map[string]*auth.RelyingParty
	Projects       *project.Service
	Tasks          *task.Service
	Admin          *admin.Service
	Cfg            *config.Config
	CORSOptions    *cors.Options
}

// DefaultCORSOptions returns the shared development CORS policy.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		},
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles a chi.Router with shared middleware, CORS policy, the
// public auth endpoints, and the token-protected API.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	// Baseline middleware shared across entrypoints.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	r.Get("/healthz", healthHandler)

	// Public authentication surface.
	r.Post("/auth/register", HandleRegister(opts.Accounts))
	r.Post("/auth/login", HandleLogin(opts.Accounts, opts.Tokens))
	for name, party := range opts.RelyingParties {
		r.Get("/auth/sso/"+name+"/login", HandleSSOLogin(party))
		r.Get("/auth/sso/"+name+"/callback", HandleSSOCallback(party, opts.Provisioner, opts.Tokens))
	}

	// Everything below requires a valid bearer token.
	r.Group(func(r chi.Router) {
		r.Use(wsmiddleware.RequireAuth(opts.Tokens, func(w http.ResponseWriter, r *http.Request, err error) {
			writeServiceError(w, r, err)
		}))

		r.Post("/auth/refresh", HandleRefresh(opts.Accounts, opts.Tokens))
		r.Get("/auth/me", HandleMe(opts.Accounts))

		r.Route("/api/v1/projects", func(r chi.Router) {
			r.Get("/", HandleListProjects(opts.Projects))
			r.Post("/", HandleCreateProject(opts.Projects))
			r.Get("/{id}", HandleGetProject(opts.Projects))
			r.Put("/{id}", HandleUpdateProject(opts.Projects))
			r.Delete("/{id}", HandleDeleteProject(opts.Projects))
		})

		r.Route("/api/v1/tasks", func(r chi.Router) {
			r.Get("/", HandleListTasks(opts.Tasks))
			r.Post("/", HandleCreateTask(opts.Tasks))
			r.Get("/overdue", HandleListOverdueTasks(opts.Tasks))
			r.Get("/status-counts", HandleTaskStatusCounts(opts.Tasks))
			r.Get("/{id}", HandleGetTask(opts.Tasks))
			r.Put("/{id}", HandleUpdateTask(opts.Tasks))
			r.Put("/{id}/assignee", HandleAssignTask(opts.Tasks))
			r.Delete("/{id}", HandleDeleteTask(opts.Tasks))
		})

		r.Route("/api/v1/admin", func(r chi.Router) {
			r.Get("/users", HandleListUsers(opts.Admin))
			r.Get("/users/pending", HandleListPendingUsers(opts.Admin))
			r.Put("/users/{id}/roles", HandleUpdateUserRoles(opts.Admin))
			r.Post("/users/{id}/approve", HandleApproveUser(opts.Admin))
			r.Put("/users/{id}/active", HandleSetUserActive(opts.Admin))
			r.Get("/dashboard", HandleDashboard(opts.Admin))
			r.Get("/cache-stats", HandleCacheStats(opts.Admin))
		})
	})

	return r
}

// WrapH2C wraps the router so HTTP/2 cleartext clients are served alongside
// HTTP/1.1 on the same listener.
func WrapH2C(handler http.Handler) http.Handler {
	return h2c.NewHandler(handler, &http2.Server{})
}
