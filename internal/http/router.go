package http

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/redmonkez12/work4u/internal/analytics"
	"github.com/redmonkez12/work4u/internal/auth"
	"github.com/redmonkez12/work4u/internal/config"
	"github.com/redmonkez12/work4u/internal/httputil"
	"github.com/redmonkez12/work4u/internal/i18n"
	"github.com/redmonkez12/work4u/internal/jobs"
	"github.com/redmonkez12/work4u/internal/logging"
)

// Handlers are the route handlers mounted by NewRouter
type Handlers struct {
	Auth       *auth.Handler
	Middleware *auth.Middleware
	Jobs       *jobs.Handler
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Accept-Language", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)               // Security headers on all responses
	r.Use(middleware.Recoverer)          // Recover from panics
	r.Use(middleware.RequestID)          // Add request ID
	r.Use(middleware.RealIP)             // Set RemoteAddr to real IP
	r.Use(logging.RequestLogger(logger)) // Structured logging with request context
	r.Use(middleware.Compress(5))        // Compress responses
	r.Use(i18n.Middleware)               // Request language for messages
	r.Use(analytics.Middleware)          // Page and device data for login state

	// Public routes
	r.Get("/health", handleHealth)

	// Swagger UI - only in development
	// Production builds will not have this route at all
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	} else {
		logger.Info("swagger UI disabled (production mode)")
	}

	// Auth routes (public, per-browser client)
	r.Route("/auth", func(r chi.Router) {
		r.Use(h.Middleware.ResolveClient)

		r.Post("/signup", h.Auth.SignUp)
		r.Post("/signin", h.Auth.SignIn)
		r.Post("/signout", h.Auth.SignOut)
		r.Post("/forgot-password", h.Auth.ForgotPassword)
		r.Get("/google/signin", h.Auth.GoogleSignIn)
		r.Get("/google/signup", h.Auth.GoogleSignUp)
		r.Get("/google/callback", h.Auth.GoogleCallback)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(h.Middleware.ResolveClient)

		r.Get("/session", h.Auth.Session)
		r.Get("/jobs", h.Jobs.List)
		r.Get("/jobs/{id}", h.Jobs.Get)

		// Protected routes (require a signed-in user)
		r.Group(func(r chi.Router) {
			r.Use(h.Middleware.RequireAuth)

			r.Get("/token", h.Auth.Token)
			r.Patch("/profile", h.Auth.UpdateProfile)
			r.Delete("/profile", h.Auth.DeleteProfile)
			r.Post("/jobs", h.Jobs.Create)
			r.Post("/jobs/{id}/apply", h.Jobs.Apply)
		})
	})

	// Frontend pages
	r.Group(func(r chi.Router) {
		r.Use(RedirectAuthenticated)
		r.Get("/*", pages(cfg.Server.StaticDir))
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the server is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// pages serves the exported frontend from dir. A page path resolves to
// the file itself, then to path.html, then to path/index.html.
func pages(dir string) http.HandlerFunc {
	if dir == "" {
		return func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		candidates := []string{clean, clean + ".html", path.Join(clean, "index.html")}

		for _, c := range candidates {
			name := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(c, "/")))
			info, err := os.Stat(name)
			if err != nil || info.IsDir() {
				continue
			}
			http.ServeFile(w, r, name)
			return
		}

		http.NotFound(w, r)
	}
}
