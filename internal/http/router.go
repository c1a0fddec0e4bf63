package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/redmonkez12/go-saas-starter/internal/auth"
	"github.com/redmonkez12/go-saas-starter/internal/config"
	"github.com/redmonkez12/go-saas-starter/internal/gate"
	"github.com/redmonkez12/go-saas-starter/internal/httputil"
	"github.com/redmonkez12/go-saas-starter/internal/i18n"
	"github.com/redmonkez12/go-saas-starter/internal/logging"
)

// Pages mounts the localized pages.
type Pages interface {
	Register(r chi.Router, requireSession, loadSession func(http.Handler) http.Handler)
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, authHandler *auth.Handler, authMiddleware *auth.Middleware, pages Pages, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Auth.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Auth.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	r.Use(SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	// The gate and the locale router rewrite the path, so they have to run
	// before chi matches a route.
	r.Use(gate.Middleware(i18n.NewRouter().Middleware))

	r.Get("/api/health", handleHealth)

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	r.Mount("/api/auth", authHandler.Routes())

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAPISession)
		r.Get("/api/me", handleMe)
	})

	if pages != nil {
		pages.Register(r, authMiddleware.RequireSession, authMiddleware.LoadSession)
	}

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /api/health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}

// handleMe returns the signed-in user
// @Summary      Current user
// @Description  Returns the user behind the session cookie
// @Tags         auth
// @Produce      json
// @Success      200 {object} auth.UserResponse
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /api/me [get]
func handleMe(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	data, _ := auth.SessionFromContext(r.Context())
	logger.Info("protected endpoint accessed", "user_id", data.User.ID)

	httputil.RespondJSON(w, auth.UserResponse{User: data.User}, http.StatusOK)
}
