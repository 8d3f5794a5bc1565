package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Titansingh/ProfessionalBackend/internal/service"
	"github.com/Titansingh/ProfessionalBackend/pkg/health"
	"github.com/Titansingh/ProfessionalBackend/pkg/middleware"
)

// RouterConfig carries the router's operational settings.
type RouterConfig struct {
	ServiceName  string
	CORS         middleware.CORSConfig
	PprofEnabled bool
	PprofCIDRs   []string
}

// NewRouter creates a chi router with all account service routes registered.
func NewRouter(
	userService *service.UserService,
	cookies *CookieWriter,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	// Health and metrics endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	if cfg.PprofEnabled {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	// Resolver that bridges the auth middleware to the service. All token
	// failures collapse into one error.
	resolve := func(ctx context.Context, token string) (*middleware.Identity, error) {
		user, err := userService.Authenticate(ctx, token)
		if err != nil {
			return nil, err
		}
		return &middleware.Identity{
			UserID:   user.ID,
			Username: user.Username,
			Email:    user.Email,
			FullName: user.FullName,
		}, nil
	}

	authHandler := NewAuthHandler(userService, cookies, logger)
	userHandler := NewUserHandler(userService, logger)
	channelHandler := NewChannelHandler(userService, logger)

	// Auth endpoints (public)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)

		// Authenticated auth endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(resolve))

			r.Post("/logout", authHandler.Logout)
			r.Post("/change-password", authHandler.ChangePassword)
		})
	})

	// Account endpoints (auth required)
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(resolve))

		r.Get("/me", userHandler.Me)
		r.Patch("/me", userHandler.UpdateMe)
		r.Patch("/me/avatar", userHandler.UpdateAvatar)
		r.Patch("/me/cover-image", userHandler.UpdateCoverImage)
	})

	// Channel endpoints (public, identity attached opportunistically)
	r.Route("/api/v1/channels", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(resolve))

		r.Get("/{username}", channelHandler.Get)
	})

	return r
}
