package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/api/http/handlers"
	"github.com/spec-kit/user-service/internal/auth"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Metrics        *handlers.MetricsHandler
	AuthMiddleware *auth.AuthMiddleware
	// AllowAnonymous serves /users without authentication. It is ignored
	// when AuthMiddleware is set; with neither, /users answers 401.
	AllowAnonymous bool
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Show)
	}

	read, write := usersGuards(cfg)
	users := app.Group("/users")
	users.Get("", append(read, cfg.Users.List)...)
	users.Get("/:id", append(read, cfg.Users.Get)...)
	users.Post("", append(write, cfg.Users.Create)...)
	users.Put("/:id", append(write, cfg.Users.Update)...)
	users.Delete("/:id", append(write, cfg.Users.Delete)...)
}

// usersGuards returns the read and write handlers placed in front of the
// /users handlers.
func usersGuards(cfg RouteConfig) (read, write []fiber.Handler) {
	switch {
	case cfg.AuthMiddleware != nil:
		return []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireScope(auth.ScopeUsersRead)},
			[]fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireScope(auth.ScopeUsersWrite)}
	case cfg.AllowAnonymous:
		return nil, nil
	default:
		deny := func(*fiber.Ctx) error {
			return apperrors.NewUnauthorized("authentication not configured")
		}
		return []fiber.Handler{deny}, []fiber.Handler{deny}
	}
}
