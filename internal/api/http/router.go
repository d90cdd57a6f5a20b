package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/license-service/internal/api/http/handlers"
	"github.com/spec-kit/license-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Users      *handlers.UsersHandler
	Licenses   *handlers.LicensesHandler
	Hooks      *handlers.HooksHandler
	Middleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/me", cfg.Middleware.RequireSession, auth.RequireAuthenticated(), cfg.Users.Me)

	app.Post("/hooks/claims", cfg.Hooks.Claims)

	licenses := app.Group("/licenses")
	licenses.Post("/verify", cfg.Licenses.Verify)
	licenses.Post("/reset-hwid", cfg.Licenses.ResetHWID)
	licenses.Get("/me", cfg.Middleware.RequireLicenseToken, cfg.Licenses.Me)

	admin := app.Group("/admin", cfg.Middleware.RequireSession, auth.RequireAdmin())
	admin.Post("/licenses", cfg.Licenses.Generate)
	admin.Get("/licenses/:id", cfg.Licenses.Get)
	admin.Post("/licenses/:id/extend", cfg.Licenses.Extend)
	admin.Post("/licenses/:id/revoke", cfg.Licenses.Revoke)
	admin.Delete("/licenses/:id", cfg.Licenses.Delete)
	admin.Get("/users/:id/licenses", cfg.Licenses.ListForUser)
	admin.Get("/users/:id/activity", cfg.Licenses.ActivityForUser)
}
