package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/newsroom-labs/cms-service/internal/api/http/handlers"
	"github.com/newsroom-labs/cms-service/internal/auth"
	apperrors "github.com/newsroom-labs/cms-service/pkg/util"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Categories     *handlers.CategoryHandler
	AuthMiddleware *auth.AuthMiddleware
	// RateLimitPerMinute caps /login and /register per client IP; zero disables it.
	RateLimitPerMinute int
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	credentialGuard := credentialLimiter(cfg.RateLimitPerMinute)
	app.Post("/register", credentialGuard, cfg.Auth.Register)
	app.Post("/login", credentialGuard, cfg.Auth.Login)
	app.Post("/refresh-token", cfg.Auth.RefreshToken)

	authenticated := cfg.AuthMiddleware.Handle
	app.Post("/logout", authenticated, cfg.Auth.Logout)
	app.Get("/user", authenticated, cfg.Auth.CurrentUser)
	app.Post("/create-category", authenticated, cfg.Categories.Create)
	app.Get("/list-categories", authenticated, cfg.Categories.List)
}

func credentialLimiter(perMinute int) fiber.Handler {
	if perMinute <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|" + c.Path()
		},
		LimitReached: func(*fiber.Ctx) error {
			return apperrors.NewTooManyRequests("Too many attempts. Please try again later.")
		},
	})
}
