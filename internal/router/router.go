package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/localaid/localaid-api/internal/config"
	"github.com/localaid/localaid-api/internal/handler"
	"github.com/localaid/localaid-api/internal/middleware"
	"github.com/localaid/localaid-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler     *handler.AuthHandler
	PostHandler     *handler.PostHandler
	ChatHandler     *handler.ChatHandler
	UploadHandler   *handler.UploadHandler
	RealtimeHandler *handler.RealtimeHandler
	JWTMiddleware   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	protected := api.Group("", jwtMiddleware)

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api, protected)
	}

	if deps.PostHandler != nil {
		deps.PostHandler.Register(api, protected)
	}

	if deps.ChatHandler != nil {
		chat := protected.Group("", middleware.RateLimit("chat", 30, time.Minute))
		deps.ChatHandler.Register(chat)
	}

	if deps.UploadHandler != nil {
		uploads := protected.Group("", middleware.RateLimit("uploads", 10, time.Minute))
		deps.UploadHandler.Register(uploads)
	}

	if deps.RealtimeHandler != nil {
		ws := app.Group("", jwtMiddleware)
		deps.RealtimeHandler.Register(ws)
	}
}
