package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/studyrooms-api/internal/config"
	"github.com/noah-isme/studyrooms-api/internal/handler"
	"github.com/noah-isme/studyrooms-api/internal/middleware"
	"github.com/noah-isme/studyrooms-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler     *handler.AuthHandler
	RoomHandler     *handler.RoomHandler
	PostHandler     *handler.PostHandler
	DoubtHandler    *handler.DoubtHandler
	CommentHandler  *handler.CommentHandler
	UploadHandler   *handler.UploadHandler
	RealtimeHandler *handler.RealtimeHandler
	JWTMiddleware   fiber.Handler
	// StaticUploadDir is served under /uploads when files are stored on local disk.
	StaticUploadDir string
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	app.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	if deps.StaticUploadDir != "" {
		app.Static("/uploads", deps.StaticUploadDir, fiber.Static{ByteRange: true})
	}

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// The websocket endpoint authenticates with its own query-or-header middleware.
	if deps.RealtimeHandler != nil {
		deps.RealtimeHandler.Register(app)
	}

	if deps.AuthHandler != nil {
		authGroup := app.Group("/auth", middleware.RateLimit("auth", cfg.AuthRateLimitPerMinute, time.Minute))
		deps.AuthHandler.RegisterPublic(authGroup)
		deps.AuthHandler.Register(authGroup.Group("", jwtMiddleware))
	}

	if deps.RoomHandler != nil {
		rooms := app.Group("/rooms", jwtMiddleware)
		// Nested content routes go first so /:id/posts is not shadowed by /:id.
		if deps.PostHandler != nil {
			deps.PostHandler.RegisterRoomRoutes(rooms)
		}
		if deps.DoubtHandler != nil {
			deps.DoubtHandler.RegisterRoomRoutes(rooms)
		}
		deps.RoomHandler.Register(rooms)
	}

	if deps.PostHandler != nil {
		deps.PostHandler.Register(app.Group("/posts", jwtMiddleware))
	}
	if deps.DoubtHandler != nil {
		deps.DoubtHandler.Register(app.Group("/doubts", jwtMiddleware))
	}
	if deps.CommentHandler != nil {
		deps.CommentHandler.Register(app.Group("/comments", jwtMiddleware))
	}

	if deps.UploadHandler != nil {
		deps.UploadHandler.Register(app, jwtMiddleware)
	}
}
