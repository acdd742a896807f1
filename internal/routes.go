package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"trafficlens/internal/config"
	"trafficlens/internal/http"
)

// apiCORSConfig lets a dashboard front end on another origin call the API.
var apiCORSConfig = cors.Config{
	AllowOrigins: "*",
	AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept",
}

// MountAppRoutes registers every route on srv.
func MountAppRoutes(srv *http.Server, cfg *config.Config) {
	// Rate limiting only applies in production; it would interfere with tests.
	conditionalRateLimiter := func(l fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return l(c)
			}
			return c.Next()
		}
	}

	// Session creation allocates state, so it is limited harder than events.
	sessionRateLimiter := conditionalRateLimiter(limiter.New(limiter.Config{
		Max:        30,
		Expiration: time.Minute,
	}))
	eventRateLimiter := conditionalRateLimiter(limiter.New(limiter.Config{
		Max:        600,
		Expiration: time.Minute,
	}))

	// Health check endpoint
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)

	srv.App.Use("/api", cors.New(apiCORSConfig))

	srv.Get("/api/v1/domains", http.DomainsIndexAction)

	srv.Post("/api/v1/sessions", http.SessionCreateAction, sessionRateLimiter)
	srv.Get("/api/v1/sessions/:id", http.SessionShowAction)
	srv.Delete("/api/v1/sessions/:id", http.SessionDeleteAction)

	srv.Put("/api/v1/sessions/:id/selections/:facet", http.SelectionUpdateAction, eventRateLimiter)
	srv.Post("/api/v1/sessions/:id/clicks/:facet", http.BarClickAction, eventRateLimiter)
}
