package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/mwl-dev/lemongate/internal/handlers"
)

func Setup(
	app *fiber.App,
	authHandler *handlers.AuthHandler,
	entitlementHandler *handlers.EntitlementHandler,
	webhookHandler *handlers.WebhookHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api/v1")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Registration/login use a stricter rate limit: 10 req/min per IP
	authLimiter := limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
	api.Post("/users/register", authLimiter, authHandler.Register)
	api.Post("/auth/google", authLimiter, authHandler.GoogleSignIn)

	// Entitlement checks (token-gated inside the handlers)
	api.Get("/entitlements/order", entitlementHandler.GetOrder)
	api.Get("/entitlements/subscription", entitlementHandler.GetSubscription)
	api.Get("/entitlements/license", entitlementHandler.GetLicense)
	api.Post("/licenses/activate", entitlementHandler.ActivateLicense)

	// Webhooks are authenticated by signature, never by user token. The
	// provider enforces its own retry policy on non-2xx responses.
	api.Post("/webhooks/lemonsqueezy", webhookHandler.HandleLemonSqueezy)
}
