package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/mwl-dev/lemongate/internal/secrets"
	"github.com/mwl-dev/lemongate/internal/services"
	"github.com/mwl-dev/lemongate/internal/webhook"
)

type WebhookHandler struct {
	entitlements *services.EntitlementService
	secrets      secrets.Store
}

func NewWebhookHandler(entitlements *services.EntitlementService, store secrets.Store) *WebhookHandler {
	return &WebhookHandler{entitlements: entitlements, secrets: store}
}

// HandleLemonSqueezy ingests one webhook delivery: verify the signature
// over the raw bytes, classify the event name, normalize, append.
// Any failure aborts before the database write, so nothing
// unauthenticated or unclassified ever reaches the entitlement log.
func (h *WebhookHandler) HandleLemonSqueezy(c *fiber.Ctx) error {
	body := c.Body()

	// Logged verbatim before verification so failed deliveries can be
	// replayed during a provider incident.
	slog.Info("webhook received",
		"event", c.Get(webhook.HeaderEventName),
		"body", string(body),
	)

	secret, err := h.secrets.Get(c.UserContext(), secrets.LemonSigningSecret)
	if err != nil {
		return err
	}

	if err := webhook.VerifySignature(c.Get(webhook.HeaderSignature), body, secret); err != nil {
		return err
	}

	eventName := c.Get(webhook.HeaderEventName)
	kind, err := webhook.Classify(eventName)
	if err != nil {
		return err
	}

	event, err := services.NormalizeEvent(kind, eventName, body)
	if err != nil {
		return err
	}

	if err := h.entitlements.Append(c.UserContext(), event); err != nil {
		return err
	}

	slog.Info("webhook processed", "event", eventName, "kind", kind, "id", event.ID)
	return c.JSON(fiber.Map{})
}
