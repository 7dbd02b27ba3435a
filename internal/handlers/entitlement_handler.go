package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mwl-dev/lemongate/internal/apperr"
	"github.com/mwl-dev/lemongate/internal/dto"
	"github.com/mwl-dev/lemongate/internal/services"
	"github.com/mwl-dev/lemongate/internal/webhook"
)

type EntitlementHandler struct {
	entitlements *services.EntitlementService
	auth         *services.AuthService
	lemon        *services.LemonClient
}

func NewEntitlementHandler(entitlements *services.EntitlementService, auth *services.AuthService, lemon *services.LemonClient) *EntitlementHandler {
	return &EntitlementHandler{entitlements: entitlements, auth: auth, lemon: lemon}
}

// GetOrder answers "does the caller's latest order for this product
// count as paid".
func (h *EntitlementHandler) GetOrder(c *fiber.Ctx) error {
	return h.getByProduct(c, webhook.KindOrder)
}

func (h *EntitlementHandler) GetSubscription(c *fiber.Ctx) error {
	return h.getByProduct(c, webhook.KindSubscription)
}

func (h *EntitlementHandler) getByProduct(c *fiber.Ctx, kind webhook.Kind) error {
	user, err := h.auth.FindByToken(c.UserContext(), c.Query("token"))
	if err != nil {
		return err
	}

	storeID := c.Query("store_id")
	productID := c.Query("product_id")
	if storeID == "" || productID == "" {
		return apperr.Validation(`"store_id" and "product_id" are required`)
	}

	resp, err := h.entitlements.ResolveResponse(c.UserContext(), kind, services.EntitlementQuery{
		UserID:    user.ID.String(),
		StoreID:   storeID,
		ProductID: productID,
		VariantID: c.Query("variant_id", "1"), // "1" is the provider's default variant
		TestMode:  c.QueryBool("test_mode", false),
	})
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// GetLicense resolves by license key alone; keys are unique across all
// stores. The token still gates the endpoint.
func (h *EntitlementHandler) GetLicense(c *fiber.Ctx) error {
	if _, err := h.auth.FindByToken(c.UserContext(), c.Query("token")); err != nil {
		return err
	}

	licenseKey := c.Query("license_key")
	if licenseKey == "" {
		return apperr.Validation(`"license_key" is required`)
	}

	resp, err := h.entitlements.ResolveResponse(c.UserContext(), webhook.KindLicense, services.EntitlementQuery{
		LicenseKey: licenseKey,
		TestMode:   c.QueryBool("test_mode", false),
	})
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// ActivateLicense proxies an activation to the billing provider.
func (h *EntitlementHandler) ActivateLicense(c *fiber.Ctx) error {
	if _, err := h.auth.FindByToken(c.UserContext(), c.Query("token")); err != nil {
		return err
	}

	var req dto.ActivateLicenseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.LicenseKey == "" || req.InstanceName == "" {
		return apperr.Validation(`"license_key" and "instance_name" are required`)
	}

	result, err := h.lemon.ActivateLicense(c.UserContext(), req.LicenseKey, req.InstanceName)
	if err != nil {
		return err
	}
	return c.JSON(result)
}
