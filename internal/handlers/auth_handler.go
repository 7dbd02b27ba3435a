package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mwl-dev/lemongate/internal/apperr"
	"github.com/mwl-dev/lemongate/internal/dto"
	"github.com/mwl-dev/lemongate/internal/services"
)

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register creates an anonymous user and returns its record, token
// included. No credentials are involved; the token is the identity.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	user, err := h.auth.RegisterAnonymous(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *AuthHandler) GoogleSignIn(c *fiber.Ctx) error {
	var req dto.GoogleSignInRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.Credential == "" {
		return apperr.Validation(`"credential" is required`)
	}

	user, err := h.auth.GoogleSignIn(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return c.JSON(user)
}
