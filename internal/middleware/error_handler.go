package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/mwl-dev/lemongate/internal/apperr"
	"github.com/mwl-dev/lemongate/internal/dto"
)

// ErrorHandler renders every failure as the uniform envelope
// {code, name, description}. The shape is a client contract. Wrapped
// causes are logged for 5xx but never serialized.
func ErrorHandler(c *fiber.Ctx, err error) error {
	ae := apperr.From(err)

	if fe, ok := err.(*fiber.Error); ok {
		ae = &apperr.Error{Code: fe.Code, Name: "HTTPError", Description: fe.Message}
	}

	if ae.Code >= 500 {
		slog.Error("request failed",
			"method", c.Method(), "path", c.Path(),
			"name", ae.Name, "error", err,
		)
		if ae.Name == "InternalServerError" {
			ae.Description = "internal server error"
		}
	}

	return c.Status(ae.Code).JSON(dto.ErrorResponse{
		Code:        ae.Code,
		Name:        ae.Name,
		Description: ae.Description,
	})
}
