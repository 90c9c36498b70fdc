package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	apperrors "vaultledger/internal/errors"
)

// Respond sends a JSON response with the specified status code.
func Respond(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(data)
}

// Success sends a successful JSON response.
func Success(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusOK, data)
}

// BadRequest sends a JSON error response with status 400.
func BadRequest(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusBadRequest, fiber.Map{"error": message})
}

// Unauthorized sends a JSON error response with status 401.
func Unauthorized(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusUnauthorized, fiber.Map{"error": message})
}

// Forbidden sends a JSON error response with status 403.
func Forbidden(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusForbidden, fiber.Map{"error": message})
}

// NotFound sends a JSON error response with status 404.
func NotFound(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusNotFound, fiber.Map{"error": message})
}

// InternalError sends a JSON error response with status 500.
func InternalError(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusInternalServerError, fiber.Map{"error": message})
}

// ServiceUnavailable sends a JSON error response with status 503.
func ServiceUnavailable(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusServiceUnavailable, fiber.Map{"error": message})
}

// Conflict sends a JSON error response with status 409.
func Conflict(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusConflict, fiber.Map{"error": message})
}

// HandleError maps a service error to its HTTP status. Only the domain
// message is exposed; wrapped causes stay in the logs.
func HandleError(c *fiber.Ctx, err error) error {
	de, ok := apperrors.As(err)
	if !ok {
		return InternalError(c, "Internal server error")
	}
	if errors.Is(err, apperrors.ErrInvalidCredentials) || errors.Is(err, apperrors.ErrInvalidToken) {
		return Unauthorized(c, de.Message)
	}

	switch de.Kind {
	case apperrors.KindValidation:
		return BadRequest(c, de.Message)
	case apperrors.KindNotFound:
		return NotFound(c, de.Message)
	case apperrors.KindStateConflict:
		return Conflict(c, de.Message)
	case apperrors.KindDependencyUnavailable:
		return ServiceUnavailable(c, de.Message)
	default:
		return InternalError(c, "Internal server error")
	}
}
