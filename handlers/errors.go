package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"rps-arena/services"
)

// statusFor maps the service error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case services.IsValidation(err):
		return fiber.StatusBadRequest
	case services.IsAuthorization(err):
		return fiber.StatusForbidden
	case services.IsNotFound(err):
		return fiber.StatusNotFound
	case services.IsStateConflict(err):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrRateLimited):
		return fiber.StatusTooManyRequests
	case errors.Is(err, errBadPayload), errors.Is(err, errUnknownAction):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func respondError(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}
