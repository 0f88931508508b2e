// handlers/errors.go
package handlers

import (
	"errors"

	"rep-challenge-system/logging"
	"rep-challenge-system/services"

	"github.com/gofiber/fiber/v2"
)

// respondError maps service errors onto the JSON error body.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrNotParticipating):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrAlreadyParticipating),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrChallengeClosed):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrUnauthenticated):
		status = fiber.StatusUnauthorized
	}

	if status == fiber.StatusInternalServerError {
		log := logging.WithComponent("http")
		log.Error().Err(err).
			Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
		return c.Status(status).JSON(fiber.Map{
			"error":     "internal server error",
			"retryable": true,
		})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
