// middleware/auth.go
package middleware

import (
	"context"

	"rep-challenge-system/logging"
	"rep-challenge-system/models"
	"rep-challenge-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"

	// LocalUserID is the c.Locals key holding the caller's id.
	LocalUserID = "user_id"
)

// UserEnsurer provisions the local user row for a gateway identity.
type UserEnsurer interface {
	EnsureUser(ctx context.Context, id, username string) (*models.User, error)
}

// UserContextMiddleware requires the identity set by the Gateway and makes
// sure the caller has a local row before any handler runs.
func UserContextMiddleware(users UserEnsurer) fiber.Handler {
	log := logging.WithComponent("http")

	return func(c *fiber.Ctx) error {
		userID := c.Get(HeaderUserID)
		if userID == "" {
			log.Warn().Str("path", c.Path()).Msg("X-User-ID missing")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": services.ErrUnauthenticated.Error(),
			})
		}
		if _, err := uuid.Parse(userID); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "X-User-ID must be a uuid",
			})
		}

		if _, err := users.EnsureUser(c.UserContext(), userID, c.Get(HeaderUserName)); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("failed to provision user")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":     "failed to load user",
				"retryable": true,
			})
		}

		c.Locals(LocalUserID, userID)
		return c.Next()
	}
}

// UserID returns the id stored by UserContextMiddleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}
