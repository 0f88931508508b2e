// middleware/sse_auth.go
package middleware

import (
	"rep-challenge-system/logging"

	"github.com/gofiber/fiber/v2"
)

// StreamAuthMiddleware guards the push transports. Browsers cannot set
// headers on EventSource or WebSocket, so the gateway token is also
// accepted from the `token` query parameter.
func StreamAuthMiddleware(expectedToken string) fiber.Handler {
	log := logging.WithComponent("http")

	return func(c *fiber.Ctx) error {
		token := bearer(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			token = c.Query("token")
		}
		if !tokenMatches(token, expectedToken) {
			log.Warn().Str("path", c.Path()).Str("ip", c.IP()).Msg("stream auth rejected")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway authentication token",
			})
		}
		return c.Next()
	}
}
