// handlers/progression_routes.go
package handlers

import (
	"rep-challenge-system/middleware"
	"rep-challenge-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupProgressionRoutes registers the leaderboard and the caller's own
// points, achievements and transactions.
func SetupProgressionRoutes(
	app *fiber.App,
	users *services.UserService,
	challengeService *services.ChallengeService,
	achievementService *services.AchievementService,
	transactionService *services.TransactionService,
) {
	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		board, err := challengeService.Leaderboard(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(board)
	})

	me := app.Group("/users/me", middleware.UserContextMiddleware(users))

	me.Get("/", func(c *fiber.Ctx) error {
		p, err := users.Profile(c.UserContext(), middleware.UserID(c), c.Get(middleware.HeaderUserName))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})

	me.Get("/achievements", func(c *fiber.Ctx) error {
		list, err := achievementService.ForUser(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	me.Get("/transactions", func(c *fiber.Ctx) error {
		list, err := transactionService.ForUser(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})
}
