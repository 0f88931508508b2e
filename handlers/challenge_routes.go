// handlers/challenge_routes.go
package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"rep-challenge-system/logging"
	"rep-challenge-system/middleware"
	"rep-challenge-system/models"
	"rep-challenge-system/pose"
	"rep-challenge-system/repository"
	"rep-challenge-system/services"

	"github.com/gofiber/fiber/v2"
)

type progressRequest struct {
	Reps    json.RawMessage `json:"reps"`
	Session json.RawMessage `json:"session,omitempty"`
}

// parseReps accepts a JSON integer or a numeric string.
func parseReps(raw json.RawMessage) (int, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("%w: reps is required", services.ErrInvalidInput)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("%w: reps must be an integer", services.ErrInvalidInput)
	}
	v, err := n.Int64()
	if err != nil || v > math.MaxInt32 || v < math.MinInt32 {
		return 0, fmt.Errorf("%w: reps must be an integer", services.ErrInvalidInput)
	}
	return int(v), nil
}

// SetupChallengeRoutes registers challenge listing, creation, join and
// progress. archive may be nil, in which case session summaries are ignored.
func SetupChallengeRoutes(
	app *fiber.App,
	users *services.UserService,
	challengeService *services.ChallengeService,
	ledgerService *services.LedgerService,
	archive *services.EvidenceArchive,
) {
	userCtx := middleware.UserContextMiddleware(users)
	log := logging.WithComponent("http")

	app.Get("/challenges", userCtx, func(c *fiber.Ctx) error {
		f := repository.ChallengeFilter{
			Status: models.ChallengeStatus(c.Query("status")),
			Type:   models.ExerciseType(c.Query("type")),
		}
		if v := c.Query("limit"); v != "" {
			limit, err := strconv.Atoi(v)
			if err != nil || limit <= 0 || limit > 100 {
				limit = 50
			}
			f.Limit = limit
		}
		list, err := challengeService.List(c.UserContext(), f)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	app.Get("/challenges/:id", userCtx, func(c *fiber.Ctx) error {
		ch, err := challengeService.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(ch)
	})

	app.Post("/challenges", userCtx, func(c *fiber.Ctx) error {
		var in services.CreateChallengeInput
		if err := json.Unmarshal(c.Body(), &in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
				"cause": err.Error(),
			})
		}
		ch, err := challengeService.Create(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(ch)
	})

	app.Post("/challenges/:id/join", userCtx, func(c *fiber.Ctx) error {
		p, err := ledgerService.Join(c.UserContext(), c.Params("id"), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})

	app.Post("/challenges/:id/progress", userCtx, func(c *fiber.Ctx) error {
		var req progressRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
				"cause": err.Error(),
			})
		}
		reps, err := parseReps(req.Reps)
		if err != nil {
			return respondError(c, err)
		}

		challengeID, userID := c.Params("id"), middleware.UserID(c)
		var session *pose.Result
		if archive != nil && len(req.Session) > 0 && string(req.Session) != "null" {
			if session, err = services.ParseSession(req.Session, reps); err != nil {
				return respondError(c, err)
			}
		}

		res, err := ledgerService.ApplyProgress(c.UserContext(), challengeID, userID, reps)
		if err != nil {
			return respondError(c, err)
		}

		var evidenceURL string
		if session != nil {
			evidenceURL, err = archive.Archive(c.UserContext(), challengeID, userID, reps, session)
			if err != nil {
				// reps are already applied
				log.Warn().Err(err).Str("challenge_id", challengeID).Msg("session archive failed")
			}
		}
		body := fiber.Map{
			"message":      "Progress updated",
			"updated_reps": res.UpdatedReps,
			"completed":    res.Completed,
		}
		if evidenceURL != "" {
			body["evidence_url"] = evidenceURL
		}
		return c.JSON(body)
	})
}
