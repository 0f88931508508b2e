package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rep-challenge-system/logging"
	"rep-challenge-system/models"
	"rep-challenge-system/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const LeaderboardSize = 10

var minBet = decimal.NewFromInt(1)

// CreateChallengeInput is the body of POST /challenges. Empty visibility,
// team size and verification fall back to public, 1 and camera.
type CreateChallengeInput struct {
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	Type               models.ExerciseType `json:"type"`
	TargetReps         int                 `json:"target_reps"`
	BetAmount          decimal.Decimal     `json:"bet_amount"`
	EndDate            time.Time           `json:"end_date"`
	Visibility         string              `json:"visibility"`
	TeamSize           int                 `json:"team_size"`
	VerificationMethod string              `json:"verification_method"`
}

type ChallengeService struct {
	store    repository.Store
	notifier Notifier
	now      func() time.Time
	log      zerolog.Logger
}

func NewChallengeService(store repository.Store, notifier Notifier) *ChallengeService {
	return &ChallengeService{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		log:      logging.WithComponent("challenges"),
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func (s *ChallengeService) validate(in *CreateChallengeInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Visibility == "" {
		in.Visibility = models.VisibilityPublic
	}
	if in.TeamSize == 0 {
		in.TeamSize = 1
	}
	if in.VerificationMethod == "" {
		in.VerificationMethod = models.VerificationCamera
	}

	switch {
	case in.Title == "":
		return invalid("title is required")
	case in.Description == "":
		return invalid("description is required")
	case !in.Type.Valid():
		return invalid("type must be one of pushup, squat, situp")
	case in.TargetReps < 1:
		return invalid("target_reps must be at least 1")
	case in.BetAmount.LessThan(minBet):
		return invalid("bet_amount must be at least 1")
	case !in.EndDate.After(s.now()):
		return invalid("end_date must be in the future")
	case in.TeamSize < 1:
		return invalid("team_size must be at least 1")
	}
	switch in.Visibility {
	case models.VisibilityPublic, models.VisibilityPrivate:
	default:
		return invalid("visibility must be public or private")
	}
	switch in.VerificationMethod {
	case models.VerificationCamera, models.VerificationWearable, models.VerificationManual:
	default:
		return invalid("verification_method must be camera, wearable or manual")
	}
	return nil
}

func (s *ChallengeService) Create(ctx context.Context, creatorID string, in CreateChallengeInput) (*models.Challenge, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	c := &models.Challenge{
		ID:                 id,
		CreatorID:          creatorID,
		Title:              in.Title,
		Slug:               slug.Make(in.Title) + "-" + id[:8],
		Description:        in.Description,
		Type:               in.Type,
		TargetReps:         in.TargetReps,
		BetAmount:          in.BetAmount.Round(2),
		Visibility:         in.Visibility,
		TeamSize:           in.TeamSize,
		VerificationMethod: in.VerificationMethod,
		Status:             models.ChallengeStatusActive,
		EndDate:            in.EndDate.UTC(),
	}
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		return tx.CreateChallenge(c)
	})
	if err != nil {
		return nil, fmt.Errorf("create challenge: %w", err)
	}

	s.log.Info().Str("challenge_id", c.ID).Str("type", string(c.Type)).Int("target_reps", c.TargetReps).Msg("challenge created")
	s.notifier.Broadcast(challengeUpdate(ActionCreated, map[string]any{
		"challenge_id": c.ID,
		"challenge":    c,
	}))
	return c, nil
}

func (s *ChallengeService) Get(ctx context.Context, id string) (*models.Challenge, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	c, err := s.store.GetChallenge(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get challenge: %w", err)
	}
	return c, nil
}

func (s *ChallengeService) List(ctx context.Context, f repository.ChallengeFilter) ([]models.Challenge, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, invalid("unknown exercise type %q", f.Type)
	}
	out, err := s.store.ListChallenges(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	if out == nil {
		out = []models.Challenge{}
	}
	return out, nil
}

// Leaderboard returns the top users by points.
func (s *ChallengeService) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	out, err := s.store.Leaderboard(ctx, LeaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	if out == nil {
		out = []models.LeaderboardEntry{}
	}
	return out, nil
}
