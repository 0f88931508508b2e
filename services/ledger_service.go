package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rep-challenge-system/logging"
	"rep-challenge-system/metrics"
	"rep-challenge-system/models"
	"rep-challenge-system/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ProgressResult reports the participation after a delta was applied.
type ProgressResult struct {
	UpdatedReps   int  `json:"updated_reps"`
	Completed     bool `json:"completed"`
	JustCompleted bool `json:"just_completed"`
}

// LedgerService owns joins and progress. Every write happens inside one
// store transaction and viewers are notified only after it commits.
type LedgerService struct {
	store    repository.Store
	notifier Notifier
	now      func() time.Time
	log      zerolog.Logger
}

func NewLedgerService(store repository.Store, notifier Notifier) *LedgerService {
	return &LedgerService{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		log:      logging.WithComponent("ledger"),
	}
}

func (s *LedgerService) isOpen(c *models.Challenge) bool {
	return c.Status == models.ChallengeStatusActive && s.now().Before(c.EndDate)
}

// Join enrolls userID with zero reps and records the stake as a pending
// bet transaction.
func (s *LedgerService) Join(ctx context.Context, challengeID, userID string) (*models.Participation, error) {
	if _, err := uuid.Parse(challengeID); err != nil {
		return nil, ErrNotFound
	}

	timer := metrics.NewTimer()
	var part models.Participation
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		c, err := tx.LockChallenge(challengeID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock challenge: %w", err)
		}

		_, err = tx.LockParticipation(challengeID, userID)
		switch {
		case err == nil:
			return ErrAlreadyParticipating
		case !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("lookup participation: %w", err)
		}
		if !s.isOpen(c) {
			return ErrChallengeClosed
		}

		part = models.Participation{
			ID:          uuid.NewString(),
			UserID:      userID,
			ChallengeID: challengeID,
		}
		if err := tx.CreateParticipation(&part); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrAlreadyParticipating
			}
			return fmt.Errorf("create participation: %w", err)
		}
		return placeBet(tx, userID, c)
	})
	timer.ObserveDuration(metrics.LedgerTxDuration, "join")
	metrics.JoinsTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	log := logging.WithChallenge(s.log, challengeID, userID)
	log.Info().Msg("joined challenge")
	s.notifier.Broadcast(challengeUpdate(ActionJoined, map[string]any{
		"challenge_id": challengeID,
		"user_id":      userID,
	}))
	return &part, nil
}

// ApplyProgress adds reps to the caller's participation. Deltas are
// additive, so callers must submit disjoint counts.
func (s *LedgerService) ApplyProgress(ctx context.Context, challengeID, userID string, reps int) (*ProgressResult, error) {
	if reps < 0 {
		metrics.ProgressSubmissionsTotal.WithLabelValues(outcome(ErrInvalidInput)).Inc()
		return nil, fmt.Errorf("%w: reps must be a non-negative integer", ErrInvalidInput)
	}
	if _, err := uuid.Parse(challengeID); err != nil {
		return nil, ErrNotParticipating
	}

	timer := metrics.NewTimer()
	var (
		res       ProgressResult
		challenge *models.Challenge
	)
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		// lock order is challenge, participation, user, as in Join and the
		// expiry sweep. The shared lock holds off a concurrent close.
		var err error
		challenge, err = tx.ShareChallenge(challengeID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotParticipating
		}
		if err != nil {
			return fmt.Errorf("load challenge: %w", err)
		}

		p, err := tx.LockParticipation(challengeID, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotParticipating
		}
		if err != nil {
			return fmt.Errorf("lock participation: %w", err)
		}
		if !s.isOpen(challenge) {
			return ErrChallengeClosed
		}

		wasCompleted := p.Completed
		p.CurrentReps += reps
		p.Completed = wasCompleted || p.CurrentReps >= challenge.TargetReps
		if err := tx.UpdateParticipation(p); err != nil {
			return fmt.Errorf("update participation: %w", err)
		}

		if reps > 0 {
			if _, err := tx.AddUserPoints(userID, int64(reps)); err != nil {
				return fmt.Errorf("credit points: %w", err)
			}
		}

		res = ProgressResult{
			UpdatedReps:   p.CurrentReps,
			Completed:     p.Completed,
			JustCompleted: !wasCompleted && p.Completed,
		}
		if res.JustCompleted {
			if err := awardCompletion(tx, userID, challenge); err != nil {
				return err
			}
			return settleReward(tx, userID, challenge)
		}
		return nil
	})
	timer.ObserveDuration(metrics.LedgerTxDuration, "progress")
	metrics.ProgressSubmissionsTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	exercise := string(challenge.Type)
	metrics.RepsSubmittedTotal.WithLabelValues(exercise).Add(float64(reps))
	log := logging.WithChallenge(s.log, challengeID, userID)
	log.Info().Int("reps", reps).Int("total", res.UpdatedReps).Bool("completed", res.Completed).Msg("progress applied")
	if res.JustCompleted {
		metrics.CompletionsTotal.WithLabelValues(exercise).Inc()
		log.Info().Str("reward", challenge.Reward().StringFixed(2)).Msg("challenge completed")
	}

	s.notifier.Broadcast(challengeUpdate(ActionProgress, map[string]any{
		"challenge_id":   challengeID,
		"user_id":        userID,
		"current_reps":   res.UpdatedReps,
		"completed":      res.Completed,
		"just_completed": res.JustCompleted,
	}))
	return &res, nil
}
