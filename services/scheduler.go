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

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// ExpiryScheduler closes challenges whose end date has passed: completed
// when anyone reached the target, expired otherwise.
type ExpiryScheduler struct {
	store    repository.Store
	notifier Notifier
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger

	sched gocron.Scheduler
}

func NewExpiryScheduler(store repository.Store, notifier Notifier, interval time.Duration) *ExpiryScheduler {
	return &ExpiryScheduler{
		store:    store,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
		log:      logging.WithComponent("scheduler"),
	}
}

func (s *ExpiryScheduler) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			defer cancel()
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Error().Err(err).Msg("expiry sweep failed")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule expiry job: %w", err)
	}
	sched.Start()
	s.sched = sched
	s.log.Info().Dur("interval", s.interval).Msg("expiry scheduler started")
	return nil
}

func (s *ExpiryScheduler) Shutdown() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}

// Sweep closes every overdue challenge and returns how many it closed.
func (s *ExpiryScheduler) Sweep(ctx context.Context) (int, error) {
	due, err := s.store.ExpiredChallenges(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("find expired challenges: %w", err)
	}

	closed := 0
	var errs []error
	for _, c := range due {
		status, err := s.close(ctx, c.ID)
		if err != nil {
			s.log.Error().Err(err).Str("challenge_id", c.ID).Msg("failed to close challenge")
			errs = append(errs, err)
			continue
		}
		if status == "" {
			continue
		}
		closed++
		metrics.ChallengesClosedTotal.WithLabelValues(string(status)).Inc()
		s.log.Info().Str("challenge_id", c.ID).Str("status", string(status)).Msg("challenge closed")
		s.notifier.Broadcast(challengeUpdate(ActionStatus, map[string]any{
			"challenge_id": c.ID,
			"status":       status,
		}))
	}
	return closed, errors.Join(errs...)
}

// close returns the new status, or "" when the challenge was already closed.
func (s *ExpiryScheduler) close(ctx context.Context, id string) (models.ChallengeStatus, error) {
	var status models.ChallengeStatus
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		c, err := tx.LockChallenge(id)
		if err != nil {
			return err
		}
		if c.Status != models.ChallengeStatusActive || c.EndDate.After(s.now()) {
			return nil
		}

		done, err := tx.HasCompletedParticipation(id)
		if err != nil {
			return err
		}
		next := models.ChallengeStatusExpired
		if done {
			next = models.ChallengeStatusCompleted
		}
		if err := tx.UpdateChallengeStatus(id, next); err != nil {
			return err
		}
		status = next
		return nil
	})
	return status, err
}
