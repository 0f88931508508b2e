package services

import (
	"context"
	"testing"
	"time"

	"rep-challenge-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpirySweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	finished := f.challenge(t, alice, func(in *CreateChallengeInput) { in.TargetReps = 3 })
	abandoned := f.challenge(t, alice)
	running := f.challenge(t, alice, func(in *CreateChallengeInput) { in.EndDate = time.Now().Add(72 * time.Hour) })

	_, err := f.ledger.Join(ctx, finished.ID, alice)
	require.NoError(t, err)
	_, err = f.ledger.ApplyProgress(ctx, finished.ID, alice, 3)
	require.NoError(t, err)

	s := NewExpiryScheduler(f.store, f.notifier, time.Minute)
	s.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	statusOf := func(id string) models.ChallengeStatus {
		c, err := f.store.GetChallenge(ctx, id)
		require.NoError(t, err)
		return c.Status
	}
	assert.Equal(t, models.ChallengeStatusCompleted, statusOf(finished.ID))
	assert.Equal(t, models.ChallengeStatusExpired, statusOf(abandoned.ID))
	assert.Equal(t, models.ChallengeStatusActive, statusOf(running.ID))

	actions := f.notifier.actions()
	assert.Equal(t, []string{ActionStatus, ActionStatus}, actions[len(actions)-2:])

	// a second sweep finds nothing left to close
	n, err = s.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExpirySchedulerStartShutdown(t *testing.T) {
	f := newFixture(t)
	s := NewExpiryScheduler(f.store, f.notifier, time.Hour)
	require.NoError(t, s.Start())
	assert.NoError(t, s.Shutdown())

	assert.NoError(t, NewExpiryScheduler(f.store, f.notifier, time.Hour).Shutdown())
}
