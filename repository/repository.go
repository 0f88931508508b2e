// Package repository is the persistence boundary for challenges, their
// participations and the ledger rows written alongside them.
package repository

import (
	"context"
	"errors"
	"time"

	"rep-challenge-system/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// ChallengeFilter narrows ListChallenges. Zero values match everything.
type ChallengeFilter struct {
	Status models.ChallengeStatus
	Type   models.ExerciseType
	Limit  int
}

// Store is implemented by GormStore and MemoryStore.
//
// Callbacks passed to RunInTx must only use the Tx they are given.
type Store interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error

	GetChallenge(ctx context.Context, id string) (*models.Challenge, error)
	ListChallenges(ctx context.Context, f ChallengeFilter) ([]models.Challenge, error)
	// ExpiredChallenges returns active challenges whose end date is not after now.
	ExpiredChallenges(ctx context.Context, now time.Time) ([]models.Challenge, error)

	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	ListAchievements(ctx context.Context, userID string) ([]models.Achievement, error)
	ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error)

	// EnsureUser returns the user, creating it with username when missing.
	EnsureUser(ctx context.Context, id, username string) (*models.User, error)
	// UpsertUsernames creates users or refreshes their username and
	// SyncedAt. Points and level are never touched. Returns how many rows
	// were written.
	UpsertUsernames(ctx context.Context, users []models.User) (int, error)
	// LastProfileSync is the newest SyncedAt, zero when nothing was synced.
	LastProfileSync(ctx context.Context) (time.Time, error)
}

// Tx is the unit of work handed to RunInTx. Lock* methods hold the row
// until the transaction ends.
type Tx interface {
	LockChallenge(id string) (*models.Challenge, error)
	// ShareChallenge holds a shared lock: status changes wait for it, other
	// sharers do not.
	ShareChallenge(id string) (*models.Challenge, error)
	CreateChallenge(c *models.Challenge) error
	UpdateChallengeStatus(id string, status models.ChallengeStatus) error

	LockParticipation(challengeID, userID string) (*models.Participation, error)
	CreateParticipation(p *models.Participation) error
	UpdateParticipation(p *models.Participation) error
	HasCompletedParticipation(challengeID string) (bool, error)

	CreateTransaction(t *models.Transaction) error
	CreateAchievement(a *models.Achievement) error

	// AddUserPoints credits delta points and recomputes the level.
	AddUserPoints(userID string, delta int64) (*models.User, error)
}
