package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"rep-challenge-system/models"
	"rep-challenge-system/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Envelope
}

func (n *recordingNotifier) Broadcast(env Envelope) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, env)
}

func (n *recordingNotifier) actions() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Payload["action"].(string))
	}
	return out
}

type fixture struct {
	store      repository.Store
	notifier   *recordingNotifier
	ledger     *LedgerService
	challenges *ChallengeService
	users      *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, repository.NewMemoryStore())
}

func newFixtureOn(t *testing.T, store repository.Store) *fixture {
	t.Helper()
	n := &recordingNotifier{}
	return &fixture{
		store:      store,
		notifier:   n,
		ledger:     NewLedgerService(store, n),
		challenges: NewChallengeService(store, n),
		users:      NewUserService(store),
	}
}

// faultyStore runs transactions on a real store but fails the chosen writes.
type faultyStore struct {
	repository.Store
	txErr          error
	achievementErr error
}

func (s *faultyStore) RunInTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.Store.RunInTx(ctx, func(tx repository.Tx) error {
		return fn(&faultyTx{Tx: tx, store: s})
	})
}

type faultyTx struct {
	repository.Tx
	store *faultyStore
}

func (t *faultyTx) CreateTransaction(tr *models.Transaction) error {
	if t.store.txErr != nil {
		return t.store.txErr
	}
	return t.Tx.CreateTransaction(tr)
}

func (t *faultyTx) CreateAchievement(a *models.Achievement) error {
	if t.store.achievementErr != nil {
		return t.store.achievementErr
	}
	return t.Tx.CreateAchievement(a)
}

func (f *fixture) user(t *testing.T, name string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := f.users.EnsureUser(context.Background(), id, name)
	require.NoError(t, err)
	return id
}

func validInput() CreateChallengeInput {
	return CreateChallengeInput{
		Title:       "100 Pushups",
		Description: "Do them before Friday",
		Type:        models.ExercisePushup,
		TargetReps:  100,
		BetAmount:   decimal.RequireFromString("10.00"),
		EndDate:     time.Now().Add(24 * time.Hour),
	}
}

func (f *fixture) challenge(t *testing.T, creator string, mutate ...func(*CreateChallengeInput)) *models.Challenge {
	t.Helper()
	in := validInput()
	for _, m := range mutate {
		m(&in)
	}
	c, err := f.challenges.Create(context.Background(), creator, in)
	require.NoError(t, err)
	return c
}
