package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"rep-challenge-system/models"
)

// MemoryStore keeps everything in process. RunInTx holds a single lock for
// the whole callback and applies changes only when it returns nil.
type MemoryStore struct {
	mu   sync.Mutex
	data memData
	now  func() time.Time
}

type memData struct {
	users          map[string]models.User
	challenges     map[string]models.Challenge
	participations map[string]models.Participation // challengeID/userID
	achievements   []models.Achievement
	transactions   []models.Transaction
}

func participationKey(challengeID, userID string) string {
	return challengeID + "/" + userID
}

func (d memData) clone() memData {
	out := memData{
		users:          make(map[string]models.User, len(d.users)),
		challenges:     make(map[string]models.Challenge, len(d.challenges)),
		participations: make(map[string]models.Participation, len(d.participations)),
		achievements:   append([]models.Achievement(nil), d.achievements...),
		transactions:   append([]models.Transaction(nil), d.transactions...),
	}
	for k, v := range d.users {
		out.users[k] = v
	}
	for k, v := range d.challenges {
		out.challenges[k] = v
	}
	for k, v := range d.participations {
		out.participations[k] = v
	}
	return out
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: memData{}.clone(),
		now:  time.Now,
	}
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{data: s.data.clone(), now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func (s *MemoryStore) GetChallenge(_ context.Context, id string) (*models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data.challenges[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.Participations = nil
	for _, p := range s.data.participations {
		if p.ChallengeID == id {
			c.Participations = append(c.Participations, p)
		}
	}
	sort.Slice(c.Participations, func(i, j int) bool {
		return c.Participations[i].CurrentReps > c.Participations[j].CurrentReps
	})
	return &c, nil
}

func (s *MemoryStore) ListChallenges(_ context.Context, f ChallengeFilter) ([]models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Challenge, 0, len(s.data.challenges))
	for _, c := range s.data.challenges {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.Type != "" && c.Type != f.Type {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryStore) ExpiredChallenges(_ context.Context, now time.Time) ([]models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Challenge
	for _, c := range s.data.challenges {
		if c.Status == models.ChallengeStatusActive && !c.EndDate.After(now) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out, nil
}

func (s *MemoryStore) Leaderboard(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.LeaderboardEntry, 0, len(s.data.users))
	for _, u := range s.data.users {
		out = append(out, models.LeaderboardEntry{ID: u.ID, Username: u.Username, Points: u.Points, Level: u.Level})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].Username < out[j].Username
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListAchievements(_ context.Context, userID string) ([]models.Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Achievement
	for i := len(s.data.achievements) - 1; i >= 0; i-- {
		if a := s.data.achievements[i]; a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, userID string) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for i := len(s.data.transactions) - 1; i >= 0; i-- {
		if t := s.data.transactions[i]; t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *MemoryStore) EnsureUser(_ context.Context, id, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.data.users[id]; ok {
		return &u, nil
	}
	now := s.now()
	u := models.User{ID: id, Username: username, Level: 1, CreatedAt: now, UpdatedAt: now}
	s.data.users[id] = u
	return &u, nil
}

func (s *MemoryStore) UpsertUsernames(_ context.Context, users []models.User) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for _, in := range users {
		u, ok := s.data.users[in.ID]
		if !ok {
			u = models.User{ID: in.ID, Level: 1, CreatedAt: now}
		}
		u.Username = in.Username
		u.UpdatedAt = now
		if in.SyncedAt != nil {
			synced := *in.SyncedAt
			u.SyncedAt = &synced
		}
		s.data.users[in.ID] = u
	}
	return len(users), nil
}

func (s *MemoryStore) LastProfileSync(_ context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last time.Time
	for _, u := range s.data.users {
		if u.SyncedAt != nil && u.SyncedAt.After(last) {
			last = *u.SyncedAt
		}
	}
	return last, nil
}

type memTx struct {
	data memData
	now  func() time.Time
}

func (t *memTx) LockChallenge(id string) (*models.Challenge, error) {
	return t.challenge(id)
}

func (t *memTx) ShareChallenge(id string) (*models.Challenge, error) {
	return t.challenge(id)
}

func (t *memTx) challenge(id string) (*models.Challenge, error) {
	c, ok := t.data.challenges[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (t *memTx) CreateChallenge(c *models.Challenge) error {
	if _, ok := t.data.challenges[c.ID]; ok {
		return ErrDuplicate
	}
	now := t.now()
	c.CreatedAt, c.UpdatedAt = now, now
	stored := *c
	stored.Participations = nil
	stored.Creator = nil
	t.data.challenges[c.ID] = stored
	return nil
}

func (t *memTx) UpdateChallengeStatus(id string, status models.ChallengeStatus) error {
	c, ok := t.data.challenges[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = t.now()
	t.data.challenges[id] = c
	return nil
}

func (t *memTx) LockParticipation(challengeID, userID string) (*models.Participation, error) {
	p, ok := t.data.participations[participationKey(challengeID, userID)]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (t *memTx) CreateParticipation(p *models.Participation) error {
	key := participationKey(p.ChallengeID, p.UserID)
	if _, ok := t.data.participations[key]; ok {
		return ErrDuplicate
	}
	now := t.now()
	p.CreatedAt, p.UpdatedAt = now, now
	t.data.participations[key] = *p
	return nil
}

func (t *memTx) UpdateParticipation(p *models.Participation) error {
	key := participationKey(p.ChallengeID, p.UserID)
	cur, ok := t.data.participations[key]
	if !ok {
		return ErrNotFound
	}
	cur.CurrentReps = p.CurrentReps
	cur.Completed = p.Completed
	cur.UpdatedAt = t.now()
	t.data.participations[key] = cur
	return nil
}

func (t *memTx) HasCompletedParticipation(challengeID string) (bool, error) {
	for _, p := range t.data.participations {
		if p.ChallengeID == challengeID && p.Completed {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CreateTransaction(tr *models.Transaction) error {
	tr.CreatedAt = t.now()
	t.data.transactions = append(t.data.transactions, *tr)
	return nil
}

func (t *memTx) CreateAchievement(a *models.Achievement) error {
	a.UnlockedAt = t.now()
	t.data.achievements = append(t.data.achievements, *a)
	return nil
}

func (t *memTx) AddUserPoints(userID string, delta int64) (*models.User, error) {
	u, ok := t.data.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	u.Points += delta
	u.Level = models.LevelForPoints(u.Points)
	u.UpdatedAt = t.now()
	t.data.users[userID] = u
	return &u, nil
}
