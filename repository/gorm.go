package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rep-challenge-system/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres with driver errors translated, so unique
// violations surface as gorm.ErrDuplicatedKey.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the five tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Challenge{},
		&models.Participation{},
		&models.Achievement{},
		&models.Transaction{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func (s *GormStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

func (s *GormStore) GetChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	var c models.Challenge
	err := s.DB.WithContext(ctx).
		Preload("Participations", func(db *gorm.DB) *gorm.DB {
			return db.Order("current_reps DESC")
		}).
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *GormStore) ListChallenges(ctx context.Context, f ChallengeFilter) ([]models.Challenge, error) {
	db := s.DB.WithContext(ctx).Model(&models.Challenge{}).Order("created_at DESC")
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		db = db.Where("type = ?", f.Type)
	}
	if f.Limit > 0 {
		db = db.Limit(f.Limit)
	}
	var out []models.Challenge
	if err := db.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) ExpiredChallenges(ctx context.Context, now time.Time) ([]models.Challenge, error) {
	var out []models.Challenge
	err := s.DB.WithContext(ctx).
		Where("status = ? AND end_date <= ?", models.ChallengeStatusActive, now).
		Order("end_date ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	var out []models.LeaderboardEntry
	err := s.DB.WithContext(ctx).
		Model(&models.User{}).
		Select("id, username, points, level").
		Order("points DESC").
		Order("username ASC").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) ListAchievements(ctx context.Context, userID string) ([]models.Achievement, error) {
	var out []models.Achievement
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("unlocked_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	var out []models.Transaction
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) EnsureUser(ctx context.Context, id, username string) (*models.User, error) {
	u := models.User{ID: id, Username: username, Level: 1}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&u).Error
	if err != nil {
		return nil, err
	}
	var out models.User
	if err := s.DB.WithContext(ctx).First(&out, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (s *GormStore) UpsertUsernames(ctx context.Context, users []models.User) (int, error) {
	n := 0
	for i := range users {
		u := users[i]
		if u.Level == 0 {
			u.Level = 1
		}
		err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "synced_at", "updated_at"}),
		}).Create(&u).Error
		if err != nil {
			return n, fmt.Errorf("upsert user %s: %w", u.ID, err)
		}
		n++
	}
	return n, nil
}

func (s *GormStore) LastProfileSync(ctx context.Context) (time.Time, error) {
	var last *time.Time
	err := s.DB.WithContext(ctx).Raw("SELECT MAX(synced_at) FROM users").Scan(&last).Error
	if err != nil {
		return time.Time{}, err
	}
	if last == nil {
		return time.Time{}, nil
	}
	return *last, nil
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) LockChallenge(id string) (*models.Challenge, error) {
	var c models.Challenge
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (t *gormTx) ShareChallenge(id string) (*models.Challenge, error) {
	var c models.Challenge
	err := t.db.Clauses(clause.Locking{Strength: "SHARE"}).First(&c, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (t *gormTx) CreateChallenge(c *models.Challenge) error {
	return translate(t.db.Create(c).Error)
}

func (t *gormTx) UpdateChallengeStatus(id string, status models.ChallengeStatus) error {
	res := t.db.Model(&models.Challenge{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *gormTx) LockParticipation(challengeID, userID string) (*models.Participation, error) {
	var p models.Participation
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (t *gormTx) CreateParticipation(p *models.Participation) error {
	return translate(t.db.Create(p).Error)
}

func (t *gormTx) UpdateParticipation(p *models.Participation) error {
	return t.db.Model(p).Updates(map[string]any{
		"current_reps": p.CurrentReps,
		"completed":    p.Completed,
	}).Error
}

func (t *gormTx) HasCompletedParticipation(challengeID string) (bool, error) {
	var n int64
	err := t.db.Model(&models.Participation{}).
		Where("challenge_id = ? AND completed = ?", challengeID, true).
		Count(&n).Error
	return n > 0, err
}

func (t *gormTx) CreateTransaction(tr *models.Transaction) error {
	return translate(t.db.Create(tr).Error)
}

func (t *gormTx) CreateAchievement(a *models.Achievement) error {
	return translate(t.db.Create(a).Error)
}

func (t *gormTx) AddUserPoints(userID string, delta int64) (*models.User, error) {
	var u models.User
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, "id = ?", userID).Error
	if err != nil {
		return nil, translate(err)
	}
	u.Points += delta
	u.Level = models.LevelForPoints(u.Points)
	err = t.db.Model(&u).Updates(map[string]any{
		"points": u.Points,
		"level":  u.Level,
	}).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}
