package services

import (
	"context"
	"fmt"

	"rep-challenge-system/models"
	"rep-challenge-system/repository"

	"github.com/google/uuid"
)

type AchievementService struct {
	store repository.Store
}

func NewAchievementService(store repository.Store) *AchievementService {
	return &AchievementService{store: store}
}

// ForUser lists a user's unlocks, newest first.
func (s *AchievementService) ForUser(ctx context.Context, userID string) ([]models.Achievement, error) {
	out, err := s.store.ListAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	if out == nil {
		out = []models.Achievement{}
	}
	return out, nil
}

// awardCompletion records the unlock for a first-time completion.
func awardCompletion(tx repository.Tx, userID string, c *models.Challenge) error {
	a := models.CompletionAchievement(userID, c)
	a.ID = uuid.NewString()
	if err := tx.CreateAchievement(&a); err != nil {
		return fmt.Errorf("create achievement: %w", err)
	}
	return nil
}
