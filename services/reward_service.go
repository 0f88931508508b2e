package services

import (
	"context"
	"fmt"

	"rep-challenge-system/models"
	"rep-challenge-system/repository"

	"github.com/google/uuid"
)

// TransactionService exposes the stake and payout history.
type TransactionService struct {
	store repository.Store
}

func NewTransactionService(store repository.Store) *TransactionService {
	return &TransactionService{store: store}
}

func (s *TransactionService) ForUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	out, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if out == nil {
		out = []models.Transaction{}
	}
	return out, nil
}

// placeBet records the stake taken on join. It stays pending until settlement.
func placeBet(tx repository.Tx, userID string, c *models.Challenge) error {
	bet := models.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		ChallengeID: c.ID,
		Amount:      c.BetAmount,
		Type:        models.TransactionTypeBet,
		Status:      models.TransactionStatusPending,
	}
	if err := tx.CreateTransaction(&bet); err != nil {
		return fmt.Errorf("create bet transaction: %w", err)
	}
	return nil
}

// settleReward pays out twice the stake on first completion.
func settleReward(tx repository.Tx, userID string, c *models.Challenge) error {
	reward := models.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		ChallengeID: c.ID,
		Amount:      c.Reward(),
		Type:        models.TransactionTypeReward,
		Status:      models.TransactionStatusCompleted,
	}
	if err := tx.CreateTransaction(&reward); err != nil {
		return fmt.Errorf("create reward transaction: %w", err)
	}
	return nil
}
