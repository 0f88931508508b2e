package services

import (
	"context"
	"fmt"
	"strings"

	"rep-challenge-system/models"
	"rep-challenge-system/repository"
)

type UserService struct {
	store repository.Store
}

func NewUserService(store repository.Store) *UserService {
	return &UserService{store: store}
}

// EnsureUser provisions the local row for a gateway identity (idempotent).
// A missing username falls back to a short form of the id.
func (s *UserService) EnsureUser(ctx context.Context, id, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		username = "user-" + strings.SplitN(id, "-", 2)[0]
	}
	u, err := s.store.EnsureUser(ctx, id, username)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return u, nil
}
