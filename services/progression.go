package services

import (
	"context"

	"rep-challenge-system/models"
)

// Profile is the caller's standing on the level curve.
type Profile struct {
	models.User
	NextLevelPoints int64 `json:"next_level_points"`
}

// Profile returns the caller with the points total that unlocks the next level.
func (s *UserService) Profile(ctx context.Context, id, username string) (*Profile, error) {
	u, err := s.EnsureUser(ctx, id, username)
	if err != nil {
		return nil, err
	}
	return &Profile{User: *u, NextLevelPoints: models.PointsToLeaveLevel(u.Level)}, nil
}
