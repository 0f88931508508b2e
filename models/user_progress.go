package models

import (
	"math"
	"time"
)

// BasePointsPerLevel scales the level curve: level n -> n+1 needs
// BasePointsPerLevel*n + floor(BasePointsPerLevel * n^1.2) points in total.
const BasePointsPerLevel = 100

// pointsForNextLevel returns the increment needed to leave currentLevel.
func pointsForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	return int64(float64(BasePointsPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

// PointsToLeaveLevel is the lifetime points total at which level is left.
func PointsToLeaveLevel(level int) int64 {
	if level < 1 {
		level = 1
	}
	return int64(BasePointsPerLevel)*int64(level) + pointsForNextLevel(level)
}

// LevelForPoints derives a user's level from their lifetime points.
func LevelForPoints(points int64) int {
	level := 1
	for points >= PointsToLeaveLevel(level) {
		level++
	}
	return level
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
