package models

import (
	"time"
)

// User is the local record of a gateway-authenticated account.
// Identity is owned by the auth/profile services; this service only keeps
// what the ledger and leaderboard need.
type User struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"` // X-User-ID forwarded by the gateway
	Username  string    `gorm:"index;not null" json:"username"`
	Points    int64     `gorm:"not null;default:0;index" json:"points"`
	Level     int       `gorm:"not null;default:1" json:"level"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
	// SyncedAt is the profile service's updated_at for the last mirrored
	// username. Only the sync worker writes it.
	SyncedAt *time.Time `json:"-" gorm:"index"`
}

// LeaderboardEntry is the public projection of a user on the leaderboard.
type LeaderboardEntry struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Points   int64  `json:"points"`
	Level    int    `json:"level"`
}
