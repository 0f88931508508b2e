package models

import (
	"fmt"
	"time"
)

const AchievementChallengeComplete = "challenge_complete"

// Achievement: unlock record, one per first-time challenge completion
type Achievement struct {
	ID          string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID      string    `gorm:"type:uuid;not null;index" json:"user_id"`
	ChallengeID *string   `gorm:"type:uuid;index" json:"challenge_id,omitempty"`
	Type        string    `gorm:"type:varchar(32);not null" json:"type"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	UnlockedAt  time.Time `gorm:"autoCreateTime" json:"unlocked_at"`

	User *User `json:"-" gorm:"foreignKey:UserID"`
}

// CompletionAchievement builds the unlock granted when a user first reaches
// a challenge's target.
func CompletionAchievement(userID string, c *Challenge) Achievement {
	id := c.ID
	return Achievement{
		UserID:      userID,
		ChallengeID: &id,
		Type:        AchievementChallengeComplete,
		Title:       "Challenge Champion",
		Description: fmt.Sprintf("Completed %s", c.Title),
	}
}
