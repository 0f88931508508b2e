package models

// Participation = one user's enrollment in one challenge.
// CurrentReps only grows; Completed flips to true once and stays.
type Participation struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID      string `gorm:"type:uuid;not null;uniqueIndex:idx_participation_user_challenge" json:"user_id"`
	ChallengeID string `gorm:"type:uuid;not null;uniqueIndex:idx_participation_user_challenge;index" json:"challenge_id"`

	CurrentReps int  `json:"current_reps" gorm:"not null;default:0"`
	Completed   bool `json:"completed" gorm:"not null;default:false"`

	User      *User      `json:"-" gorm:"foreignKey:UserID"`
	Challenge *Challenge `json:"-" gorm:"foreignKey:ChallengeID"`

	Timestamps
}
