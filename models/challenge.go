package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ExerciseType string

const (
	ExercisePushup ExerciseType = "pushup"
	ExerciseSquat  ExerciseType = "squat"
	ExerciseSitup  ExerciseType = "situp"
)

// Valid reports whether t is one of the supported exercises.
func (t ExerciseType) Valid() bool {
	switch t {
	case ExercisePushup, ExerciseSquat, ExerciseSitup:
		return true
	}
	return false
}

type ChallengeStatus string

const (
	ChallengeStatusActive    ChallengeStatus = "active"
	ChallengeStatusCompleted ChallengeStatus = "completed"
	ChallengeStatusExpired   ChallengeStatus = "expired"
)

const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

const (
	VerificationCamera   = "camera"
	VerificationWearable = "wearable"
	VerificationManual   = "manual"
)

// Challenge is a rep target with a wager. Status only moves server-side:
// active -> completed | expired.
type Challenge struct {
	ID                 string          `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CreatorID          string          `json:"creator_id" gorm:"type:uuid;not null;index"`
	Title              string          `json:"title" gorm:"not null"`
	Slug               string          `json:"slug" gorm:"index"`
	Description        string          `json:"description" gorm:"type:text;not null"`
	Type               ExerciseType    `json:"type" gorm:"type:varchar(16);not null"`
	TargetReps         int             `json:"target_reps" gorm:"not null"`
	BetAmount          decimal.Decimal `json:"bet_amount" gorm:"type:numeric(12,2);not null"`
	Visibility         string          `json:"visibility" gorm:"type:varchar(16);not null;default:'public'"`
	TeamSize           int             `json:"team_size" gorm:"not null;default:1"`
	VerificationMethod string          `json:"verification_method" gorm:"type:varchar(16);not null;default:'camera'"`
	Status             ChallengeStatus `json:"status" gorm:"type:varchar(16);not null;default:'active';index"`
	EndDate            time.Time       `json:"end_date" gorm:"not null;index"`

	Creator        *User           `json:"-" gorm:"foreignKey:CreatorID"`
	Participations []Participation `json:"participations,omitempty" gorm:"foreignKey:ChallengeID"`

	Timestamps
}

// Reward is the payout owed on first completion: twice the stake.
func (c *Challenge) Reward() decimal.Decimal {
	return c.BetAmount.Mul(decimal.NewFromInt(2))
}
