package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes stakes from payouts
type TransactionType string

const (
	TransactionTypeBet    TransactionType = "bet"
	TransactionTypeReward TransactionType = "reward"
)

// TransactionStatus tracks settlement of a ledger entry
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
)

// Transaction is a stake or payout tied to a user and a challenge.
type Transaction struct {
	ID          string            `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID      string            `gorm:"type:uuid;not null;index" json:"user_id"`
	ChallengeID string            `gorm:"type:uuid;not null;index" json:"challenge_id"`
	Amount      decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"amount"`
	Type        TransactionType   `gorm:"type:varchar(16);not null" json:"type"`
	Status      TransactionStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	CreatedAt   time.Time         `json:"created_at" gorm:"autoCreateTime"`

	User      *User      `json:"-" gorm:"foreignKey:UserID"`
	Challenge *Challenge `json:"-" gorm:"foreignKey:ChallengeID"`
}
