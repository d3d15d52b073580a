package models

import (
	"time"

	"github.com/google/uuid"
)

// Job status enums.
const (
	JobStatusActive    = "active"
	JobStatusPaused    = "paused"
	JobStatusCompleted = "completed"
	JobStatusCancelled = "cancelled"
)

// Job difficulty enums.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// MinPaymentPerTaskCents is the lowest payment a job may offer per task (10 cents).
const MinPaymentPerTaskCents int64 = 10

// ServiceFeePercent is the surcharge advertisers pay on top of worker payments.
// The same rate is applied when unused spots are refunded.
const ServiceFeePercent int64 = 5

// ServiceFee returns the fee in cents for the given base amount.
func ServiceFee(amountCents int64) int64 {
	return amountCents * ServiceFeePercent / 100
}

type Job struct {
	ID                  uuid.UUID  `json:"id"`
	AdvertiserID        uuid.UUID  `json:"advertiser_id"`
	CategoryID          uuid.UUID  `json:"category_id"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	Instructions        string     `json:"instructions"`
	PaymentPerTaskCents int64      `json:"payment_per_task_cents"`
	MaxWorkers          int        `json:"max_workers"`
	RemainingSpots      int        `json:"remaining_spots"`
	ProofRequired       string     `json:"proof_required"`
	Difficulty          string     `json:"difficulty"`
	EstimatedTime       *string    `json:"estimated_time,omitempty"`
	Status              string     `json:"status"`
	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
