package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction type enums.
const (
	TransactionDeposit     = "deposit"
	TransactionWithdrawal  = "withdrawal"
	TransactionTaskPayment = "task_payment"
	TransactionRefund      = "refund"
	TransactionFee         = "fee"
)

// Transaction status enums.
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// Transaction is an append-only audit record of a wallet movement. The amount
// is always a positive magnitude; the direction is implied by the type.
type Transaction struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	AmountCents int64      `json:"amount_cents"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Description string     `json:"description"`
	JobID       *uuid.UUID `json:"job_id,omitempty"`
	TaskID      *uuid.UUID `json:"task_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
