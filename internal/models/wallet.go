package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet balances are integer cents. Balance is mutated only through the
// ledger service, never written directly by handlers.
type Wallet struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	BalanceCents int64     `json:"balance_cents"`
	Currency     string    `json:"currency"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
