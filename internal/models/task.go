package models

import (
	"time"

	"github.com/google/uuid"
)

// Task status enums. The lifecycle is strictly linear:
// pending -> submitted -> (approved | rejected). Approved and rejected are terminal.
const (
	TaskStatusPending   = "pending"
	TaskStatusSubmitted = "submitted"
	TaskStatusApproved  = "approved"
	TaskStatusRejected  = "rejected"
)

type Task struct {
	ID          uuid.UUID  `json:"id"`
	JobID       uuid.UUID  `json:"job_id"`
	WorkerID    uuid.UUID  `json:"worker_id"`
	Status      string     `json:"status"`
	Proof       *string    `json:"proof,omitempty"`
	Feedback    *string    `json:"feedback,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
