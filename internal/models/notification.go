package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification event enums.
const (
	NotifyJobApplied     = "job_applied"
	NotifyProofSubmitted = "proof_submitted"
	NotifyTaskReviewed   = "task_reviewed"
)

type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Event     string     `json:"event"`
	Message   string     `json:"message"`
	JobID     *uuid.UUID `json:"job_id,omitempty"`
	TaskID    *uuid.UUID `json:"task_id,omitempty"`
	IsRead    bool       `json:"is_read"`
	CreatedAt time.Time  `json:"created_at"`
}
