package models

import (
	"time"

	"github.com/google/uuid"
)

// Job list sort options.
const (
	SortNewest      = "newest"
	SortOldest      = "oldest"
	SortPaymentHigh = "payment_high"
	SortPaymentLow  = "payment_low"
)

// JobFilter narrows and pages the public job listing.
type JobFilter struct {
	CategoryID      *uuid.UUID
	Difficulty      string
	MinPaymentCents *int64
	MaxPaymentCents *int64
	Status          string
	SortBy          string
	Page            int
	Limit           int
}

// JobListing is a job row joined with advertiser and category names.
type JobListing struct {
	ID                  uuid.UUID `json:"id"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	PaymentPerTaskCents int64     `json:"payment_per_task_cents"`
	MaxWorkers          int       `json:"max_workers"`
	RemainingSpots      int       `json:"remaining_spots"`
	Difficulty          string    `json:"difficulty"`
	EstimatedTime       *string   `json:"estimated_time,omitempty"`
	Status              string    `json:"status"`
	AdvertiserName      string    `json:"advertiser_name"`
	CategoryName        string    `json:"category_name"`
	CreatedAt           time.Time `json:"created_at"`
}

// JobDetail is the full public view of a single job.
type JobDetail struct {
	Job
	AdvertiserName string `json:"advertiser_name"`
	CategoryName   string `json:"category_name"`
}

// Applicant is a task row joined with its worker for the owner's review screen.
type Applicant struct {
	TaskID      uuid.UUID  `json:"task_id"`
	WorkerID    uuid.UUID  `json:"worker_id"`
	WorkerName  string     `json:"worker_name"`
	Status      string     `json:"status"`
	Proof       *string    `json:"proof,omitempty"`
	Feedback    *string    `json:"feedback,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TaskStatusCounts aggregates a job's tasks by status.
type TaskStatusCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Submitted int `json:"submitted"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
}

// JobStats is the owner-facing progress summary for a job.
type JobStats struct {
	TotalSpots           int              `json:"total_spots"`
	RemainingSpots       int              `json:"remaining_spots"`
	TakenSpots           int              `json:"taken_spots"`
	TaskStats            TaskStatusCounts `json:"task_stats"`
	CompletionPercentage int              `json:"completion_percentage"`
}
