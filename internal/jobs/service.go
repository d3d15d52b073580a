// Package jobs owns the job/task/wallet workflow: how money and task state
// move between advertisers and workers. Every multi-step mutation runs inside
// a single transaction; notifications fire only after commit.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taskhub/backend/internal/models"
	"github.com/taskhub/backend/internal/notify"
	"github.com/taskhub/backend/internal/taskerr"
)

// Caller is the already-authenticated identity invoking an operation.
type Caller struct {
	ID   uuid.UUID
	Role string
}

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// JobStore is the job repository interface the workflow needs.
type JobStore interface {
	InsertTx(ctx context.Context, tx pgx.Tx, j *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Job, error)
	UpdateTx(ctx context.Context, tx pgx.Tx, j *models.Job) error
	DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	TakeSpot(ctx context.Context, tx pgx.Tx, jobID uuid.UUID) (bool, error)
	List(ctx context.Context, f models.JobFilter) ([]*models.JobListing, int, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*models.JobDetail, error)
}

// TaskStore is the task repository interface the workflow needs.
type TaskStore interface {
	InsertTx(ctx context.Context, tx pgx.Tx, t *models.Task) error
	GetByJobAndID(ctx context.Context, jobID, taskID uuid.UUID) (*models.Task, error)
	FindByJobAndWorker(ctx context.Context, jobID, workerID uuid.UUID) (*models.Task, error)
	MarkSubmitted(ctx context.Context, jobID, taskID uuid.UUID, proof string) (*models.Task, error)
	MarkReviewedTx(ctx context.Context, tx pgx.Tx, jobID, taskID uuid.UUID, decision string, feedback *string) (*models.Task, error)
	CountByJob(ctx context.Context, jobID uuid.UUID) (int, error)
	CountByJobAndStatus(ctx context.Context, jobID uuid.UUID, status string) (int, error)
	StatusCounts(ctx context.Context, jobID uuid.UUID) (models.TaskStatusCounts, error)
	ListByJob(ctx context.Context, jobID uuid.UUID, status string, page, limit int) ([]*models.Applicant, int, error)
}

// Ledger is the wallet mutation interface the workflow needs.
type Ledger interface {
	ChargeJobFunding(ctx context.Context, tx pgx.Tx, advertiserID, jobID uuid.UUID, totalCents int64, description string) error
	RefundJobSpots(ctx context.Context, tx pgx.Tx, advertiserID, jobID uuid.UUID, totalCents int64, description string) error
	PayWorker(ctx context.Context, tx pgx.Tx, workerID, jobID, taskID uuid.UUID, amountCents int64) error
}

// CreateJobParams carries the validated fields for a new job.
type CreateJobParams struct {
	CategoryID          uuid.UUID
	Title               string
	Description         string
	Instructions        string
	PaymentPerTaskCents int64
	MaxWorkers          int
	ProofRequired       string
	Difficulty          string
	EstimatedTime       *string
	ExpiresAt           *time.Time
}

// UpdateJobPatch carries optional field updates; nil means "leave unchanged".
type UpdateJobPatch struct {
	CategoryID    *uuid.UUID
	Title         *string
	Description   *string
	Instructions  *string
	ProofRequired *string
	Difficulty    *string
	EstimatedTime *string
	Status        *string
	ExpiresAt     *time.Time
	MaxWorkers    *int
}

// JobView is the public job detail plus the viewer's own task, if any.
type JobView struct {
	models.JobDetail
	UserTask *models.Task `json:"user_task,omitempty"`
}

type Service interface {
	CreateJob(ctx context.Context, advertiserID uuid.UUID, p CreateJobParams) (*models.Job, error)
	GetJob(ctx context.Context, jobID uuid.UUID, viewerID *uuid.UUID) (*JobView, error)
	UpdateJob(ctx context.Context, jobID uuid.UUID, caller Caller, patch UpdateJobPatch) (*models.Job, error)
	DeleteJob(ctx context.Context, jobID uuid.UUID, caller Caller) error
	ApplyForJob(ctx context.Context, jobID, workerID uuid.UUID) (*models.Task, error)
	SubmitProof(ctx context.Context, jobID, taskID, workerID uuid.UUID, proof string) (*models.Task, error)
	ReviewTask(ctx context.Context, jobID, taskID uuid.UUID, caller Caller, decision string, feedback *string) (*models.Task, error)
	ListJobs(ctx context.Context, f models.JobFilter) ([]*models.JobListing, int, error)
	ListApplicants(ctx context.Context, jobID uuid.UUID, caller Caller, status string, page, limit int) ([]*models.Applicant, int, error)
	JobStatistics(ctx context.Context, jobID uuid.UUID, caller Caller) (*models.JobStats, error)
}

type service struct {
	db       TxBeginner
	jobs     JobStore
	tasks    TaskStore
	ledger   Ledger
	notifier notify.Notifier
}

func NewService(db TxBeginner, jobs JobStore, tasks TaskStore, ledger Ledger, notifier notify.Notifier) Service {
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	return &service{db: db, jobs: jobs, tasks: tasks, ledger: ledger, notifier: notifier}
}

var _ Service = (*service)(nil)

// authorize allows the job owner and admins, nobody else.
func authorize(caller Caller, ownerID uuid.UUID) error {
	if caller.ID == ownerID || caller.Role == models.RoleAdmin {
		return nil
	}
	return taskerr.Forbidden("you are not authorized to manage this job")
}

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *service) CreateJob(ctx context.Context, advertiserID uuid.UUID, p CreateJobParams) (*models.Job, error) {
	if p.PaymentPerTaskCents < models.MinPaymentPerTaskCents {
		return nil, taskerr.InvalidState("payment per task must be at least %d cents", models.MinPaymentPerTaskCents)
	}
	if p.MaxWorkers < 1 {
		return nil, taskerr.InvalidState("maximum workers must be at least 1")
	}

	totalCost := p.PaymentPerTaskCents * int64(p.MaxWorkers)
	fee := models.ServiceFee(totalCost)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	job := &models.Job{
		ID:                  uuid.New(),
		AdvertiserID:        advertiserID,
		CategoryID:          p.CategoryID,
		Title:               p.Title,
		Description:         p.Description,
		Instructions:        p.Instructions,
		PaymentPerTaskCents: p.PaymentPerTaskCents,
		MaxWorkers:          p.MaxWorkers,
		RemainingSpots:      p.MaxWorkers,
		ProofRequired:       p.ProofRequired,
		Difficulty:          p.Difficulty,
		EstimatedTime:       p.EstimatedTime,
		Status:              models.JobStatusActive,
		ExpiresAt:           p.ExpiresAt,
	}
	if err := s.jobs.InsertTx(ctx, tx, job); err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("Payment for job: %s (%d tasks at %d cents each + %d cents service fee)",
		p.Title, p.MaxWorkers, p.PaymentPerTaskCents, fee)
	if err := s.ledger.ChargeJobFunding(ctx, tx, advertiserID, job.ID, totalCost+fee, desc); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *service) GetJob(ctx context.Context, jobID uuid.UUID, viewerID *uuid.UUID) (*JobView, error) {
	detail, err := s.jobs.GetDetail(ctx, jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, taskerr.NotFound("job not found")
		}
		return nil, err
	}
	view := &JobView{JobDetail: *detail}
	if viewerID != nil {
		task, err := s.tasks.FindByJobAndWorker(ctx, jobID, *viewerID)
		if err != nil {
			return nil, err
		}
		view.UserTask = task
	}
	return view, nil
}

func (s *service) UpdateJob(ctx context.Context, jobID uuid.UUID, caller Caller, patch UpdateJobPatch) (*models.Job, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	job, err := s.jobs.GetByIDForUpdate(ctx, tx, jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, taskerr.NotFound("job not found")
		}
		return nil, err
	}
	if err := authorize(caller, job.AdvertiserID); err != nil {
		return nil, err
	}

	if patch.CategoryID != nil {
		job.CategoryID = *patch.CategoryID
	}
	if patch.Title != nil {
		job.Title = *patch.Title
	}
	if patch.Description != nil {
		job.Description = *patch.Description
	}
	if patch.Instructions != nil {
		job.Instructions = *patch.Instructions
	}
	if patch.ProofRequired != nil {
		job.ProofRequired = *patch.ProofRequired
	}
	if patch.Difficulty != nil {
		job.Difficulty = *patch.Difficulty
	}
	if patch.EstimatedTime != nil {
		job.EstimatedTime = patch.EstimatedTime
	}
	if patch.Status != nil {
		job.Status = *patch.Status
	}
	if patch.ExpiresAt != nil {
		job.ExpiresAt = patch.ExpiresAt
	}

	if patch.MaxWorkers != nil && *patch.MaxWorkers != job.MaxWorkers {
		newMax := *patch.MaxWorkers
		if newMax < 1 {
			return nil, taskerr.InvalidState("maximum workers must be at least 1")
		}
		delta := newMax - job.MaxWorkers
		if delta > 0 {
			addCost := job.PaymentPerTaskCents * int64(delta)
			fee := models.ServiceFee(addCost)
			desc := fmt.Sprintf("Payment for additional %d worker spots for job: %s (%d cents each + %d cents service fee)",
				delta, job.Title, job.PaymentPerTaskCents, fee)
			if err := s.ledger.ChargeJobFunding(ctx, tx, job.AdvertiserID, job.ID, addCost+fee, desc); err != nil {
				return nil, err
			}
			job.MaxWorkers = newMax
			job.RemainingSpots += delta
		} else {
			assigned, err := s.tasks.CountByJob(ctx, jobID)
			if err != nil {
				return nil, err
			}
			if assigned > 0 {
				return nil, taskerr.InvalidState("cannot reduce maximum workers after tasks have been assigned")
			}
			job.MaxWorkers = newMax
			job.RemainingSpots = newMax
		}
	}

	if err := s.jobs.UpdateTx(ctx, tx, job); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *service) DeleteJob(ctx context.Context, jobID uuid.UUID, caller Caller) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	job, err := s.jobs.GetByIDForUpdate(ctx, tx, jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return taskerr.NotFound("job not found")
		}
		return err
	}
	if err := authorize(caller, job.AdvertiserID); err != nil {
		return err
	}

	approved, err := s.tasks.CountByJobAndStatus(ctx, jobID, models.TaskStatusApproved)
	if err != nil {
		return err
	}
	if approved > 0 {
		return taskerr.InvalidState("cannot delete a job with approved tasks")
	}

	// Unused capacity is refunded at the full charged rate, fee included.
	base := job.PaymentPerTaskCents * int64(job.RemainingSpots)
	total := base + models.ServiceFee(base)
	if total > 0 {
		desc := fmt.Sprintf("Refund for deleted job: %s (%d unused spots)", job.Title, job.RemainingSpots)
		if err := s.ledger.RefundJobSpots(ctx, tx, job.AdvertiserID, job.ID, total, desc); err != nil {
			return err
		}
	}

	if err := s.jobs.DeleteTx(ctx, tx, jobID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *service) ApplyForJob(ctx context.Context, jobID, workerID uuid.UUID) (*models.Task, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, taskerr.NotFound("job not found or not active")
		}
		return nil, err
	}
	if job.Status != models.JobStatusActive {
		return nil, taskerr.NotFound("job not found or not active")
	}
	if job.AdvertiserID == workerID {
		return nil, taskerr.InvalidState("cannot apply to your own job")
	}
	if job.RemainingSpots <= 0 {
		return nil, taskerr.NoCapacity("no spots remaining for this job")
	}
	existing, err := s.tasks.FindByJobAndWorker(ctx, jobID, workerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, taskerr.AlreadyApplied("you have already applied for this job")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// The conditional decrement locks the job row; the loser of a race for the
	// last spot sees zero rows affected here, not a partial write.
	ok, err := s.jobs.TakeSpot(ctx, tx, jobID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, taskerr.NoCapacity("no spots remaining for this job")
	}

	task := &models.Task{
		ID:       uuid.New(),
		JobID:    jobID,
		WorkerID: workerID,
		Status:   models.TaskStatusPending,
	}
	if err := s.tasks.InsertTx(ctx, tx, task); err != nil {
		if isUniqueViolation(err) {
			return nil, taskerr.AlreadyApplied("you have already applied for this job")
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Event{
		UserID:  job.AdvertiserID,
		Kind:    models.NotifyJobApplied,
		Message: fmt.Sprintf("A worker applied to your job: %s", job.Title),
		JobID:   &jobID,
		TaskID:  &task.ID,
	})
	return task, nil
}

func (s *service) SubmitProof(ctx context.Context, jobID, taskID, workerID uuid.UUID, proof string) (*models.Task, error) {
	task, err := s.tasks.GetByJobAndID(ctx, jobID, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, taskerr.NotFound("task not found")
		}
		return nil, err
	}
	if task.WorkerID != workerID {
		return nil, taskerr.Forbidden("you are not authorized to submit proof for this task")
	}
	if task.Status != models.TaskStatusPending {
		return nil, taskerr.InvalidState("cannot submit proof for a task with status: %s", task.Status)
	}

	updated, err := s.tasks.MarkSubmitted(ctx, jobID, taskID, proof)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, taskerr.InvalidState("task is no longer pending")
		}
		return nil, err
	}

	if job, err := s.jobs.GetByID(ctx, jobID); err == nil {
		s.notifier.Notify(ctx, notify.Event{
			UserID:  job.AdvertiserID,
			Kind:    models.NotifyProofSubmitted,
			Message: fmt.Sprintf("Proof submitted for your job: %s", job.Title),
			JobID:   &jobID,
			TaskID:  &taskID,
		})
	}
	return updated, nil
}

func (s *service) ReviewTask(ctx context.Context, jobID, taskID uuid.UUID, caller Caller, decision string, feedback *string) (*models.Task, error) {
	if decision != models.TaskStatusApproved && decision != models.TaskStatusRejected {
		return nil, taskerr.InvalidState("decision must be either approved or rejected")
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, taskerr.NotFound("job not found")
		}
		return nil, err
	}
	if err := authorize(caller, job.AdvertiserID); err != nil {
		return nil, err
	}

	task, err := s.tasks.GetByJobAndID(ctx, jobID, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, taskerr.NotFound("task not found")
		}
		return nil, err
	}
	if task.Status != models.TaskStatusSubmitted {
		return nil, taskerr.InvalidState("cannot review a task with status: %s", task.Status)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// The status condition in the update serializes concurrent reviews: only
	// one can move the task out of submitted, so the worker is paid at most once.
	updated, err := s.tasks.MarkReviewedTx(ctx, tx, jobID, taskID, decision, feedback)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, taskerr.InvalidState("task is no longer awaiting review")
		}
		return nil, err
	}

	if decision == models.TaskStatusApproved {
		if err := s.ledger.PayWorker(ctx, tx, task.WorkerID, jobID, taskID, job.PaymentPerTaskCents); err != nil {
			return nil, err
		}
	}
	// A rejected task keeps its spot: remaining_spots is not restored.

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Event{
		UserID:  task.WorkerID,
		Kind:    models.NotifyTaskReviewed,
		Message: fmt.Sprintf("Your task on job %s was %s", job.Title, decision),
		JobID:   &jobID,
		TaskID:  &taskID,
	})
	return updated, nil
}

func (s *service) ListJobs(ctx context.Context, f models.JobFilter) ([]*models.JobListing, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}
	return s.jobs.List(ctx, f)
}

func (s *service) ListApplicants(ctx context.Context, jobID uuid.UUID, caller Caller, status string, page, limit int) ([]*models.Applicant, int, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, taskerr.NotFound("job not found")
		}
		return nil, 0, err
	}
	if err := authorize(caller, job.AdvertiserID); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return s.tasks.ListByJob(ctx, jobID, status, page, limit)
}

func (s *service) JobStatistics(ctx context.Context, jobID uuid.UUID, caller Caller) (*models.JobStats, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, taskerr.NotFound("job not found")
		}
		return nil, err
	}
	if err := authorize(caller, job.AdvertiserID); err != nil {
		return nil, err
	}

	counts, err := s.tasks.StatusCounts(ctx, jobID)
	if err != nil {
		return nil, err
	}

	taken := job.MaxWorkers - job.RemainingSpots
	pct := 0
	if taken > 0 {
		pct = int(math.Round(float64(counts.Approved) / float64(taken) * 100))
	}
	return &models.JobStats{
		TotalSpots:           job.MaxWorkers,
		RemainingSpots:       job.RemainingSpots,
		TakenSpots:           taken,
		TaskStats:            counts,
		CompletionPercentage: pct,
	}, nil
}
