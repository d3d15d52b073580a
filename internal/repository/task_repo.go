package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhub/backend/internal/models"
)

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

const taskColumns = `id, job_id, worker_id, status, proof, feedback, submitted_at, reviewed_at, created_at, updated_at`

func scanTask(row pgx.Row, t *models.Task) error {
	return row.Scan(&t.ID, &t.JobID, &t.WorkerID, &t.Status, &t.Proof, &t.Feedback,
		&t.SubmittedAt, &t.ReviewedAt, &t.CreatedAt, &t.UpdatedAt)
}

// InsertTx inserts the task inside the given transaction. The unique
// (job_id, worker_id) index rejects duplicate applications; the caller maps
// that violation to its domain error.
func (r *TaskRepo) InsertTx(ctx context.Context, tx pgx.Tx, t *models.Task) error {
	return tx.QueryRow(ctx, `
		INSERT INTO tasks (id, job_id, worker_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, t.ID, t.JobID, t.WorkerID, t.Status).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepo) GetByJobAndID(ctx context.Context, jobID, taskID uuid.UUID) (*models.Task, error) {
	var t models.Task
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND job_id = $2`, taskID, jobID)
	if err := scanTask(row, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// FindByJobAndWorker returns nil when the worker has no task on the job.
func (r *TaskRepo) FindByJobAndWorker(ctx context.Context, jobID, workerID uuid.UUID) (*models.Task, error) {
	var t models.Task
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE job_id = $1 AND worker_id = $2`, jobID, workerID)
	if err := scanTask(row, &t); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// MarkSubmitted moves a pending task to submitted and stores the proof.
// The status condition makes the transition race-safe; pgx.ErrNoRows means the
// task was not pending anymore.
func (r *TaskRepo) MarkSubmitted(ctx context.Context, jobID, taskID uuid.UUID, proof string) (*models.Task, error) {
	var t models.Task
	row := r.pool.QueryRow(ctx, `
		UPDATE tasks SET status = $3, proof = $4, submitted_at = now(), updated_at = now()
		WHERE id = $1 AND job_id = $2 AND status = $5
		RETURNING `+taskColumns, taskID, jobID, models.TaskStatusSubmitted, proof, models.TaskStatusPending)
	if err := scanTask(row, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkReviewedTx sets the terminal status inside the given transaction so the
// review commits together with the worker payment. pgx.ErrNoRows means the
// task was not in submitted state (e.g. a concurrent review won).
func (r *TaskRepo) MarkReviewedTx(ctx context.Context, tx pgx.Tx, jobID, taskID uuid.UUID, decision string, feedback *string) (*models.Task, error) {
	var t models.Task
	row := tx.QueryRow(ctx, `
		UPDATE tasks SET status = $3, feedback = $4, reviewed_at = now(), updated_at = now()
		WHERE id = $1 AND job_id = $2 AND status = $5
		RETURNING `+taskColumns, taskID, jobID, decision, feedback, models.TaskStatusSubmitted)
	if err := scanTask(row, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepo) CountByJob(ctx context.Context, jobID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM tasks WHERE job_id = $1`, jobID).Scan(&n)
	return n, err
}

func (r *TaskRepo) CountByJobAndStatus(ctx context.Context, jobID uuid.UUID, status string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM tasks WHERE job_id = $1 AND status = $2`, jobID, status).Scan(&n)
	return n, err
}

func (r *TaskRepo) StatusCounts(ctx context.Context, jobID uuid.UUID) (models.TaskStatusCounts, error) {
	var c models.TaskStatusCounts
	err := r.pool.QueryRow(ctx, `
		SELECT count(*),
			count(*) FILTER (WHERE status = 'pending'),
			count(*) FILTER (WHERE status = 'submitted'),
			count(*) FILTER (WHERE status = 'approved'),
			count(*) FILTER (WHERE status = 'rejected')
		FROM tasks WHERE job_id = $1
	`, jobID).Scan(&c.Total, &c.Pending, &c.Submitted, &c.Approved, &c.Rejected)
	return c, err
}

// ListByJob returns the job's applicants joined with worker names, optionally
// filtered by status, newest first.
func (r *TaskRepo) ListByJob(ctx context.Context, jobID uuid.UUID, status string, page, limit int) ([]*models.Applicant, int, error) {
	countSQL := `SELECT count(*) FROM tasks WHERE job_id = $1`
	listSQL := `
		SELECT tasks.id, tasks.worker_id, users.full_name, tasks.status, tasks.proof,
			tasks.feedback, tasks.submitted_at, tasks.reviewed_at, tasks.created_at
		FROM tasks
		JOIN users ON users.id = tasks.worker_id
		WHERE tasks.job_id = $1`
	args := []any{jobID}
	if status != "" {
		countSQL += ` AND status = $2`
		listSQL += ` AND tasks.status = $2`
		args = append(args, status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listSQL += ` ORDER BY tasks.created_at DESC`
	switch len(args) {
	case 1:
		listSQL += ` LIMIT $2 OFFSET $3`
	case 2:
		listSQL += ` LIMIT $3 OFFSET $4`
	}
	args = append(args, limit, (page-1)*limit)

	rows, err := r.pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []*models.Applicant
	for rows.Next() {
		var a models.Applicant
		if err := rows.Scan(&a.TaskID, &a.WorkerID, &a.WorkerName, &a.Status, &a.Proof,
			&a.Feedback, &a.SubmittedAt, &a.ReviewedAt, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, &a)
	}
	return list, total, rows.Err()
}
