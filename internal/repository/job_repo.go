package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhub/backend/internal/models"
)

type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

func (r *JobRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const jobColumns = `id, advertiser_id, category_id, title, description, instructions,
	payment_per_task_cents, max_workers, remaining_spots, proof_required, difficulty,
	estimated_time, status, expires_at, created_at, updated_at`

func scanJob(row pgx.Row, j *models.Job) error {
	return row.Scan(&j.ID, &j.AdvertiserID, &j.CategoryID, &j.Title, &j.Description, &j.Instructions,
		&j.PaymentPerTaskCents, &j.MaxWorkers, &j.RemainingSpots, &j.ProofRequired, &j.Difficulty,
		&j.EstimatedTime, &j.Status, &j.ExpiresAt, &j.CreatedAt, &j.UpdatedAt)
}

// InsertTx inserts the job inside the given transaction so the row commits
// together with the wallet debit that funds it.
func (r *JobRepo) InsertTx(ctx context.Context, tx pgx.Tx, j *models.Job) error {
	return tx.QueryRow(ctx, `
		INSERT INTO jobs (id, advertiser_id, category_id, title, description, instructions,
			payment_per_task_cents, max_workers, remaining_spots, proof_required, difficulty,
			estimated_time, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at
	`, j.ID, j.AdvertiserID, j.CategoryID, j.Title, j.Description, j.Instructions,
		j.PaymentPerTaskCents, j.MaxWorkers, j.RemainingSpots, j.ProofRequired, j.Difficulty,
		j.EstimatedTime, j.Status, j.ExpiresAt).Scan(&j.CreatedAt, &j.UpdatedAt)
}

func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	if err := scanJob(row, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// GetByIDForUpdate locks the job row. Call within a transaction; spot
// accounting and funding changes serialize on this lock.
func (r *JobRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	row := tx.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, id)
	if err := scanJob(row, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *JobRepo) UpdateTx(ctx context.Context, tx pgx.Tx, j *models.Job) error {
	_, err := tx.Exec(ctx, `
		UPDATE jobs SET category_id = $2, title = $3, description = $4, instructions = $5,
			payment_per_task_cents = $6, max_workers = $7, remaining_spots = $8, proof_required = $9,
			difficulty = $10, estimated_time = $11, status = $12, expires_at = $13, updated_at = now()
		WHERE id = $1
	`, j.ID, j.CategoryID, j.Title, j.Description, j.Instructions,
		j.PaymentPerTaskCents, j.MaxWorkers, j.RemainingSpots, j.ProofRequired,
		j.Difficulty, j.EstimatedTime, j.Status, j.ExpiresAt)
	return err
}

func (r *JobRepo) DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	return err
}

// TakeSpot decrements remaining_spots if any are left. Returns false when the
// job is full; the conditional update is the capacity guard under concurrency.
func (r *JobRepo) TakeSpot(ctx context.Context, tx pgx.Tx, jobID uuid.UUID) (bool, error) {
	result, err := tx.Exec(ctx, `
		UPDATE jobs SET remaining_spots = remaining_spots - 1, updated_at = now()
		WHERE id = $1 AND remaining_spots > 0
	`, jobID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// List returns the filtered, sorted page plus the total count for pagination.
func (r *JobRepo) List(ctx context.Context, f models.JobFilter) ([]*models.JobListing, int, error) {
	where := []string{}
	args := []any{}

	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.CategoryID != nil {
		add("jobs.category_id = $%d", *f.CategoryID)
	}
	if f.Difficulty != "" {
		add("jobs.difficulty = $%d", f.Difficulty)
	}
	if f.MinPaymentCents != nil {
		add("jobs.payment_per_task_cents >= $%d", *f.MinPaymentCents)
	}
	if f.MaxPaymentCents != nil {
		add("jobs.payment_per_task_cents <= $%d", *f.MaxPaymentCents)
	}
	if f.Status != "" {
		add("jobs.status = $%d", f.Status)
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM jobs`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	orderSQL := " ORDER BY jobs.created_at DESC"
	switch f.SortBy {
	case models.SortOldest:
		orderSQL = " ORDER BY jobs.created_at ASC"
	case models.SortPaymentHigh:
		orderSQL = " ORDER BY jobs.payment_per_task_cents DESC"
	case models.SortPaymentLow:
		orderSQL = " ORDER BY jobs.payment_per_task_cents ASC"
	}

	limitSQL := fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.pool.Query(ctx, `
		SELECT jobs.id, jobs.title, jobs.description, jobs.payment_per_task_cents,
			jobs.max_workers, jobs.remaining_spots, jobs.difficulty, jobs.estimated_time,
			jobs.status, users.full_name, categories.name, jobs.created_at
		FROM jobs
		JOIN users ON users.id = jobs.advertiser_id
		JOIN categories ON categories.id = jobs.category_id`+whereSQL+orderSQL+limitSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []*models.JobListing
	for rows.Next() {
		var l models.JobListing
		if err := rows.Scan(&l.ID, &l.Title, &l.Description, &l.PaymentPerTaskCents,
			&l.MaxWorkers, &l.RemainingSpots, &l.Difficulty, &l.EstimatedTime,
			&l.Status, &l.AdvertiserName, &l.CategoryName, &l.CreatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, &l)
	}
	return list, total, rows.Err()
}

// GetDetail returns the public view of a job joined with its advertiser and category.
func (r *JobRepo) GetDetail(ctx context.Context, id uuid.UUID) (*models.JobDetail, error) {
	var d models.JobDetail
	err := r.pool.QueryRow(ctx, `
		SELECT jobs.id, jobs.advertiser_id, jobs.category_id, jobs.title, jobs.description,
			jobs.instructions, jobs.payment_per_task_cents, jobs.max_workers, jobs.remaining_spots,
			jobs.proof_required, jobs.difficulty, jobs.estimated_time, jobs.status, jobs.expires_at,
			jobs.created_at, jobs.updated_at, users.full_name, categories.name
		FROM jobs
		JOIN users ON users.id = jobs.advertiser_id
		JOIN categories ON categories.id = jobs.category_id
		WHERE jobs.id = $1
	`, id).Scan(&d.ID, &d.AdvertiserID, &d.CategoryID, &d.Title, &d.Description,
		&d.Instructions, &d.PaymentPerTaskCents, &d.MaxWorkers, &d.RemainingSpots,
		&d.ProofRequired, &d.Difficulty, &d.EstimatedTime, &d.Status, &d.ExpiresAt,
		&d.CreatedAt, &d.UpdatedAt, &d.AdvertiserName, &d.CategoryName)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
