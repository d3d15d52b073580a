package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhub/backend/internal/models"
)

type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// CreateTx inserts a transaction record inside the given transaction.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, amount_cents, type, status, description, job_id, task_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, t.ID, t.UserID, t.AmountCents, t.Type, t.Status, t.Description, t.JobID, t.TaskID).Scan(&t.CreatedAt)
}

func (r *TransactionRepo) ListByUserID(ctx context.Context, userID uuid.UUID, page, limit int) ([]*models.Transaction, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM transactions WHERE user_id = $1
	`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount_cents, type, status, description, job_id, task_id, created_at
		FROM transactions WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.AmountCents, &t.Type, &t.Status, &t.Description, &t.JobID, &t.TaskID, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, &t)
	}
	return list, total, rows.Err()
}

func (r *TransactionRepo) ListByTaskID(ctx context.Context, taskID uuid.UUID) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount_cents, type, status, description, job_id, task_id, created_at
		FROM transactions WHERE task_id = $1 ORDER BY created_at DESC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.AmountCents, &t.Type, &t.Status, &t.Description, &t.JobID, &t.TaskID, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
