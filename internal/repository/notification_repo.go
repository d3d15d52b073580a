package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhub/backend/internal/models"
)

type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

func (r *NotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO notifications (id, user_id, event, message, job_id, task_id, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, n.ID, n.UserID, n.Event, n.Message, n.JobID, n.TaskID, n.IsRead).Scan(&n.CreatedAt)
}

func (r *NotificationRepo) ListByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, event, message, job_id, task_id, is_read, created_at
		FROM notifications WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Event, &n.Message, &n.JobID, &n.TaskID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &n)
	}
	return list, rows.Err()
}

func (r *NotificationRepo) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2
	`, id, userID)
	return err
}
