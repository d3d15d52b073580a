package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/taskhub/backend/internal/models"
)

type DeliverNotificationArgs struct {
	UserID  uuid.UUID  `json:"user_id"`
	Event   string     `json:"event"`
	Message string     `json:"message"`
	JobID   *uuid.UUID `json:"job_id,omitempty"`
	TaskID  *uuid.UUID `json:"task_id,omitempty"`
}

func (DeliverNotificationArgs) Kind() string { return "deliver_notification" }

// NotificationStore persists delivered notifications for the user's inbox.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// DeliverWorker writes the notification row. Fan-out to live transports
// (websocket, email) is intentionally not part of this service.
type DeliverWorker struct {
	river.WorkerDefaults[DeliverNotificationArgs]
	store NotificationStore
	log   *slog.Logger
}

func NewDeliverWorker(store NotificationStore, log *slog.Logger) *DeliverWorker {
	if log == nil {
		log = slog.Default()
	}
	return &DeliverWorker{store: store, log: log}
}

func (w *DeliverWorker) Work(ctx context.Context, job *river.Job[DeliverNotificationArgs]) error {
	args := job.Args
	n := &models.Notification{
		ID:      uuid.New(),
		UserID:  args.UserID,
		Event:   args.Event,
		Message: args.Message,
		JobID:   args.JobID,
		TaskID:  args.TaskID,
	}
	if err := w.store.Create(ctx, n); err != nil {
		return err
	}
	w.log.Info("notification delivered", "user_id", args.UserID, "event", args.Event)
	return nil
}
