// Package notify delivers per-user events through a background queue. Events
// are enqueued after the financial transaction commits, so a delivery failure
// can never roll back committed state.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
)

// Event is one fire-and-forget notification for a user.
type Event struct {
	UserID  uuid.UUID
	Kind    string
	Message string
	JobID   *uuid.UUID
	TaskID  *uuid.UUID
}

// Notifier is the interface the workflow services call. Implementations must
// not fail the caller: delivery problems are logged, never returned.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// RiverNotifier enqueues events on the River queue for background delivery.
type RiverNotifier struct {
	client *river.Client[pgx.Tx]
	log    *slog.Logger
}

func NewRiverNotifier(client *river.Client[pgx.Tx], log *slog.Logger) *RiverNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &RiverNotifier{client: client, log: log}
}

var _ Notifier = (*RiverNotifier)(nil)

func (n *RiverNotifier) Notify(ctx context.Context, e Event) {
	_, err := n.client.Insert(ctx, DeliverNotificationArgs{
		UserID:  e.UserID,
		Event:   e.Kind,
		Message: e.Message,
		JobID:   e.JobID,
		TaskID:  e.TaskID,
	}, nil)
	if err != nil {
		n.log.Error("enqueue notification failed", "user_id", e.UserID, "event", e.Kind, "error", err)
	}
}

// NopNotifier discards events. Used in tests.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) {}
