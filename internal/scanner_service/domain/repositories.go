package domain

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pairlink/dispatch/internal/core_domain"
)

// ReminderRepository manages reminder rows for the scanner.
type ReminderRepository interface {
	Create(ctx context.Context, reminder *Reminder) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reminder, error)

	// ClaimDue atomically selects up to limit active reminders whose trigger
	// time has passed and deactivates them in the same statement, returning
	// the claimed rows. Two concurrent scanners never claim the same row.
	ClaimDue(ctx context.Context, dueTime time.Time, limit int) ([]*Reminder, error)

	// Reschedule re-arms a recurring reminder with its next trigger time.
	Reschedule(ctx context.Context, id uuid.UUID, nextTriggerAt time.Time) error
}

// ScheduledMessageRepository manages scheduled message rows.
type ScheduledMessageRepository interface {
	Create(ctx context.Context, msg *ScheduledMessage) error
	GetByID(ctx context.Context, id uuid.UUID) (*ScheduledMessage, error)

	// ClaimDue atomically moves up to limit due pending rows (plus claimed
	// rows whose claim is older than staleBefore) to claimed and returns them.
	ClaimDue(ctx context.Context, dueTime time.Time, staleBefore time.Time, limit int) ([]*ScheduledMessage, error)

	// MarkSent finalizes a claimed row. MarkFailed parks a row the scanner
	// could not materialize so it is never re-claimed.
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error

	// DeleteIfPending removes a row only while it is still pending; returns
	// ErrNotPending once the scanner has touched it.
	DeleteIfPending(ctx context.Context, id uuid.UUID) error
}

// MessageRepository is the scanner's write-side view of the chat messages
// table; it only ever inserts the materialized message.
type MessageRepository interface {
	Create(ctx context.Context, msg *core_domain.Message) error
}
