package domain

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pairlink/dispatch/internal/core_domain"
	scannerdomain "github.com/pairlink/dispatch/internal/scanner_service/domain"
)

// PairRepository reads pairs and maintains the message-push throttle state.
type PairRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*core_domain.Pair, error)

	// CompareAndSetLastPushAt updates last_message_push_at to next only if the
	// stored value still equals seen (nil meaning never pushed). It returns
	// false without error when another dispatch won the race.
	CompareAndSetLastPushAt(ctx context.Context, id uuid.UUID, seen *time.Time, next time.Time) (bool, error)
}

// UserRepository reads pair members and their push tokens.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*core_domain.User, error)
}

// MessageRepository is the dispatcher's read-side view of chat messages.
type MessageRepository interface {
	// CountUnread counts sent, unacknowledged messages authored by senderID
	// in the pair's conversation, scanning at most cap rows.
	CountUnread(ctx context.Context, pairID, senderID uuid.UUID, cap int) (int, error)
}

// ThinkingPingRepository appends "thinking of you" log entries.
type ThinkingPingRepository interface {
	Create(ctx context.Context, ping *core_domain.ThinkingPing) error
}

// ReminderReader is the dispatcher's read-only view of reminders.
type ReminderReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*scannerdomain.Reminder, error)
}
