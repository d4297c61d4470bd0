package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScheduledMessageStatus is the lifecycle state of a scheduled message.
type ScheduledMessageStatus string

const (
	// ScheduledStatusPending means the message is waiting for its trigger time.
	ScheduledStatusPending ScheduledMessageStatus = "pending"
	// ScheduledStatusClaimed means a scanner run has claimed the row and is
	// materializing the chat message. Claims older than the stale threshold
	// become eligible for re-claiming so a crashed scanner cannot strand them.
	ScheduledStatusClaimed ScheduledMessageStatus = "claimed"
	// ScheduledStatusSent is terminal: the chat message exists and a dispatch
	// was invoked.
	ScheduledStatusSent ScheduledMessageStatus = "sent"
	// ScheduledStatusFailed is terminal for rows the scanner could not
	// materialize (e.g. the pair no longer exists).
	ScheduledStatusFailed ScheduledMessageStatus = "failed"
)

// ScheduledMessage is a chat message the user asked to deliver later.
// It transitions pending -> claimed -> sent exactly once; the sent transition
// is paired with creation of exactly one Message record and one dispatch.
type ScheduledMessage struct {
	ID          uuid.UUID              `json:"id"`
	PairID      uuid.UUID              `json:"pair_id"`
	SenderID    uuid.UUID              `json:"sender_id"`
	Text        string                 `json:"text"`
	MediaType   string                 `json:"media_type,omitempty"`
	ScheduledAt time.Time              `json:"scheduled_at"`
	Status      ScheduledMessageStatus `json:"status"`
	ClaimedAt   *time.Time             `json:"claimed_at,omitempty"`
	SentAt      *time.Time             `json:"sent_at,omitempty"`
	Error       *string                `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}
