package core_domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageStatus defines the possible statuses of a chat message.
type MessageStatus string

const (
	MessageStatusSending   MessageStatus = "sending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

// Pair is the two-user relationship unit that owns conversations, reminders
// and pings. LastMessagePushAt is the throttle state for message push
// notifications; it gates pushes only, never message persistence.
type Pair struct {
	ID                uuid.UUID  `json:"id"`
	UserA             uuid.UUID  `json:"user_a"`
	UserB             uuid.UUID  `json:"user_b"`
	LastMessagePushAt *time.Time `json:"last_message_push_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// PartnerOf returns the other member of the pair, and false if the given
// user is not a member at all.
func (p *Pair) PartnerOf(userID uuid.UUID) (uuid.UUID, bool) {
	switch userID {
	case p.UserA:
		return p.UserB, true
	case p.UserB:
		return p.UserA, true
	default:
		return uuid.Nil, false
	}
}

// User is a member of a pair. PushToken is the opaque device registration
// with the push provider; empty means no registered device.
type User struct {
	ID          uuid.UUID `json:"id"`
	PairID      uuid.UUID `json:"pair_id"`
	DisplayName string    `json:"display_name"`
	PushToken   string    `json:"push_token,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Message is a chat message within a pair's conversation. Scheduled marks
// messages that were materialized from a ScheduledMessage by the scanner.
type Message struct {
	ID        uuid.UUID     `json:"id"`
	PairID    uuid.UUID     `json:"pair_id"`
	SenderID  uuid.UUID     `json:"sender_id"`
	Text      string        `json:"text"`
	MediaType string        `json:"media_type,omitempty"` // "", "image" or "audio"
	Status    MessageStatus `json:"status"`
	Scheduled bool          `json:"scheduled"`
	CreatedAt time.Time     `json:"created_at"`
}

// ThinkingPing is an append-only record of one "thinking of you" tap.
// DateKey is the sender's calendar day (YYYY-MM-DD); streak math over it
// belongs to the clients, not this pipeline.
type ThinkingPing struct {
	ID         uuid.UUID `json:"id"`
	PairID     uuid.UUID `json:"pair_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	DateKey    string    `json:"date_key"`
	CreatedAt  time.Time `json:"created_at"`
}
