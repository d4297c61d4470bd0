package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// EventKind tags the dispatch event union.
type EventKind string

const (
	EventKindMessage  EventKind = "message"
	EventKindThinking EventKind = "thinking"
	EventKindReminder EventKind = "reminder"
)

// Event is one decoded dispatch event. Exactly one of the *Event structs
// implements it per kind; payloads are decoded and validated once at the
// boundary instead of being poked at inside each handler.
type Event interface {
	Kind() EventKind
}

// MessageEvent asks for a push about a freshly persisted chat message.
type MessageEvent struct {
	PairID    uuid.UUID `json:"pairId" validate:"required"`
	SenderID  uuid.UUID `json:"senderId" validate:"required"`
	Text      string    `json:"text"`
	MediaType string    `json:"mediaType,omitempty" validate:"omitempty,oneof=image audio"`
}

func (MessageEvent) Kind() EventKind { return EventKindMessage }

// ThinkingEvent records a "thinking of you" tap and pushes to the receiver.
type ThinkingEvent struct {
	PairID     uuid.UUID `json:"pairId" validate:"required"`
	FromUserID uuid.UUID `json:"fromUserId" validate:"required"`
	ToUserID   uuid.UUID `json:"toUserId" validate:"required"`
	FromName   string    `json:"fromName" validate:"required"`
}

func (ThinkingEvent) Kind() EventKind { return EventKindThinking }

// ReminderEvent asks for the fan-out of one due reminder.
type ReminderEvent struct {
	ReminderID uuid.UUID `json:"reminderId" validate:"required"`
}

func (ReminderEvent) Kind() EventKind { return EventKindReminder }

// envelope is the wire shape: a type tag plus the kind-specific fields inline.
type envelope struct {
	Type EventKind `json:"type"`
}

// DecodeEvent parses a JSON dispatch request body into its typed event.
// Unknown kinds return ErrUnknownEventKind wrapped with the offending tag.
func DecodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	switch env.Type {
	case EventKindMessage:
		var ev MessageEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		return ev, nil
	case EventKindThinking:
		var ev ThinkingEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		return ev, nil
	case EventKindReminder:
		var ev ReminderEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventKind, env.Type)
	}
}

// EncodeEvent builds the wire form of an event for NATS publication.
func EncodeEvent(ev Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	// Inject the type tag next to the payload fields.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("re-read event payload: %w", err)
	}
	tag, _ := json.Marshal(ev.Kind())
	fields["type"] = tag
	return json.Marshal(fields)
}
