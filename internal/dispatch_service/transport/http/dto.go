package http

import (
	"time"

	"github.com/google/uuid"
)

// okResponse is the uniform success envelope: {ok:true} or
// {ok:true, skipped:"reason"}.
type okResponse struct {
	OK      bool   `json:"ok"`
	Skipped string `json:"skipped,omitempty"`
}

// errorResponse is the uniform failure envelope.
type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// CreateScheduledMessageRequestDTO schedules a future chat message.
type CreateScheduledMessageRequestDTO struct {
	PairID      uuid.UUID `json:"pairId" validate:"required"`
	SenderID    uuid.UUID `json:"senderId" validate:"required"`
	Text        string    `json:"text" validate:"required"`
	MediaType   string    `json:"mediaType,omitempty" validate:"omitempty,oneof=image audio"`
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
}

// ScheduledMessageDTO is the API view of a scheduled message.
type ScheduledMessageDTO struct {
	ID          uuid.UUID  `json:"id"`
	PairID      uuid.UUID  `json:"pairId"`
	SenderID    uuid.UUID  `json:"senderId"`
	Text        string     `json:"text"`
	MediaType   string     `json:"mediaType,omitempty"`
	ScheduledAt time.Time  `json:"scheduledAt"`
	Status      string     `json:"status"`
	SentAt      *time.Time `json:"sentAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// CreateReminderRequestDTO configures a reminder.
type CreateReminderRequestDTO struct {
	PairID        uuid.UUID `json:"pairId" validate:"required"`
	CreatorID     uuid.UUID `json:"creatorId" validate:"required"`
	Title         string    `json:"title" validate:"required,max=200"`
	ScheduleKind  string    `json:"scheduleKind" validate:"required,oneof=once daily weekly monthly"`
	NextTriggerAt time.Time `json:"nextTriggerAt" validate:"required"`
	NotifySelf    bool      `json:"notifySelf"`
	NotifyPartner bool      `json:"notifyPartner"`
}

// ReminderDTO is the API view of a reminder.
type ReminderDTO struct {
	ID            uuid.UUID `json:"id"`
	PairID        uuid.UUID `json:"pairId"`
	CreatorID     uuid.UUID `json:"creatorId"`
	Title         string    `json:"title"`
	ScheduleKind  string    `json:"scheduleKind"`
	NextTriggerAt time.Time `json:"nextTriggerAt"`
	Active        bool      `json:"active"`
	NotifySelf    bool      `json:"notifySelf"`
	NotifyPartner bool      `json:"notifyPartner"`
	CreatedAt     time.Time `json:"createdAt"`
}
