package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleKind describes how often a reminder fires.
type ScheduleKind string

const (
	ScheduleOnce    ScheduleKind = "once"
	ScheduleDaily   ScheduleKind = "daily"
	ScheduleWeekly  ScheduleKind = "weekly"
	ScheduleMonthly ScheduleKind = "monthly"
)

// Reminder is a user-configured reminder owned by a pair.
//
// Active==true implies NextTriggerAt is meaningful to compare against now.
// Claiming a due reminder flips Active to false in the same statement that
// selects it; recurring kinds are re-armed by an explicit reschedule step
// after dispatch.
type Reminder struct {
	ID               uuid.UUID    `json:"id"`
	PairID           uuid.UUID    `json:"pair_id"`
	CreatorID        uuid.UUID    `json:"creator_id"`
	Title            string       `json:"title"`
	ScheduleKind     ScheduleKind `json:"schedule_kind"`
	NextTriggerAt    time.Time    `json:"next_trigger_at"`
	Active           bool         `json:"active"`
	NotifySelf       bool         `json:"notify_self"`
	NotifyPartner    bool         `json:"notify_partner"`
	LastDispatchedAt *time.Time   `json:"last_dispatched_at,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// IsRecurring reports whether the reminder fires more than once.
func (r *Reminder) IsRecurring() bool {
	return r.ScheduleKind != ScheduleOnce
}

// NextOccurrence computes the trigger time following "after" for the given
// schedule kind, rolled forward until it is strictly later than "now".
// Calendar arithmetic (AddDate) keeps the wall-clock time stable instead of
// drifting the way fixed-duration addition would.
func NextOccurrence(kind ScheduleKind, after, now time.Time) time.Time {
	next := after
	for !next.After(now) {
		switch kind {
		case ScheduleDaily:
			next = next.AddDate(0, 0, 1)
		case ScheduleWeekly:
			next = next.AddDate(0, 0, 7)
		case ScheduleMonthly:
			next = next.AddDate(0, 1, 0)
		default:
			return after
		}
	}
	return next
}
