package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pairlink/dispatch/internal/dispatch_service/domain"
	scannerdomain "github.com/pairlink/dispatch/internal/scanner_service/domain"
)

// PgReminderReader gives the dispatcher read access to reminders; all writes
// stay with the scanner service.
type PgReminderReader struct {
	db     Querier
	logger *slog.Logger
}

func NewPgReminderReader(db Querier, logger *slog.Logger) *PgReminderReader {
	return &PgReminderReader{db: db, logger: logger.With("component", "reminder_reader_pg")}
}

func (r *PgReminderReader) GetByID(ctx context.Context, id uuid.UUID) (*scannerdomain.Reminder, error) {
	query := `
		SELECT id, pair_id, creator_id, title, schedule_kind, next_trigger_at, active, notify_self, notify_partner, last_dispatched_at, created_at, updated_at
		FROM reminders WHERE id = $1
	`
	var rem scannerdomain.Reminder
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rem.ID, &rem.PairID, &rem.CreatorID, &rem.Title, &rem.ScheduleKind, &rem.NextTriggerAt,
		&rem.Active, &rem.NotifySelf, &rem.NotifyPartner, &rem.LastDispatchedAt, &rem.CreatedAt, &rem.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error reading reminder", "error", err, "reminder_id", id)
		return nil, err
	}
	return &rem, nil
}
