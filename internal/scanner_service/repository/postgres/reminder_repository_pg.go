package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pairlink/dispatch/internal/scanner_service/domain"
)

// Querier is the subset of pgxpool.Pool the repositories use; pgxmock's pool
// satisfies it in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgReminderRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewPgReminderRepository(db Querier, logger *slog.Logger) *PgReminderRepository {
	return &PgReminderRepository{db: db, logger: logger.With("component", "reminder_repository_pg")}
}

const reminderColumns = `id, pair_id, creator_id, title, schedule_kind, next_trigger_at, active, notify_self, notify_partner, last_dispatched_at, created_at, updated_at`

func scanReminder(row pgx.Row) (*domain.Reminder, error) {
	var r domain.Reminder
	err := row.Scan(
		&r.ID, &r.PairID, &r.CreatorID, &r.Title, &r.ScheduleKind, &r.NextTriggerAt,
		&r.Active, &r.NotifySelf, &r.NotifyPartner, &r.LastDispatchedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *PgReminderRepository) Create(ctx context.Context, reminder *domain.Reminder) error {
	query := `
		INSERT INTO reminders (id, pair_id, creator_id, title, schedule_kind, next_trigger_at, active, notify_self, notify_partner, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	now := time.Now().UTC()
	reminder.CreatedAt = now
	reminder.UpdatedAt = now
	_, err := r.db.Exec(ctx, query,
		reminder.ID, reminder.PairID, reminder.CreatorID, reminder.Title, reminder.ScheduleKind,
		reminder.NextTriggerAt, reminder.Active, reminder.NotifySelf, reminder.NotifyPartner,
		reminder.CreatedAt, reminder.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error creating reminder", "error", err, "reminder_id", reminder.ID)
		return err
	}
	return nil
}

func (r *PgReminderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1`
	reminder, err := scanReminder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting reminder by ID", "error", err, "reminder_id", id)
		return nil, err
	}
	return reminder, nil
}

// ClaimDue deactivates due reminders in the same statement that selects them,
// so a concurrently running scanner cannot pick up the same rows. Recurring
// reminders are re-armed afterwards via Reschedule.
func (r *PgReminderRepository) ClaimDue(ctx context.Context, dueTime time.Time, limit int) ([]*domain.Reminder, error) {
	query := `
		WITH due_reminder_ids AS (
			SELECT id
			FROM reminders
			WHERE active = TRUE AND next_trigger_at <= $1
			ORDER BY next_trigger_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE reminders rm
		SET active = FALSE, last_dispatched_at = $3, updated_at = $3
		FROM due_reminder_ids d
		WHERE rm.id = d.id
		RETURNING rm.id, rm.pair_id, rm.creator_id, rm.title, rm.schedule_kind, rm.next_trigger_at, rm.active, rm.notify_self, rm.notify_partner, rm.last_dispatched_at, rm.created_at, rm.updated_at
	`
	now := time.Now().UTC()
	rows, err := r.db.Query(ctx, query, dueTime, limit, now)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error claiming due reminders", "error", err)
		return nil, err
	}
	defer rows.Close()

	var reminders []*domain.Reminder
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Error scanning claimed reminder row", "error", err)
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating claimed reminder rows", "error", err)
		return nil, err
	}

	if len(reminders) == 0 {
		return nil, domain.ErrNoDueItems
	}
	return reminders, nil
}

func (r *PgReminderRepository) Reschedule(ctx context.Context, id uuid.UUID, nextTriggerAt time.Time) error {
	query := `
		UPDATE reminders
		SET active = TRUE, next_trigger_at = $2, updated_at = $3
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, nextTriggerAt, time.Now().UTC())
	if err != nil {
		r.logger.ErrorContext(ctx, "Error rescheduling reminder", "error", err, "reminder_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Reminder not found for reschedule", "reminder_id", id)
		return domain.ErrNotFound
	}
	r.logger.InfoContext(ctx, "Reminder rescheduled", "reminder_id", id, "next_trigger_at", nextTriggerAt)
	return nil
}
