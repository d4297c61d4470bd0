package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pairlink/dispatch/internal/scanner_service/domain"
)

type PgScheduledMessageRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewPgScheduledMessageRepository(db Querier, logger *slog.Logger) *PgScheduledMessageRepository {
	return &PgScheduledMessageRepository{db: db, logger: logger.With("component", "scheduled_message_repository_pg")}
}

const scheduledMessageColumns = `id, pair_id, sender_id, text, media_type, scheduled_at, status, claimed_at, sent_at, error_message, created_at, updated_at`

func scanScheduledMessage(row pgx.Row) (*domain.ScheduledMessage, error) {
	var m domain.ScheduledMessage
	err := row.Scan(
		&m.ID, &m.PairID, &m.SenderID, &m.Text, &m.MediaType, &m.ScheduledAt,
		&m.Status, &m.ClaimedAt, &m.SentAt, &m.Error, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PgScheduledMessageRepository) Create(ctx context.Context, msg *domain.ScheduledMessage) error {
	query := `
		INSERT INTO scheduled_messages (id, pair_id, sender_id, text, media_type, scheduled_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	now := time.Now().UTC()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	if msg.Status == "" {
		msg.Status = domain.ScheduledStatusPending
	}
	_, err := r.db.Exec(ctx, query,
		msg.ID, msg.PairID, msg.SenderID, msg.Text, msg.MediaType,
		msg.ScheduledAt, msg.Status, msg.CreatedAt, msg.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error creating scheduled message", "error", err, "scheduled_message_id", msg.ID)
		return err
	}
	return nil
}

func (r *PgScheduledMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledMessage, error) {
	query := `SELECT ` + scheduledMessageColumns + ` FROM scheduled_messages WHERE id = $1`
	msg, err := scanScheduledMessage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting scheduled message by ID", "error", err, "scheduled_message_id", id)
		return nil, err
	}
	return msg, nil
}

// ClaimDue moves due pending rows to claimed and returns them. Claimed rows
// whose claim timestamp predates staleBefore are treated as abandoned by a
// crashed scanner and become claimable again. Terminal rows (sent, failed)
// are never selected, which keeps re-processing impossible.
func (r *PgScheduledMessageRepository) ClaimDue(ctx context.Context, dueTime time.Time, staleBefore time.Time, limit int) ([]*domain.ScheduledMessage, error) {
	query := `
		WITH due_message_ids AS (
			SELECT id
			FROM scheduled_messages
			WHERE (status = $1 AND scheduled_at <= $2)
			   OR (status = $3 AND claimed_at < $4)
			ORDER BY scheduled_at ASC
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		UPDATE scheduled_messages sm
		SET status = $3, claimed_at = $6, updated_at = $6
		FROM due_message_ids d
		WHERE sm.id = d.id
		RETURNING sm.id, sm.pair_id, sm.sender_id, sm.text, sm.media_type, sm.scheduled_at, sm.status, sm.claimed_at, sm.sent_at, sm.error_message, sm.created_at, sm.updated_at
	`
	now := time.Now().UTC()
	rows, err := r.db.Query(ctx, query,
		domain.ScheduledStatusPending, dueTime,
		domain.ScheduledStatusClaimed, staleBefore,
		limit, now,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error claiming due scheduled messages", "error", err)
		return nil, err
	}
	defer rows.Close()

	var msgs []*domain.ScheduledMessage
	for rows.Next() {
		msg, err := scanScheduledMessage(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Error scanning claimed scheduled message row", "error", err)
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating claimed scheduled message rows", "error", err)
		return nil, err
	}

	if len(msgs) == 0 {
		return nil, domain.ErrNoDueItems
	}
	return msgs, nil
}

func (r *PgScheduledMessageRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	query := `
		UPDATE scheduled_messages
		SET status = $2, sent_at = $3, updated_at = $3
		WHERE id = $1 AND status = $4
	`
	tag, err := r.db.Exec(ctx, query, id, domain.ScheduledStatusSent, sentAt, domain.ScheduledStatusClaimed)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error marking scheduled message sent", "error", err, "scheduled_message_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Scheduled message not in claimed state for MarkSent", "scheduled_message_id", id)
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgScheduledMessageRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE scheduled_messages
		SET status = $2, error_message = $3, updated_at = $4
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, domain.ScheduledStatusFailed, reason, time.Now().UTC())
	if err != nil {
		r.logger.ErrorContext(ctx, "Error marking scheduled message failed", "error", err, "scheduled_message_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteIfPending honors the user-facing rule that a scheduled message is
// editable only while the scanner has not touched it.
func (r *PgScheduledMessageRepository) DeleteIfPending(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM scheduled_messages WHERE id = $1 AND status = $2`
	tag, err := r.db.Exec(ctx, query, id, domain.ScheduledStatusPending)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error deleting scheduled message", "error", err, "scheduled_message_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish missing from already-claimed for the API response.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return domain.ErrNotPending
	}
	return nil
}
