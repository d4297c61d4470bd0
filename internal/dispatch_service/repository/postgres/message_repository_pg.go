package postgres

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pairlink/dispatch/internal/core_domain"
)

type PgMessageRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewPgMessageRepository(db Querier, logger *slog.Logger) *PgMessageRepository {
	return &PgMessageRepository{db: db, logger: logger.With("component", "message_repository_pg")}
}

// CountUnread counts sent messages authored by senderID that the partner has
// not acknowledged yet. The inner LIMIT caps the scan, so values at the cap
// mean "at least cap", which is all the notification badge needs.
func (r *PgMessageRepository) CountUnread(ctx context.Context, pairID, senderID uuid.UUID, cap int) (int, error) {
	query := `
		SELECT COUNT(*) FROM (
			SELECT 1 FROM messages
			WHERE pair_id = $1 AND sender_id = $2 AND status = $3
			LIMIT $4
		) unread
	`
	var count int
	err := r.db.QueryRow(ctx, query, pairID, senderID, core_domain.MessageStatusSent, cap).Scan(&count)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error counting unread messages", "error", err, "pair_id", pairID)
		return 0, err
	}
	return count, nil
}
