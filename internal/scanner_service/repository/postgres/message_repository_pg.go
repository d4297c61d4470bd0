package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/pairlink/dispatch/internal/core_domain"
)

// PgMessageRepository is the scanner's insert-only view of the chat messages
// table; the dispatch service owns the read side.
type PgMessageRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewPgMessageRepository(db Querier, logger *slog.Logger) *PgMessageRepository {
	return &PgMessageRepository{db: db, logger: logger.With("component", "message_repository_pg")}
}

func (r *PgMessageRepository) Create(ctx context.Context, msg *core_domain.Message) error {
	query := `
		INSERT INTO messages (id, pair_id, sender_id, text, media_type, status, scheduled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, query,
		msg.ID, msg.PairID, msg.SenderID, msg.Text, msg.MediaType,
		msg.Status, msg.Scheduled, msg.CreatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error creating message", "error", err, "message_id", msg.ID)
		return err
	}
	return nil
}
