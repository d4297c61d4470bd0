package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/pairlink/dispatch/internal/core_domain"
)

type PgThinkingPingRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewPgThinkingPingRepository(db Querier, logger *slog.Logger) *PgThinkingPingRepository {
	return &PgThinkingPingRepository{db: db, logger: logger.With("component", "thinking_ping_repository_pg")}
}

func (r *PgThinkingPingRepository) Create(ctx context.Context, ping *core_domain.ThinkingPing) error {
	// Append-only log; per-day uniqueness (streaks) is a client concern, so
	// duplicate taps on the same day are stored as-is.
	query := `
		INSERT INTO thinking_pings (id, pair_id, sender_id, receiver_id, date_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if ping.CreatedAt.IsZero() {
		ping.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, query,
		ping.ID, ping.PairID, ping.SenderID, ping.ReceiverID, ping.DateKey, ping.CreatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error creating thinking ping", "error", err, "pair_id", ping.PairID)
		return err
	}
	return nil
}
