package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pairlink/dispatch/internal/core_domain"
	"github.com/pairlink/dispatch/internal/dispatch_service/domain"
)

// Querier is the subset of pgxpool.Pool the repositories use; pgxmock's pool
// satisfies it in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgPairRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewPgPairRepository(db Querier, logger *slog.Logger) *PgPairRepository {
	return &PgPairRepository{db: db, logger: logger.With("component", "pair_repository_pg")}
}

func (r *PgPairRepository) GetByID(ctx context.Context, id uuid.UUID) (*core_domain.Pair, error) {
	query := `SELECT id, user_a, user_b, last_message_push_at, created_at FROM pairs WHERE id = $1`
	var p core_domain.Pair
	err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.UserA, &p.UserB, &p.LastMessagePushAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting pair by ID", "error", err, "pair_id", id)
		return nil, err
	}
	return &p, nil
}

// CompareAndSetLastPushAt advances the throttle timestamp only when the
// stored value still matches what the caller read, closing the read-then-
// write race between concurrent dispatches for the same pair.
func (r *PgPairRepository) CompareAndSetLastPushAt(ctx context.Context, id uuid.UUID, seen *time.Time, next time.Time) (bool, error) {
	query := `
		UPDATE pairs
		SET last_message_push_at = $2
		WHERE id = $1 AND last_message_push_at IS NOT DISTINCT FROM $3
	`
	tag, err := r.db.Exec(ctx, query, id, next, seen)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error updating pair throttle timestamp", "error", err, "pair_id", id)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
