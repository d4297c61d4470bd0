package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pairlink/dispatch/internal/core_domain"
	"github.com/pairlink/dispatch/internal/dispatch_service/domain"
)

type PgUserRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewPgUserRepository(db Querier, logger *slog.Logger) *PgUserRepository {
	return &PgUserRepository{db: db, logger: logger.With("component", "user_repository_pg")}
}

func (r *PgUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*core_domain.User, error) {
	query := `SELECT id, pair_id, display_name, COALESCE(push_token, ''), created_at FROM users WHERE id = $1`
	var u core_domain.User
	err := r.db.QueryRow(ctx, query, id).Scan(&u.ID, &u.PairID, &u.DisplayName, &u.PushToken, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting user by ID", "error", err, "user_id", id)
		return nil, err
	}
	return &u, nil
}
