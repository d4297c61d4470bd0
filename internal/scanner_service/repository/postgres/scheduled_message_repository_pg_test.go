package postgres

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairlink/dispatch/internal/scanner_service/domain"
)

func newScheduledMessageRepoTest(t *testing.T) (*PgScheduledMessageRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPgScheduledMessageRepository(mockPool, logger), mockPool
}

func scheduledMessageRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "pair_id", "sender_id", "text", "media_type", "scheduled_at",
		"status", "claimed_at", "sent_at", "error_message", "created_at", "updated_at",
	})
}

func TestPgScheduledMessageRepository_ClaimDue(t *testing.T) {
	repo, mockPool := newScheduledMessageRepoTest(t)
	now := time.Now().UTC()
	staleBefore := now.Add(-10 * time.Minute)
	firstID, secondID := uuid.New(), uuid.New()
	claimedAt := now

	mockPool.ExpectQuery(regexp.QuoteMeta(`WITH due_message_ids AS (`)).
		WithArgs(domain.ScheduledStatusPending, now, domain.ScheduledStatusClaimed, staleBefore, 50, pgxmock.AnyArg()).
		WillReturnRows(scheduledMessageRows().
			AddRow(firstID, uuid.New(), uuid.New(), "first", "", now.Add(-time.Minute),
				domain.ScheduledStatusClaimed, &claimedAt, nil, nil, now.Add(-time.Hour), now).
			AddRow(secondID, uuid.New(), uuid.New(), "second", "image", now.Add(-2*time.Minute),
				domain.ScheduledStatusClaimed, &claimedAt, nil, nil, now.Add(-time.Hour), now))

	claimed, err := repo.ClaimDue(context.Background(), now, staleBefore, 50)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, firstID, claimed[0].ID)
	assert.Equal(t, domain.ScheduledStatusClaimed, claimed[0].Status)
	assert.Equal(t, "image", claimed[1].MediaType)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgScheduledMessageRepository_ClaimDue_NothingDue(t *testing.T) {
	repo, mockPool := newScheduledMessageRepoTest(t)
	now := time.Now().UTC()
	staleBefore := now.Add(-10 * time.Minute)

	mockPool.ExpectQuery(regexp.QuoteMeta(`WITH due_message_ids AS (`)).
		WithArgs(domain.ScheduledStatusPending, now, domain.ScheduledStatusClaimed, staleBefore, 50, pgxmock.AnyArg()).
		WillReturnRows(scheduledMessageRows())

	_, err := repo.ClaimDue(context.Background(), now, staleBefore, 50)
	assert.ErrorIs(t, err, domain.ErrNoDueItems)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgScheduledMessageRepository_MarkSent(t *testing.T) {
	repo, mockPool := newScheduledMessageRepoTest(t)
	id := uuid.New()
	sentAt := time.Now().UTC()

	mockPool.ExpectExec(regexp.QuoteMeta(`UPDATE scheduled_messages`)).
		WithArgs(id, domain.ScheduledStatusSent, sentAt, domain.ScheduledStatusClaimed).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.MarkSent(context.Background(), id, sentAt))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgScheduledMessageRepository_MarkSent_NotClaimed(t *testing.T) {
	repo, mockPool := newScheduledMessageRepoTest(t)
	id := uuid.New()
	sentAt := time.Now().UTC()

	mockPool.ExpectExec(regexp.QuoteMeta(`UPDATE scheduled_messages`)).
		WithArgs(id, domain.ScheduledStatusSent, sentAt, domain.ScheduledStatusClaimed).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.MarkSent(context.Background(), id, sentAt)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgScheduledMessageRepository_DeleteIfPending(t *testing.T) {
	repo, mockPool := newScheduledMessageRepoTest(t)
	id := uuid.New()

	mockPool.ExpectExec(regexp.QuoteMeta(`DELETE FROM scheduled_messages WHERE id = $1 AND status = $2`)).
		WithArgs(id, domain.ScheduledStatusPending).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.DeleteIfPending(context.Background(), id))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgScheduledMessageRepository_DeleteIfPending_AlreadyClaimed(t *testing.T) {
	repo, mockPool := newScheduledMessageRepoTest(t)
	id := uuid.New()
	now := time.Now().UTC()
	claimedAt := now

	mockPool.ExpectExec(regexp.QuoteMeta(`DELETE FROM scheduled_messages WHERE id = $1 AND status = $2`)).
		WithArgs(id, domain.ScheduledStatusPending).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mockPool.ExpectQuery(regexp.QuoteMeta(`SELECT`)).
		WithArgs(id).
		WillReturnRows(scheduledMessageRows().
			AddRow(id, uuid.New(), uuid.New(), "text", "", now,
				domain.ScheduledStatusClaimed, &claimedAt, nil, nil, now, now))

	err := repo.DeleteIfPending(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrNotPending)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgScheduledMessageRepository_DeleteIfPending_Missing(t *testing.T) {
	repo, mockPool := newScheduledMessageRepoTest(t)
	id := uuid.New()

	mockPool.ExpectExec(regexp.QuoteMeta(`DELETE FROM scheduled_messages WHERE id = $1 AND status = $2`)).
		WithArgs(id, domain.ScheduledStatusPending).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mockPool.ExpectQuery(regexp.QuoteMeta(`SELECT`)).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	err := repo.DeleteIfPending(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
