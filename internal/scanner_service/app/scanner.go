package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pairlink/dispatch/internal/core_domain"
	dispatchdomain "github.com/pairlink/dispatch/internal/dispatch_service/domain"
	"github.com/pairlink/dispatch/internal/scanner_service/domain"
)

// EventPublisher hands dispatch events to the dispatch service. In production
// this is the NATS client; tests substitute a mock.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// ScannerConfig holds configuration specific to the due-item scanner.
type ScannerConfig struct {
	BatchSize       int           `mapstructure:"SCAN_BATCH_SIZE"`
	StaleClaimAfter time.Duration `mapstructure:"STALE_CLAIM_AFTER"`
	DispatchSubject string        `mapstructure:"DISPATCH_SUBJECT"`
}

// Scanner is the time-driven orchestrator: each run claims due reminders and
// scheduled messages, materializes their side effects and fires dispatch
// events. Processing is per-item best-effort; one bad row never stops the
// rest of the batch.
type Scanner struct {
	reminders domain.ReminderRepository
	scheduled domain.ScheduledMessageRepository
	messages  domain.MessageRepository
	publisher EventPublisher
	logger    *slog.Logger
	config    ScannerConfig
	now       func() time.Time
}

func NewScanner(
	reminders domain.ReminderRepository,
	scheduled domain.ScheduledMessageRepository,
	messages domain.MessageRepository,
	publisher EventPublisher,
	logger *slog.Logger,
	cfg ScannerConfig,
) *Scanner {
	return &Scanner{
		reminders: reminders,
		scheduled: scheduled,
		messages:  messages,
		publisher: publisher,
		logger:    logger.With("component", "due_item_scanner"),
		config:    cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ScanOnce runs one scan cycle and returns the number of reminders and
// scheduled messages successfully processed. Only a failure to claim at all
// is reported as an error; per-item failures are logged and counted.
func (s *Scanner) ScanOnce(ctx context.Context) (remindersProcessed, messagesProcessed int, err error) {
	remindersProcessed, remErr := s.scanReminders(ctx)
	messagesProcessed, msgErr := s.scanScheduledMessages(ctx)

	// Report a batch-level error only if both claims failed outright; a
	// reachable store for one item type still makes the run useful.
	if remErr != nil && msgErr != nil {
		return remindersProcessed, messagesProcessed, errors.Join(remErr, msgErr)
	}
	if remErr != nil {
		s.logger.ErrorContext(ctx, "Reminder scan failed", "error", remErr)
	}
	if msgErr != nil {
		s.logger.ErrorContext(ctx, "Scheduled message scan failed", "error", msgErr)
	}
	return remindersProcessed, messagesProcessed, nil
}

// Run scans immediately, then once per interval, until the context is
// cancelled or a batch-level error occurs. Scanning before the first tick
// means items already due at startup are not left waiting a full interval.
func (s *Scanner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		remindersProcessed, messagesProcessed, err := s.ScanOnce(ctx)
		if err != nil {
			return err
		}
		if remindersProcessed > 0 || messagesProcessed > 0 {
			s.logger.InfoContext(ctx, "Scan cycle complete",
				"reminders_processed", remindersProcessed, "scheduled_messages_processed", messagesProcessed)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Scanner) scanReminders(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(scanDurationHist.WithLabelValues("reminder"))
	defer timer.ObserveDuration()

	now := s.now()
	claimed, err := s.reminders.ClaimDue(ctx, now, s.config.BatchSize)
	if err != nil {
		if errors.Is(err, domain.ErrNoDueItems) {
			return 0, nil
		}
		return 0, fmt.Errorf("claim due reminders: %w", err)
	}
	s.logger.InfoContext(ctx, "Claimed due reminders", "count", len(claimed))

	processed := 0
	for _, reminder := range claimed {
		if err := s.processReminder(ctx, reminder); err != nil {
			s.logger.ErrorContext(ctx, "Failed to process reminder", "error", err, "reminder_id", reminder.ID)
			itemsProcessedCounter.WithLabelValues("reminder", "error").Inc()
			continue
		}
		itemsProcessedCounter.WithLabelValues("reminder", "success").Inc()
		processed++
	}
	return processed, nil
}

func (s *Scanner) processReminder(ctx context.Context, reminder *domain.Reminder) error {
	event := dispatchdomain.ReminderEvent{ReminderID: reminder.ID}
	if err := s.publishEvent(ctx, event); err != nil {
		return err
	}

	// The claim already deactivated the reminder, which is terminal for
	// one-shots. Recurring kinds are re-armed here, colocated with the
	// dispatch so a crash between the two leaves the reminder off rather
	// than double-firing.
	if reminder.IsRecurring() {
		next := domain.NextOccurrence(reminder.ScheduleKind, reminder.NextTriggerAt, s.now())
		if err := s.reminders.Reschedule(ctx, reminder.ID, next); err != nil {
			return fmt.Errorf("reschedule recurring reminder: %w", err)
		}
	}
	return nil
}

func (s *Scanner) scanScheduledMessages(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(scanDurationHist.WithLabelValues("scheduled_message"))
	defer timer.ObserveDuration()

	now := s.now()
	claimed, err := s.scheduled.ClaimDue(ctx, now, now.Add(-s.config.StaleClaimAfter), s.config.BatchSize)
	if err != nil {
		if errors.Is(err, domain.ErrNoDueItems) {
			return 0, nil
		}
		return 0, fmt.Errorf("claim due scheduled messages: %w", err)
	}
	s.logger.InfoContext(ctx, "Claimed due scheduled messages", "count", len(claimed))

	processed := 0
	for _, msg := range claimed {
		if err := s.processScheduledMessage(ctx, msg); err != nil {
			s.logger.ErrorContext(ctx, "Failed to process scheduled message", "error", err, "scheduled_message_id", msg.ID)
			itemsProcessedCounter.WithLabelValues("scheduled_message", "error").Inc()
			continue
		}
		itemsProcessedCounter.WithLabelValues("scheduled_message", "success").Inc()
		processed++
	}
	return processed, nil
}

func (s *Scanner) processScheduledMessage(ctx context.Context, scheduled *domain.ScheduledMessage) error {
	message := &core_domain.Message{
		ID:        uuid.New(),
		PairID:    scheduled.PairID,
		SenderID:  scheduled.SenderID,
		Text:      scheduled.Text,
		MediaType: scheduled.MediaType,
		Status:    core_domain.MessageStatusSent,
		Scheduled: true,
		CreatedAt: s.now(),
	}
	if err := s.messages.Create(ctx, message); err != nil {
		// A broken reference (pair/sender gone) would fail again on every
		// retry; park the row instead of leaving it claimed.
		if markErr := s.scheduled.MarkFailed(ctx, scheduled.ID, err.Error()); markErr != nil {
			s.logger.ErrorContext(ctx, "Failed to park unmaterializable scheduled message", "error", markErr, "scheduled_message_id", scheduled.ID)
		}
		return fmt.Errorf("create message record: %w", err)
	}

	event := dispatchdomain.MessageEvent{
		PairID:    scheduled.PairID,
		SenderID:  scheduled.SenderID,
		Text:      scheduled.Text,
		MediaType: scheduled.MediaType,
	}
	if err := s.publishEvent(ctx, event); err != nil {
		// The chat message exists; losing the push is acceptable under the
		// at-most-once delivery contract. Still finalize the row.
		s.logger.WarnContext(ctx, "Dispatch event publish failed; message persisted without push", "error", err, "scheduled_message_id", scheduled.ID)
	}

	if err := s.scheduled.MarkSent(ctx, scheduled.ID, s.now()); err != nil {
		return fmt.Errorf("finalize scheduled message: %w", err)
	}
	return nil
}

func (s *Scanner) publishEvent(ctx context.Context, event dispatchdomain.Event) error {
	data, err := dispatchdomain.EncodeEvent(event)
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, s.config.DispatchSubject, data); err != nil {
		return fmt.Errorf("publish dispatch event: %w", err)
	}
	return nil
}
