package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pairlink/dispatch/internal/core_domain"
	"github.com/pairlink/dispatch/internal/dispatch_service/adapters/pushprovider"
	"github.com/pairlink/dispatch/internal/dispatch_service/domain"
)

// Outcome is the result of one dispatch invocation. A zero Skipped means a
// push was attempted; otherwise the reason the push was deliberately not
// sent (skips are successes, not errors).
type Outcome struct {
	Skipped string
}

const (
	SkipNoToken   = "no token"
	SkipThrottled = "throttled"
)

// RouterConfig holds configuration for the dispatch router.
type RouterConfig struct {
	ThrottleWindow time.Duration `mapstructure:"THROTTLE_WINDOW"`
	UnreadCountCap int           `mapstructure:"UNREAD_COUNT_CAP"`
}

// Router is the single entry point for dispatch events: it validates the
// decoded event and delegates to the kind-specific handler.
type Router struct {
	pairs     domain.PairRepository
	users     domain.UserRepository
	messages  domain.MessageRepository
	pings     domain.ThinkingPingRepository
	reminders domain.ReminderReader
	push      pushprovider.Adapter
	validate  *validator.Validate
	logger    *slog.Logger
	config    RouterConfig
	now       func() time.Time
}

func NewRouter(
	pairs domain.PairRepository,
	users domain.UserRepository,
	messages domain.MessageRepository,
	pings domain.ThinkingPingRepository,
	reminders domain.ReminderReader,
	push pushprovider.Adapter,
	validate *validator.Validate,
	logger *slog.Logger,
	cfg RouterConfig,
) *Router {
	return &Router{
		pairs:     pairs,
		users:     users,
		messages:  messages,
		pings:     pings,
		reminders: reminders,
		push:      push,
		validate:  validate,
		logger:    logger.With("component", "dispatch_router"),
		config:    cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Dispatch validates and routes one event.
func (r *Router) Dispatch(ctx context.Context, event domain.Event) (Outcome, error) {
	if err := r.validate.StructCtx(ctx, event); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
	}

	switch ev := event.(type) {
	case domain.MessageEvent:
		return r.dispatchMessage(ctx, ev)
	case domain.ThinkingEvent:
		return r.dispatchThinking(ctx, ev)
	case domain.ReminderEvent:
		return r.dispatchReminder(ctx, ev)
	default:
		return Outcome{}, fmt.Errorf("%w: %T", domain.ErrUnknownEventKind, event)
	}
}

// dispatchMessage notifies the non-sending partner about a new chat message.
// Ordering matters: the throttle check completes before any push attempt,
// and the throttle timestamp advances only after the attempt.
func (r *Router) dispatchMessage(ctx context.Context, ev domain.MessageEvent) (Outcome, error) {
	pair, err := r.pairs.GetByID(ctx, ev.PairID)
	if err != nil {
		dispatchProcessedCounter.WithLabelValues(string(ev.Kind()), "error").Inc()
		return Outcome{}, fmt.Errorf("load pair %s: %w", ev.PairID, err)
	}

	recipientID, ok := pair.PartnerOf(ev.SenderID)
	if !ok {
		dispatchProcessedCounter.WithLabelValues(string(ev.Kind()), "error").Inc()
		return Outcome{}, fmt.Errorf("%w: sender %s is not a member of pair %s", domain.ErrInvalidEvent, ev.SenderID, ev.PairID)
	}

	recipient, err := r.users.GetByID(ctx, recipientID)
	if err != nil {
		dispatchProcessedCounter.WithLabelValues(string(ev.Kind()), "error").Inc()
		return Outcome{}, fmt.Errorf("load recipient %s: %w", recipientID, err)
	}
	if recipient.PushToken == "" {
		r.logger.InfoContext(ctx, "Recipient has no push token; skipping", "pair_id", pair.ID, "recipient_id", recipientID)
		dispatchProcessedCounter.WithLabelValues(string(ev.Kind()), "skipped_no_token").Inc()
		return Outcome{Skipped: SkipNoToken}, nil
	}

	now := r.now()
	if !ThrottleAllowed(pair.LastMessagePushAt, now, r.config.ThrottleWindow) {
		r.logger.InfoContext(ctx, "Message push throttled", "pair_id", pair.ID, "last_push_at", pair.LastMessagePushAt)
		dispatchProcessedCounter.WithLabelValues(string(ev.Kind()), "skipped_throttled").Inc()
		return Outcome{Skipped: SkipThrottled}, nil
	}

	sender, err := r.users.GetByID(ctx, ev.SenderID)
	if err != nil {
		dispatchProcessedCounter.WithLabelValues(string(ev.Kind()), "error").Inc()
		return Outcome{}, fmt.Errorf("load sender %s: %w", ev.SenderID, err)
	}

	unread, err := r.messages.CountUnread(ctx, pair.ID, ev.SenderID, r.config.UnreadCountCap)
	if err != nil {
		dispatchProcessedCounter.WithLabelValues(string(ev.Kind()), "error").Inc()
		return Outcome{}, fmt.Errorf("count unread messages: %w", err)
	}

	notif := ComposeMessage(sender.DisplayName, ev.Text, ev.MediaType, unread)
	req := pushprovider.PushRequest{
		Token: recipient.PushToken,
		Title: notif.Title,
		Body:  notif.Body,
		Data:  map[string]string{"pairId": pair.ID.String()},
	}
	if unread > 0 {
		badge := unread
		req.Badge = &badge
	}

	r.sendPush(ctx, req)

	// Advance the throttle timestamp only after the attempt, and only if
	// nobody else advanced it since we read it.
	applied, err := r.pairs.CompareAndSetLastPushAt(ctx, pair.ID, pair.LastMessagePushAt, r.now())
	if err != nil {
		dispatchProcessedCounter.WithLabelValues(string(ev.Kind()), "error").Inc()
		return Outcome{}, fmt.Errorf("update throttle timestamp: %w", err)
	}
	if !applied {
		r.logger.WarnContext(ctx, "Lost throttle timestamp race; concurrent dispatch updated it first", "pair_id", pair.ID)
	}

	dispatchProcessedCounter.WithLabelValues(string(ev.Kind()), "pushed").Inc()
	return Outcome{}, nil
}

// dispatchThinking records the ping and pushes to the receiver if possible.
// The ping is recorded even when no push can go out.
func (r *Router) dispatchThinking(ctx context.Context, ev domain.ThinkingEvent) (Outcome, error) {
	ping := &core_domain.ThinkingPing{
		ID:         uuid.New(),
		PairID:     ev.PairID,
		SenderID:   ev.FromUserID,
		ReceiverID: ev.ToUserID,
		DateKey:    r.now().Format("2006-01-02"),
		CreatedAt:  r.now(),
	}
	if err := r.pings.Create(ctx, ping); err != nil {
		dispatchProcessedCounter.WithLabelValues(string(ev.Kind()), "error").Inc()
		return Outcome{}, fmt.Errorf("record thinking ping: %w", err)
	}

	receiver, err := r.users.GetByID(ctx, ev.ToUserID)
	if err != nil {
		dispatchProcessedCounter.WithLabelValues(string(ev.Kind()), "error").Inc()
		return Outcome{}, fmt.Errorf("load receiver %s: %w", ev.ToUserID, err)
	}
	if receiver.PushToken == "" {
		dispatchProcessedCounter.WithLabelValues(string(ev.Kind()), "skipped_no_token").Inc()
		return Outcome{Skipped: SkipNoToken}, nil
	}

	notif := ComposeThinking(ev.FromName)
	r.sendPush(ctx, pushprovider.PushRequest{
		Token: receiver.PushToken,
		Title: notif.Title,
		Body:  notif.Body,
		Data:  map[string]string{"pairId": ev.PairID.String()},
	})

	dispatchProcessedCounter.WithLabelValues(string(ev.Kind()), "pushed").Inc()
	return Outcome{}, nil
}

// dispatchReminder fans out to the reminder's notify targets. Reminder
// pushes are never throttled.
func (r *Router) dispatchReminder(ctx context.Context, ev domain.ReminderEvent) (Outcome, error) {
	reminder, err := r.reminders.GetByID(ctx, ev.ReminderID)
	if err != nil {
		dispatchProcessedCounter.WithLabelValues(string(ev.Kind()), "error").Inc()
		return Outcome{}, fmt.Errorf("load reminder %s: %w", ev.ReminderID, err)
	}

	var targets []uuid.UUID
	if reminder.NotifySelf {
		targets = append(targets, reminder.CreatorID)
	}
	if reminder.NotifyPartner {
		pair, err := r.pairs.GetByID(ctx, reminder.PairID)
		if err != nil {
			dispatchProcessedCounter.WithLabelValues(string(ev.Kind()), "error").Inc()
			return Outcome{}, fmt.Errorf("load pair %s: %w", reminder.PairID, err)
		}
		partnerID, ok := pair.PartnerOf(reminder.CreatorID)
		if !ok {
			dispatchProcessedCounter.WithLabelValues(string(ev.Kind()), "error").Inc()
			return Outcome{}, fmt.Errorf("%w: reminder creator %s is not a member of pair %s", domain.ErrInvalidEvent, reminder.CreatorID, reminder.PairID)
		}
		targets = append(targets, partnerID)
	}

	notif := ComposeReminder(reminder.Title)
	sent := 0
	for _, targetID := range targets {
		user, err := r.users.GetByID(ctx, targetID)
		if err != nil {
			// An orphaned target must not sink the whole fan-out.
			r.logger.WarnContext(ctx, "Reminder target could not be loaded", "error", err, "user_id", targetID, "reminder_id", reminder.ID)
			continue
		}
		if user.PushToken == "" {
			continue
		}
		r.sendPush(ctx, pushprovider.PushRequest{
			Token: user.PushToken,
			Title: notif.Title,
			Body:  notif.Body,
			Data:  map[string]string{"reminderId": reminder.ID.String()},
		})
		sent++
	}

	if sent == 0 {
		dispatchProcessedCounter.WithLabelValues(string(ev.Kind()), "skipped_no_token").Inc()
		return Outcome{Skipped: SkipNoToken}, nil
	}
	dispatchProcessedCounter.WithLabelValues(string(ev.Kind()), "pushed").Inc()
	return Outcome{}, nil
}

// sendPush attempts one push and records the outcome. Delivery failures are
// logged and counted, never propagated: the triggering item stays dispatched
// (at-most-once attempt, no inline retry).
func (r *Router) sendPush(ctx context.Context, req pushprovider.PushRequest) {
	timer := prometheus.NewTimer(pushRequestDurationHist.WithLabelValues(r.push.GetName()))
	result, err := r.push.Send(ctx, req)
	timer.ObserveDuration()

	if err != nil {
		r.logger.ErrorContext(ctx, "Push send failed", "error", err, "provider", r.push.GetName())
		pushAttemptCounter.WithLabelValues(r.push.GetName(), string(pushprovider.OutcomeFailed)).Inc()
		return
	}

	pushAttemptCounter.WithLabelValues(result.ProviderName, string(result.Outcome)).Inc()
	switch result.Outcome {
	case pushprovider.OutcomeFailed:
		if result.TokenInvalid {
			// The token is permanently dead. Clearing it from the user
			// record is a deliberate non-action for now; the next dispatch
			// will skip on the provider side again.
			r.logger.WarnContext(ctx, "Push token permanently invalid", "provider", result.ProviderName)
		} else {
			r.logger.WarnContext(ctx, "Push delivery failed", "provider", result.ProviderName, "provider_error", result.ErrorMessage)
		}
	case pushprovider.OutcomeDelivered:
		r.logger.DebugContext(ctx, "Push accepted by provider", "provider", result.ProviderName, "ticket_id", result.TicketID)
	}
}
