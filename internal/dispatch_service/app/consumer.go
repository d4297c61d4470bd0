package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/pairlink/dispatch/internal/dispatch_service/domain"
	"github.com/pairlink/dispatch/internal/platform/messagebroker"
)

// EventConsumer feeds dispatch events from NATS into the router. The scanner
// publishes here; client-triggered events arrive over HTTP instead.
type EventConsumer struct {
	natsClient *messagebroker.NATSClient
	router     *Router
	logger     *slog.Logger
	sub        *nats.Subscription
}

func NewEventConsumer(natsClient *messagebroker.NATSClient, router *Router, logger *slog.Logger) *EventConsumer {
	return &EventConsumer{
		natsClient: natsClient,
		router:     router,
		logger:     logger.With("component", "dispatch_event_consumer"),
	}
}

// Start subscribes to the dispatch subject with a queue group so each event
// is handled by exactly one dispatcher instance.
func (c *EventConsumer) Start(ctx context.Context, subject, queueGroup string) error {
	msgHandler := func(msg *nats.Msg) {
		natsEventsReceivedCounter.WithLabelValues(msg.Subject).Inc()
		c.logger.InfoContext(ctx, "Received dispatch event", "subject", msg.Subject, "data_len", len(msg.Data))

		event, err := domain.DecodeEvent(msg.Data)
		if err != nil {
			c.logger.ErrorContext(ctx, "Failed to decode dispatch event", "error", err, "data", string(msg.Data))
			return
		}

		// Each event gets its own timeout so one hung provider call cannot
		// wedge the subscription.
		eventCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		outcome, err := c.router.Dispatch(eventCtx, event)
		if err != nil {
			c.logger.ErrorContext(eventCtx, "Dispatch failed", "error", err, "kind", event.Kind())
			return
		}
		if outcome.Skipped != "" {
			c.logger.InfoContext(eventCtx, "Dispatch skipped", "kind", event.Kind(), "reason", outcome.Skipped)
		}
	}

	sub, err := c.natsClient.SubscribeQueue(subject, queueGroup, msgHandler)
	if err != nil {
		return err
	}
	c.sub = sub
	return nil
}

// Stop unsubscribes from the dispatch subject.
func (c *EventConsumer) Stop() {
	if c.sub != nil {
		if err := c.sub.Unsubscribe(); err != nil {
			c.logger.Warn("Failed to unsubscribe dispatch consumer", "error", err)
		}
	}
}
