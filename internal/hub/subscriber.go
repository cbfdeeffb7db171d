package hub

import (
	"context"
	"ctchen222/solo-tic-tac-toe/internal/events"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var errSubscriptionClosed = errors.New("subscription channel closed")

// Run relays Pub/Sub updates to local rooms until ctx is cancelled. A failed
// or lost subscription is retried with exponential backoff; meanwhile Publish
// delivers to local rooms itself. Without Redis it returns at once.
func (h *Hub) Run(ctx context.Context) error {
	if h.rdb == nil {
		h.markReady()
		return nil
	}

	delay := h.retryMin
	for {
		live, err := h.subscribe(ctx)
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "Event subscriber stopped")
			return nil
		}
		if live {
			delay = h.retryMin
		}
		slog.WarnContext(ctx, "Event subscription unavailable, retrying",
			"channel", events.SessionChannelPattern, "retry.in", delay, "error", err)

		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Event subscriber stopped")
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, h.retryMax)
	}
}

// subscribe relays messages until the subscription ends. live reports
// whether the subscription was ever established.
func (h *Hub) subscribe(ctx context.Context) (live bool, err error) {
	pubsub := h.rdb.PSubscribe(ctx, events.SessionChannelPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return false, fmt.Errorf("failed to subscribe to %s: %w", events.SessionChannelPattern, err)
	}
	h.subscribed.Store(true)
	defer h.subscribed.Store(false)
	h.markReady()
	slog.InfoContext(ctx, "Event subscriber started", "channel", events.SessionChannelPattern)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, nil
		case msg, ok := <-ch:
			if !ok {
				return true, errSubscriptionClosed
			}
			h.handleEvent(ctx, msg.Channel, msg.Payload)
		}
	}
}

func (h *Hub) handleEvent(ctx context.Context, channel, raw string) {
	ctx, span := tracer.Start(ctx, "hub.handleEvent", trace.WithAttributes(
		attribute.String("event.channel", channel),
	))
	defer span.End()

	var event events.Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		slog.ErrorContext(ctx, "Could not unmarshal event", "channel", channel, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not unmarshal event")
		return
	}
	span.SetAttributes(attribute.String("event.type", event.Type))

	switch event.Type {
	case events.TypeSessionUpdated:
		var payload events.SessionUpdatedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			slog.ErrorContext(ctx, "Could not unmarshal session_updated payload", "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Could not unmarshal session_updated payload")
			return
		}
		h.deliver(ctx, payload.SessionID, payload.View)
	default:
		slog.WarnContext(ctx, "Ignoring unknown event", "event.type", event.Type)
	}
}
