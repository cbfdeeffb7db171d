package hub

import (
	"context"
	"ctchen222/solo-tic-tac-toe/internal/events"
	"ctchen222/solo-tic-tac-toe/internal/room"
	"ctchen222/solo-tic-tac-toe/internal/session"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("hub")

// Hub tracks the rooms open on this process and fans session updates out to them.
// With a Redis client, updates travel through Pub/Sub so rooms on other
// replicas sharing the same store see them too.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*room.Room]struct{}
	rdb   *redis.Client

	// subscribed is true while Run holds a live Pub/Sub subscription.
	subscribed atomic.Bool
	ready      chan struct{}
	readyOnce  sync.Once
	retryMin   time.Duration
	retryMax   time.Duration
}

// NewHub creates a hub that delivers updates in process.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[string]map[*room.Room]struct{}),
		ready:    make(chan struct{}),
		retryMin: 500 * time.Millisecond,
		retryMax: 30 * time.Second,
	}
}

// NewRedisHub creates a hub that relays updates through rdb.
func NewRedisHub(rdb *redis.Client) *Hub {
	h := NewHub()
	h.rdb = rdb
	return h
}

// Ready is closed once the hub first relays updates through Redis, or at
// once by Run when there is no Redis.
func (h *Hub) Ready() <-chan struct{} {
	return h.ready
}

func (h *Hub) markReady() {
	h.readyOnce.Do(func() { close(h.ready) })
}

// Publish implements service.Observer.
func (h *Hub) Publish(ctx context.Context, sessionID string, view session.View) {
	ctx, span := tracer.Start(ctx, "hub.Publish", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.Bool("hub.redis", h.rdb != nil),
	))
	defer span.End()

	if h.rdb == nil {
		h.deliver(ctx, sessionID, view)
		return
	}

	// Only a live subscription brings the update back to this replica's rooms.
	relayed := h.subscribed.Load()
	span.SetAttributes(attribute.Bool("hub.subscribed", relayed))

	event, err := events.NewSessionUpdated(sessionID, view)
	if err == nil {
		err = h.rdb.Publish(ctx, events.SessionChannel(sessionID), event).Err()
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to publish session update, delivering locally", "session.id", sessionID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to publish session update")
	}
	if err != nil || !relayed {
		h.deliver(ctx, sessionID, view)
	}
}

// deliver sends view to every local room bound to sessionID.
func (h *Hub) deliver(ctx context.Context, sessionID string, view session.View) {
	h.mu.RLock()
	targets := make([]*room.Room, 0, len(h.rooms[sessionID]))
	for r := range h.rooms[sessionID] {
		targets = append(targets, r)
	}
	h.mu.RUnlock()

	for _, r := range targets {
		r.SendView(ctx, view)
	}
}
