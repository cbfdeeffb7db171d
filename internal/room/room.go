package room

import (
	"context"
	"ctchen222/solo-tic-tac-toe/internal/service"
	"ctchen222/solo-tic-tac-toe/internal/session"
	"ctchen222/solo-tic-tac-toe/pkg/proto"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	heartbeatInterval = 10 * time.Second
)

var tracer = otel.Tracer("room")

// Connection is an interface that abstracts the websocket connection.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// Room binds one websocket connection to one game session.
type Room struct {
	ID        string
	conn      Connection
	service   service.SessionService
	writeMu   sync.Mutex
	heartbeat time.Duration
	Done      chan struct{}
}

// NewRoom creates a room for the session id served over conn.
func NewRoom(id string, conn Connection, svc service.SessionService) *Room {
	return &Room{
		ID:        id,
		conn:      conn,
		service:   svc,
		heartbeat: heartbeatInterval,
		Done:      make(chan struct{}),
	}
}

// Start pings the client in the background and reads frames until the
// connection fails or ctx is cancelled.
func (r *Room) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go r.runHeartbeat(ctx)
	r.ReadPump(ctx)
}

// ReadPump feeds every frame from the connection to HandleMessage, one at a time.
func (r *Room) ReadPump(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "room.ReadPump", trace.WithAttributes(
		attribute.String("session.id", r.ID),
	))
	defer span.End()

	defer func() {
		r.conn.Close()
		close(r.Done)
		slog.InfoContext(ctx, "Player disconnected", "session.id", r.ID)
	}()

	for {
		_, msg, err := r.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.WarnContext(ctx, "Player connection error", "session.id", r.ID, "error", err)
				span.RecordError(err)
				span.SetStatus(codes.Error, "Player connection error")
			}
			return
		}
		r.HandleMessage(ctx, msg)
	}
}

func (r *Room) runHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.Done:
			return
		case <-ticker.C:
			r.writeMu.Lock()
			err := r.conn.WriteMessage(websocket.PingMessage, nil)
			r.writeMu.Unlock()
			if err != nil {
				slog.Warn("Failed to send ping to player, assuming disconnect", "session.id", r.ID, "error", err)
				return
			}
		}
	}
}

// Send writes message to the client.
func (r *Room) Send(message *proto.ServerToClientMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", message.Type, err)
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if err := r.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write %s message: %w", message.Type, err)
	}
	return nil
}

// SendView pushes the current view as an update.
func (r *Room) SendView(ctx context.Context, view session.View) {
	if err := r.Send(proto.NewUpdate(view)); err != nil {
		slog.ErrorContext(ctx, "error writing update to player", "session.id", r.ID, "error", err)
	}
}

func (r *Room) sendError(ctx context.Context, reason string) {
	if err := r.Send(proto.NewError(reason)); err != nil {
		slog.ErrorContext(ctx, "error writing error message to player", "session.id", r.ID, "error", err)
	}
}
