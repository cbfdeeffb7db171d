package room

import (
	"context"
	"ctchen222/solo-tic-tac-toe/internal/repository"
	"ctchen222/solo-tic-tac-toe/internal/validator"
	"ctchen222/solo-tic-tac-toe/pkg/proto"
	"encoding/json"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HandleMessage handles a frame from the player. It acts as a dispatcher.
// Resulting views reach the player through the service's observer.
func (r *Room) HandleMessage(ctx context.Context, rawMessage []byte) {
	ctx, span := tracer.Start(ctx, "room.HandleMessage", trace.WithAttributes(
		attribute.String("session.id", r.ID),
	))
	defer span.End()

	var message proto.ClientToServerMessage
	if err := json.Unmarshal(rawMessage, &message); err != nil {
		slog.WarnContext(ctx, "error unmarshalling message", "session.id", r.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error unmarshalling message")
		r.sendError(ctx, "malformed message")
		return
	}

	if err := validator.GetValidator().Struct(message); err != nil {
		slog.WarnContext(ctx, "invalid message from player", "session.id", r.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid message format")
		r.sendError(ctx, "invalid message")
		return
	}

	span.SetAttributes(attribute.String("message.type", message.Type))

	var err error
	switch message.Type {
	case proto.TypeChoose:
		if message.Mark == "" {
			r.sendError(ctx, "mark is required")
			return
		}
		_, err = r.service.ChooseSymbol(ctx, r.ID, message.Mark)
	case proto.TypeMove:
		if message.Position == nil {
			r.sendError(ctx, "position is required")
			return
		}
		span.SetAttributes(attribute.Int("cell.index", *message.Position))
		_, err = r.service.PlayCellAt(ctx, r.ID, *message.Position)
	case proto.TypeRestart:
		_, err = r.service.Restart(ctx, r.ID)
	}

	if err != nil {
		slog.ErrorContext(ctx, "session operation failed", "session.id", r.ID, "message.type", message.Type, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Session operation failed")
		if errors.Is(err, repository.ErrSessionNotFound) {
			r.sendError(ctx, "session not found")
			return
		}
		r.sendError(ctx, "internal error")
	}
}
