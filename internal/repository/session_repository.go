package repository

import (
	"context"
	"ctchen222/solo-tic-tac-toe/internal/session"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

//go:generate mockgen -source=session_repository.go -destination=mocks/session_repository_mock.go -package=mocks

var tracer = otel.Tracer("repository.session")

// maxUpdateAttempts bounds how often Update retries after losing a race.
const maxUpdateAttempts = 10

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUpdateConflict  = errors.New("session kept changing during update")
)

// UpdateFunc edits snap in place and reports whether anything changed.
// It may run more than once for a single Update call.
type UpdateFunc func(snap *session.Snapshot) (bool, error)

// SessionRepository defines the interface for session snapshot storage.
type SessionRepository interface {
	Save(ctx context.Context, id string, snap session.Snapshot) error
	FindByID(ctx context.Context, id string) (*session.Snapshot, error)
	// Update is an atomic read-modify-write of one session. Nothing is
	// written when fn fails or reports no change.
	Update(ctx context.Context, id string, fn UpdateFunc) error
	Delete(ctx context.Context, id string) error
}

type redisSessionRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSessionRepository creates a Redis-based SessionRepository.
// Every save refreshes the key's expiry to ttl.
func NewRedisSessionRepository(rdb *redis.Client, ttl time.Duration) SessionRepository {
	return &redisSessionRepository{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// Save stores the snapshot as JSON under session:<id>.
func (r *redisSessionRepository) Save(ctx context.Context, id string, snap session.Snapshot) error {
	ctx, span := tracer.Start(ctx, "SessionRepository.Save", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	data, err := json.Marshal(snap)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to marshal snapshot")
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}

	if err := r.rdb.Set(ctx, sessionKey(id), data, r.ttl).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save session")
		return fmt.Errorf("failed to save session in redis: %w", err)
	}
	return nil
}

// FindByID loads the snapshot stored under session:<id>.
func (r *redisSessionRepository) FindByID(ctx context.Context, id string) (*session.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "SessionRepository.FindByID", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	data, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to get session")
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}

	var snap session.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to unmarshal snapshot")
		return nil, fmt.Errorf("failed to unmarshal session snapshot: %w", err)
	}
	return &snap, nil
}

// Update watches session:<id> so a write from another replica between the
// read and the write aborts the transaction, and fn is retried on fresh data.
func (r *redisSessionRepository) Update(ctx context.Context, id string, fn UpdateFunc) error {
	ctx, span := tracer.Start(ctx, "SessionRepository.Update", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	key := sessionKey(id)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get session from redis: %w", err)
		}

		var snap session.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("failed to unmarshal session snapshot: %w", err)
		}

		changed, err := fn(&snap)
		if err != nil || !changed {
			return err
		}

		newData, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("failed to marshal session snapshot: %w", err)
		}

		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, newData, r.ttl)
		_, err = pipe.Exec(ctx)
		return err
	}

	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		err := r.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			span.AddEvent("session changed concurrently, retrying", trace.WithAttributes(
				attribute.Int("attempt", attempt),
			))
			continue
		}
		if err != nil && !errors.Is(err, ErrSessionNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to update session")
		}
		return err
	}

	span.RecordError(ErrUpdateConflict)
	span.SetStatus(codes.Error, "Too many concurrent updates")
	return fmt.Errorf("failed to update session %s: %w", id, ErrUpdateConflict)
}

// Delete removes the session key.
func (r *redisSessionRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "SessionRepository.Delete", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	if err := r.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete session")
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}
