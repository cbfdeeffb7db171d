package service

import (
	"context"
	"ctchen222/solo-tic-tac-toe/internal/game"
	"ctchen222/solo-tic-tac-toe/internal/repository"
	"ctchen222/solo-tic-tac-toe/internal/session"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "service.session"

var tracer = otel.Tracer(instrumentationName)

var ErrInvalidMark = errors.New("mark must be X or O")

// Observer is told about the session's view after every operation.
type Observer interface {
	Publish(ctx context.Context, sessionID string, view session.View)
}

// SessionService defines the operations the UI layer drives.
type SessionService interface {
	Create(ctx context.Context) (string, session.View, error)
	Get(ctx context.Context, id string) (session.View, error)
	ChooseSymbol(ctx context.Context, id string, mark string) (session.View, error)
	PlayCellAt(ctx context.Context, id string, index int) (session.View, error)
	Restart(ctx context.Context, id string) (session.View, error)
	Close(ctx context.Context, id string) error
}

type sessionService struct {
	repo     repository.SessionRepository
	selector session.MoveSelector
	observer Observer
	meters   metric.MeterProvider
	locks    keyedMutex

	gamesStarted  metric.Int64Counter
	gamesFinished metric.Int64Counter
}

// Option configures a SessionService.
type Option func(*sessionService)

// WithObserver registers o to receive every resulting view.
func WithObserver(o Observer) Option {
	return func(s *sessionService) { s.observer = o }
}

// WithMeterProvider records metrics on mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *sessionService) { s.meters = mp }
}

// NewSessionService creates a new SessionService.
func NewSessionService(repo repository.SessionRepository, selector session.MoveSelector, opts ...Option) (SessionService, error) {
	s := &sessionService{
		repo:     repo,
		selector: selector,
		meters:   otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(s)
	}

	meter := s.meters.Meter(instrumentationName)
	gamesStarted, err := meter.Int64Counter("tictactoe.games.started",
		metric.WithDescription("Games started by a symbol choice or a restart"))
	if err != nil {
		return nil, fmt.Errorf("failed to create games started counter: %w", err)
	}
	gamesFinished, err := meter.Int64Counter("tictactoe.games.finished",
		metric.WithDescription("Games that reached a win or a draw"))
	if err != nil {
		return nil, fmt.Errorf("failed to create games finished counter: %w", err)
	}

	s.gamesStarted = gamesStarted
	s.gamesFinished = gamesFinished
	return s, nil
}

// Create registers a fresh session waiting for the symbol choice.
func (s *sessionService) Create(ctx context.Context) (string, session.View, error) {
	id := uuid.NewString()
	ctx, span := tracer.Start(ctx, "SessionService.Create", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	sess := session.New(s.selector)
	if err := s.repo.Save(ctx, id, sess.Snapshot()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save new session")
		return "", session.View{}, fmt.Errorf("failed to create session: %w", err)
	}

	slog.InfoContext(ctx, "Session created", "session.id", id)
	return id, sess.View(), nil
}

// Get returns the current view without changing anything.
func (s *sessionService) Get(ctx context.Context, id string) (session.View, error) {
	ctx, span := tracer.Start(ctx, "SessionService.Get", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	sess, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load session")
		return session.View{}, err
	}
	return sess.View(), nil
}

// ChooseSymbol starts the game with the human playing mark.
func (s *sessionService) ChooseSymbol(ctx context.Context, id string, mark string) (session.View, error) {
	m, err := game.ParseMark(mark)
	if err != nil {
		return session.View{}, fmt.Errorf("%w: %v", ErrInvalidMark, err)
	}
	return s.mutate(ctx, id, "ChooseSymbol", func(sess *session.Session) bool {
		return sess.ChooseSymbol(m)
	}, attribute.String("human.mark", string(m)))
}

// PlayCellAt plays the human's move and the computer's answer.
func (s *sessionService) PlayCellAt(ctx context.Context, id string, index int) (session.View, error) {
	return s.mutate(ctx, id, "PlayCellAt", func(sess *session.Session) bool {
		return sess.PlayCellAt(index)
	}, attribute.Int("cell.index", index))
}

// Restart clears the board, keeping the marks chosen earlier.
func (s *sessionService) Restart(ctx context.Context, id string) (session.View, error) {
	return s.mutate(ctx, id, "Restart", func(sess *session.Session) bool {
		return sess.Restart()
	})
}

// Close forgets the session.
func (s *sessionService) Close(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "SessionService.Close", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete session")
		return fmt.Errorf("failed to close session %s: %w", id, err)
	}

	slog.InfoContext(ctx, "Session closed", "session.id", id)
	return nil
}

// mutate runs op against the stored session under the session's lock and
// saves the result when op reports a change.
func (s *sessionService) mutate(ctx context.Context, id, op string, fn func(*session.Session) bool, attrs ...attribute.KeyValue) (session.View, error) {
	ctx, span := tracer.Start(ctx, "SessionService."+op, trace.WithAttributes(
		append(attrs, attribute.String("session.id", id))...,
	))
	defer span.End()

	view, err := s.apply(ctx, id, op, fn, span)
	if err != nil {
		return session.View{}, err
	}

	if s.observer != nil {
		s.observer.Publish(ctx, id, view)
	}
	return view, nil
}

// apply serialises operations on id within this process; the repository's
// Update keeps replicas sharing a store from overwriting each other.
func (s *sessionService) apply(ctx context.Context, id, op string, fn func(*session.Session) bool, span trace.Span) (session.View, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var (
		before  session.Phase
		view    session.View
		applied bool
	)
	err := s.repo.Update(ctx, id, func(snap *session.Snapshot) (bool, error) {
		sess, err := session.Restore(*snap, s.selector)
		if err != nil {
			return false, fmt.Errorf("failed to restore session %s: %w", id, err)
		}
		before = sess.Phase()
		applied = fn(sess)
		view = sess.View()
		if applied {
			*snap = sess.Snapshot()
		}
		return applied, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update session")
		return session.View{}, fmt.Errorf("%s on session %s failed: %w", op, id, err)
	}

	span.SetAttributes(attribute.Bool("op.applied", applied))
	if !applied {
		slog.DebugContext(ctx, "Ignored session operation", "session.id", id, "op", op, "phase", before)
		return view, nil
	}

	s.record(ctx, id, op, before, view)
	return view, nil
}

func (s *sessionService) record(ctx context.Context, id, op string, before session.Phase, view session.View) {
	if op == "ChooseSymbol" || op == "Restart" {
		s.gamesStarted.Add(ctx, 1, metric.WithAttributes(
			attribute.String("computer.mark", string(view.ComputerMark)),
		))
	}
	if view.Phase == session.PhaseEnded && before != session.PhaseEnded {
		result := resultOf(view)
		s.gamesFinished.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
		slog.InfoContext(ctx, "Game finished", "session.id", id, "result", result, "message", view.Message)
	}
}

func resultOf(view session.View) string {
	switch view.Winner {
	case game.None:
		return "draw"
	case view.HumanMark:
		return "human"
	default:
		return "computer"
	}
}

func (s *sessionService) load(ctx context.Context, id string) (*session.Session, error) {
	snap, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	sess, err := session.Restore(*snap, s.selector)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session %s: %w", id, err)
	}
	return sess, nil
}
