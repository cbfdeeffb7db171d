package repository

import (
	"context"
	"ctchen222/solo-tic-tac-toe/internal/session"
	"sync"
	"time"
)

type memoryEntry struct {
	snap      session.Snapshot
	expiresAt time.Time
}

type memorySessionRepository struct {
	mu        sync.RWMutex
	sessions  map[string]memoryEntry
	ttl       time.Duration
	now       func() time.Time
	nextSweep time.Time
}

// NewMemorySessionRepository creates an in-process SessionRepository.
// Entries expire ttl after their last save. Expired entries are dropped when
// read and by a sweep that runs on writes at most once per ttl.
func NewMemorySessionRepository(ttl time.Duration) SessionRepository {
	return &memorySessionRepository{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (r *memorySessionRepository) Save(_ context.Context, id string, snap session.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.storeLocked(id, snap)
	return nil
}

func (r *memorySessionRepository) FindByID(_ context.Context, id string) (*session.Snapshot, error) {
	r.mu.RLock()
	entry, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if r.now().After(entry.expiresAt) {
		r.mu.Lock()
		if current, ok := r.sessions[id]; ok && r.now().After(current.expiresAt) {
			delete(r.sessions, id)
		}
		r.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	snap := entry.snap
	return &snap, nil
}

// Update runs fn under the store's write lock, so it never interleaves with
// another write to the same session.
func (r *memorySessionRepository) Update(_ context.Context, id string, fn UpdateFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[id]
	if !ok || r.now().After(entry.expiresAt) {
		delete(r.sessions, id)
		return ErrSessionNotFound
	}

	snap := entry.snap
	changed, err := fn(&snap)
	if err != nil || !changed {
		return err
	}
	r.storeLocked(id, snap)
	return nil
}

func (r *memorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

func (r *memorySessionRepository) storeLocked(id string, snap session.Snapshot) {
	now := r.now()
	r.sweepLocked(now)
	r.sessions[id] = memoryEntry{snap: snap, expiresAt: now.Add(r.ttl)}
}

func (r *memorySessionRepository) sweepLocked(now time.Time) {
	if now.Before(r.nextSweep) {
		return
	}
	for id, entry := range r.sessions {
		if now.After(entry.expiresAt) {
			delete(r.sessions, id)
		}
	}
	r.nextSweep = now.Add(r.ttl)
}
