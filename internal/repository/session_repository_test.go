package repository

import (
	"context"
	"ctchen222/solo-tic-tac-toe/internal/game"
	"ctchen222/solo-tic-tac-toe/internal/session"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func activeSnapshot() session.Snapshot {
	return session.Snapshot{
		Board:        game.Board{game.PlayerX, game.None, game.None, game.None, game.PlayerO},
		HumanMark:    game.PlayerX,
		ComputerMark: game.PlayerO,
		Phase:        session.PhaseActive,
		Message:      session.MessageYourTurn,
	}
}

// newRedisClient starts a throwaway Redis container for the test.
func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	connString, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(connString)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func exerciseRepository(t *testing.T, repo SessionRepository) {
	ctx := context.Background()

	t.Run("FindByID_NotFound", func(t *testing.T) {
		snap, err := repo.FindByID(ctx, "missing")
		require.ErrorIs(t, err, ErrSessionNotFound)
		assert.Nil(t, snap)
	})

	t.Run("Save_FindByID", func(t *testing.T) {
		// Given: a saved active session
		want := activeSnapshot()
		require.NoError(t, repo.Save(ctx, "s1", want))

		// When: it is loaded back
		got, err := repo.FindByID(ctx, "s1")

		// Then: the snapshot is unchanged
		require.NoError(t, err)
		assert.Equal(t, want, *got)
	})

	t.Run("Save_Overwrites", func(t *testing.T) {
		first := activeSnapshot()
		require.NoError(t, repo.Save(ctx, "s2", first))

		second := first
		second.Phase = session.PhaseEnded
		second.Message = session.MessageHumanWon
		second.Winner = game.PlayerX
		require.NoError(t, repo.Save(ctx, "s2", second))

		got, err := repo.FindByID(ctx, "s2")
		require.NoError(t, err)
		assert.Equal(t, second, *got)
	})

	t.Run("Update_NotFound", func(t *testing.T) {
		called := false
		err := repo.Update(ctx, "missing", func(*session.Snapshot) (bool, error) {
			called = true
			return true, nil
		})
		assert.ErrorIs(t, err, ErrSessionNotFound)
		assert.False(t, called)
	})

	t.Run("Update_Writes", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, "u1", activeSnapshot()))

		err := repo.Update(ctx, "u1", func(snap *session.Snapshot) (bool, error) {
			snap.Board[8] = game.PlayerX
			return true, nil
		})
		require.NoError(t, err)

		got, err := repo.FindByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, game.PlayerX, got.Board[8])
	})

	t.Run("Update_NoChangeOrErrorWritesNothing", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, "u2", activeSnapshot()))
		errBoom := errors.New("boom")

		err := repo.Update(ctx, "u2", func(snap *session.Snapshot) (bool, error) {
			snap.Board[8] = game.PlayerX
			return false, nil
		})
		require.NoError(t, err)

		err = repo.Update(ctx, "u2", func(snap *session.Snapshot) (bool, error) {
			snap.Board[7] = game.PlayerX
			return true, errBoom
		})
		require.ErrorIs(t, err, errBoom)

		got, err := repo.FindByID(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, activeSnapshot(), *got)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, "s3", activeSnapshot()))
		require.NoError(t, repo.Delete(ctx, "s3"))

		_, err := repo.FindByID(ctx, "s3")
		assert.ErrorIs(t, err, ErrSessionNotFound)

		// Deleting twice is fine.
		assert.NoError(t, repo.Delete(ctx, "s3"))
	})
}

func TestMemorySessionRepository(t *testing.T) {
	exerciseRepository(t, NewMemorySessionRepository(time.Minute))
}

func TestMemorySessionRepository_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	repo := NewMemorySessionRepository(time.Minute).(*memorySessionRepository)
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Save(ctx, "s1", activeSnapshot()))

	now = now.Add(59 * time.Second)
	_, err := repo.FindByID(ctx, "s1")
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = repo.FindByID(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, repo.sessions)
}

func TestMemorySessionRepository_SweepsUnreadEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	repo := NewMemorySessionRepository(time.Minute).(*memorySessionRepository)
	repo.now = func() time.Time { return now }

	// Given: many sessions that are created and never read again
	for i := range 500 {
		require.NoError(t, repo.Save(ctx, fmt.Sprintf("abandoned-%d", i), activeSnapshot()))
	}

	// When: they expire and another session is written
	now = now.Add(time.Minute + time.Second)
	require.NoError(t, repo.Save(ctx, "fresh", activeSnapshot()))

	// Then: only the live session is held
	assert.Len(t, repo.sessions, 1)
	assert.Contains(t, repo.sessions, "fresh")
}

func TestMemorySessionRepository_SweepKeepsLiveEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	repo := NewMemorySessionRepository(time.Minute).(*memorySessionRepository)
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Save(ctx, "old", activeSnapshot()))
	now = now.Add(40 * time.Second)
	require.NoError(t, repo.Save(ctx, "young", activeSnapshot()))

	now = now.Add(30 * time.Second)
	require.NoError(t, repo.Update(ctx, "young", func(snap *session.Snapshot) (bool, error) {
		snap.Board[8] = game.PlayerX
		return true, nil
	}))

	assert.NotContains(t, repo.sessions, "old")
	assert.Contains(t, repo.sessions, "young")
}

func TestMemorySessionRepository_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository(time.Minute)
	require.NoError(t, repo.Save(ctx, "s1", activeSnapshot()))

	got, err := repo.FindByID(ctx, "s1")
	require.NoError(t, err)
	got.Board[8] = game.PlayerO

	again, err := repo.FindByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, game.None, again.Board[8])
}

func TestRedisSessionRepository(t *testing.T) {
	client := newRedisClient(t)
	exerciseRepository(t, NewRedisSessionRepository(client, time.Minute))
}

func TestRedisSessionRepository_SetsTTL(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()
	repo := NewRedisSessionRepository(client, time.Minute)

	require.NoError(t, repo.Save(ctx, "ttl", activeSnapshot()))

	ttl, err := client.TTL(ctx, sessionKey("ttl")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestRedisSessionRepository_CorruptPayload(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()
	repo := NewRedisSessionRepository(client, time.Minute)

	require.NoError(t, client.Set(ctx, sessionKey("bad"), "{not json", time.Minute).Err())

	_, err := repo.FindByID(ctx, "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionRepository_UpdateRetriesAfterConcurrentWrite(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()

	// Two stores on one Redis stand in for two replicas.
	other := redis.NewClient(client.Options())
	t.Cleanup(func() { _ = other.Close() })
	replicaA := NewRedisSessionRepository(client, time.Minute)
	replicaB := NewRedisSessionRepository(other, time.Minute)

	require.NoError(t, replicaA.Save(ctx, "race", activeSnapshot()))

	attempts := 0
	err := replicaA.Update(ctx, "race", func(snap *session.Snapshot) (bool, error) {
		attempts++
		if attempts == 1 {
			// Replica B commits its move between A's read and A's write.
			require.NoError(t, replicaB.Update(ctx, "race", func(other *session.Snapshot) (bool, error) {
				other.Board[1] = game.PlayerX
				return true, nil
			}))
		}
		snap.Board[2] = game.PlayerO
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	got, err := replicaA.FindByID(ctx, "race")
	require.NoError(t, err)
	assert.Equal(t, game.PlayerX, got.Board[1], "B's write survives")
	assert.Equal(t, game.PlayerO, got.Board[2], "A's write lands on top of it")
}

func TestRedisSessionRepository_ConcurrentUpdatesAreNotLost(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()

	other := redis.NewClient(client.Options())
	t.Cleanup(func() { _ = other.Close() })
	replicas := []SessionRepository{
		NewRedisSessionRepository(client, time.Minute),
		NewRedisSessionRepository(other, time.Minute),
	}

	var empty session.Snapshot
	empty.Phase = session.PhaseActive
	require.NoError(t, replicas[0].Save(ctx, "busy", empty))

	var wg sync.WaitGroup
	for i := range game.BoardSize {
		wg.Add(1)
		go func(cell int) {
			defer wg.Done()
			err := replicas[cell%2].Update(ctx, "busy", func(snap *session.Snapshot) (bool, error) {
				snap.Board[cell] = game.PlayerX
				return true, nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := replicas[0].FindByID(ctx, "busy")
	require.NoError(t, err)
	for i, cell := range got.Board {
		assert.Equal(t, game.PlayerX, cell, "write to cell %d was lost", i)
	}
}
