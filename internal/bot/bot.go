package bot

import (
	"ctchen222/solo-tic-tac-toe/internal/game"
	"math/rand/v2"
	"sync"
	"time"
)

// Selector implements session.MoveSelector on top of NextMove.
// A single Selector may be shared by many sessions.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a Selector whose random choices are fully determined by seed.
func NewSelector(seed uint64) *Selector {
	return &Selector{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewTimeSeededSelector creates a Selector seeded from the wall clock.
func NewTimeSeededSelector() *Selector {
	return NewSelector(uint64(time.Now().UnixNano()))
}

// SelectMove returns the computer's cell for board.
func (s *Selector) SelectMove(board game.Board, computerMark, humanMark game.Mark) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NextMove(board, computerMark, humanMark, s.rng)
}
