// Package session holds the turn controller for one game against the computer.
//
// A Session is not safe for concurrent use; callers handle one interaction to
// completion before starting the next.
package session

import (
	"ctchen222/solo-tic-tac-toe/internal/game"
	"fmt"
)

// MoveSelector defines an agent that picks the computer's cell.
// It returns false only when the board has no empty cell.
type MoveSelector interface {
	SelectMove(board game.Board, computerMark, humanMark game.Mark) (int, bool)
}

// Session is a single game between the human and the computer.
type Session struct {
	board        game.Board
	humanMark    game.Mark
	computerMark game.Mark
	phase        Phase
	message      string
	winner       game.Mark
	selector     MoveSelector
}

// New creates a session waiting for the human to choose a symbol.
func New(selector MoveSelector) *Session {
	return &Session{
		phase:    PhaseAwaitingSymbol,
		message:  MessageChooseSymbol,
		selector: selector,
	}
}

// Restore rebuilds a session from a snapshot.
func Restore(snap Snapshot, selector MoveSelector) (*Session, error) {
	if err := snap.validate(); err != nil {
		return nil, err
	}
	return &Session{
		board:        snap.Board,
		humanMark:    snap.HumanMark,
		computerMark: snap.ComputerMark,
		phase:        snap.Phase,
		message:      snap.Message,
		winner:       snap.Winner,
		selector:     selector,
	}, nil
}

// ChooseSymbol starts the game with the human playing mark.
// If the computer ends up with X it moves first.
// It reports whether the session changed; outside the symbol choice it is a no-op.
func (s *Session) ChooseSymbol(mark game.Mark) bool {
	if s.phase != PhaseAwaitingSymbol || !mark.Valid() {
		return false
	}
	s.humanMark = mark
	s.computerMark = mark.Opponent()
	s.begin()
	return true
}

// PlayCellAt places the human's mark at index and lets the computer answer.
// Moves on occupied cells, out of range or outside an active game are ignored.
func (s *Session) PlayCellAt(index int) bool {
	if s.phase != PhaseActive || !s.board.IsEmpty(index) {
		return false
	}
	s.place(index, s.humanMark)
	if s.phase == PhaseActive {
		s.computerMove()
	}
	return true
}

// Restart clears the board and plays again with the same marks.
func (s *Session) Restart() bool {
	if s.phase == PhaseAwaitingSymbol {
		return false
	}
	s.begin()
	return true
}

// Active reports whether the session accepts moves.
func (s *Session) Active() bool {
	return s.phase == PhaseActive
}

// Phase returns the controller state.
func (s *Session) Phase() Phase {
	return s.phase
}

// View returns what the UI should render.
func (s *Session) View() View {
	return View{
		Board:        s.board,
		Message:      s.message,
		ShowBoard:    s.phase != PhaseAwaitingSymbol,
		Phase:        s.phase,
		Active:       s.Active(),
		HumanMark:    s.humanMark,
		ComputerMark: s.computerMark,
		Winner:       s.winner,
	}
}

// Snapshot returns the serialisable state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Board:        s.board,
		HumanMark:    s.humanMark,
		ComputerMark: s.computerMark,
		Phase:        s.phase,
		Message:      s.message,
		Winner:       s.winner,
	}
}

func (s *Session) begin() {
	s.board = game.Board{}
	s.phase = PhaseActive
	s.message = MessageYourTurn
	s.winner = game.None
	if s.computerMark == game.PlayerX {
		s.computerMove()
	}
}

func (s *Session) computerMove() {
	index, ok := s.selector.SelectMove(s.board, s.computerMark, s.humanMark)
	if !ok {
		panic("session: computer asked to move on a full board")
	}
	s.place(index, s.computerMark)
}

// place applies a move, then checks win before draw.
func (s *Session) place(index int, mark game.Mark) {
	if err := s.board.ApplyMove(index, mark); err != nil {
		panic(fmt.Sprintf("session: %v", err))
	}
	switch {
	case game.CheckWin(s.board, mark):
		s.end(mark)
	case game.CheckDraw(s.board):
		s.end(game.None)
	}
}

func (s *Session) end(winner game.Mark) {
	s.phase = PhaseEnded
	s.winner = winner
	switch winner {
	case game.None:
		s.message = MessageDraw
	case s.humanMark:
		s.message = MessageHumanWon
	default:
		s.message = MessageComputerWon
	}
}
