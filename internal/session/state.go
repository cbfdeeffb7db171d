package session

import (
	"ctchen222/solo-tic-tac-toe/internal/game"
	"errors"
	"fmt"
)

// Phase is the turn controller's state.
type Phase string

const (
	PhaseAwaitingSymbol Phase = "awaiting_symbol"
	PhaseActive         Phase = "active"
	PhaseEnded          Phase = "ended"
)

// Status messages shown to the player.
const (
	MessageChooseSymbol = "Choose X or O to start"
	MessageYourTurn     = "Your turn!"
	MessageHumanWon     = "You won!"
	MessageComputerWon  = "Computer won!"
	MessageDraw         = "Game ended in a draw!"
)

var ErrInvalidSnapshot = errors.New("invalid session snapshot")

// View is what the UI renders.
type View struct {
	Board        game.Board `json:"board"`
	Message      string     `json:"message"`
	ShowBoard    bool       `json:"showBoard"`
	Phase        Phase      `json:"phase"`
	Active       bool       `json:"active"`
	HumanMark    game.Mark  `json:"humanMark,omitempty"`
	ComputerMark game.Mark  `json:"computerMark,omitempty"`
	Winner       game.Mark  `json:"winner,omitempty"`
}

// Snapshot is the serialisable state of a Session.
type Snapshot struct {
	Board        game.Board `json:"board"`
	HumanMark    game.Mark  `json:"human_mark"`
	ComputerMark game.Mark  `json:"computer_mark"`
	Phase        Phase      `json:"phase"`
	Message      string     `json:"message"`
	Winner       game.Mark  `json:"winner"`
}

func (s Snapshot) validate() error {
	switch s.Phase {
	case PhaseAwaitingSymbol:
		if s.HumanMark != game.None || s.ComputerMark != game.None {
			return fmt.Errorf("%w: marks assigned before symbol choice", ErrInvalidSnapshot)
		}
		return nil
	case PhaseActive, PhaseEnded:
	default:
		return fmt.Errorf("%w: unknown phase %q", ErrInvalidSnapshot, s.Phase)
	}
	if !s.HumanMark.Valid() || s.ComputerMark != s.HumanMark.Opponent() {
		return fmt.Errorf("%w: marks %q/%q", ErrInvalidSnapshot, s.HumanMark, s.ComputerMark)
	}
	for i, cell := range s.Board {
		if cell != game.None && !cell.Valid() {
			return fmt.Errorf("%w: cell %d holds %q", ErrInvalidSnapshot, i, cell)
		}
	}
	return nil
}
