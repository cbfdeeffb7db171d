package game

import (
	"errors"
	"fmt"
)

// Mark represents the mark of a player (X, O) or an empty cell.
type Mark string

const (
	// Player marks
	None    Mark = ""
	PlayerX Mark = "X"
	PlayerO Mark = "O"

	// Board geometry
	BoardSize   = 9
	CenterIndex = 4
)

var (
	ErrOutOfRange   = errors.New("cell index out of range")
	ErrCellOccupied = errors.New("cell already occupied")
	ErrInvalidMark  = errors.New("invalid mark")
)

// Lines holds every winning triple: rows, columns, then diagonals.
var Lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Corners lists the corner indices in ascending order.
var Corners = [4]int{0, 2, 6, 8}

// Board is a 3x3 grid stored row-major: 0,1,2 / 3,4,5 / 6,7,8.
type Board [BoardSize]Mark

// ParseMark converts "X" or "O" into a Mark.
func ParseMark(s string) (Mark, error) {
	switch Mark(s) {
	case PlayerX, PlayerO:
		return Mark(s), nil
	}
	return None, fmt.Errorf("%w: %q", ErrInvalidMark, s)
}

// Valid reports whether m is X or O.
func (m Mark) Valid() bool {
	return m == PlayerX || m == PlayerO
}

// Opponent returns the other player's mark.
func (m Mark) Opponent() Mark {
	if m == PlayerX {
		return PlayerO
	}
	return PlayerX
}

// ApplyMove places mark at index. It never overwrites an occupied cell.
func (b *Board) ApplyMove(index int, mark Mark) error {
	if index < 0 || index >= BoardSize {
		return fmt.Errorf("%w: %d", ErrOutOfRange, index)
	}
	if !mark.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMark, mark)
	}
	if b[index] != None {
		return fmt.Errorf("%w: %d", ErrCellOccupied, index)
	}
	b[index] = mark
	return nil
}

// IsEmpty reports whether index is inside the board and unoccupied.
func (b Board) IsEmpty(index int) bool {
	return index >= 0 && index < BoardSize && b[index] == None
}

// EmptyCells returns the unoccupied indices in ascending order.
func (b Board) EmptyCells() []int {
	cells := make([]int, 0, BoardSize)
	for i, cell := range b {
		if cell == None {
			cells = append(cells, i)
		}
	}
	return cells
}

// CheckWin reports whether any line is filled entirely with mark.
func CheckWin(b Board, mark Mark) bool {
	if !mark.Valid() {
		return false
	}
	for _, line := range Lines {
		if b[line[0]] == mark && b[line[1]] == mark && b[line[2]] == mark {
			return true
		}
	}
	return false
}

// CheckDraw reports whether the board has no empty cell left.
// Callers must check for a win first: a full board with a line is a win.
func CheckDraw(b Board) bool {
	for _, cell := range b {
		if cell == None {
			return false
		}
	}
	return true
}
