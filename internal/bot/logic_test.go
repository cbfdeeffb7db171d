package bot

import (
	"ctchen222/solo-tic-tac-toe/internal/game"
	"math/rand/v2"
	"slices"
	"testing"
)

const (
	x = game.PlayerX
	o = game.PlayerO
	e = game.None
)

func boardOf(cells ...game.Mark) game.Board {
	var b game.Board
	copy(b[:], cells)
	return b
}

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestFindWinningMove(t *testing.T) {
	tests := []struct {
		name      string
		board     game.Board
		mark      game.Mark
		wantIndex int
		wantFound bool
	}{
		{
			name:      "No winning move - empty board",
			board:     game.Board{},
			mark:      x,
			wantIndex: -1, wantFound: false,
		},
		{
			name:      "X can win - first row",
			board:     boardOf(x, x, e, o, o, e, e, e, e),
			mark:      x,
			wantIndex: 2, wantFound: true,
		},
		{
			name:      "O can win - second column",
			board:     boardOf(x, o, e, x, o, e, e, e, e),
			mark:      o,
			wantIndex: 7, wantFound: true,
		},
		{
			name:      "X can win - gap in the middle of the main diagonal",
			board:     boardOf(x, e, e, e, e, e, e, e, x),
			mark:      x,
			wantIndex: 4, wantFound: true,
		},
		{
			name:      "O can win - anti-diagonal",
			board:     boardOf(e, e, o, e, o, e, e, e, e),
			mark:      o,
			wantIndex: 6, wantFound: true,
		},
		{
			name:      "Two winning cells - lowest index wins",
			board:     boardOf(e, x, x, e, e, e, e, x, x),
			mark:      x,
			wantIndex: 0, wantFound: true,
		},
		{
			name:      "Full board, no win possible",
			board:     boardOf(x, o, x, o, x, o, o, x, o),
			mark:      x,
			wantIndex: -1, wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index, found := findWinningMove(tt.board, tt.mark)
			if index != tt.wantIndex || found != tt.wantFound {
				t.Errorf("findWinningMove() got (%d, %v), want (%d, %v)", index, found, tt.wantIndex, tt.wantFound)
			}
		})
	}
}

func TestNextMove(t *testing.T) {
	tests := []struct {
		name         string
		board        game.Board
		botMark      game.Mark
		wantIndex    int
		wantOneOf    []int
		wantNoMoveOK bool
	}{
		{
			name:      "Win beats everything",
			board:     boardOf(x, x, e, e, o, e, e, e, e),
			botMark:   x,
			wantIndex: 2,
		},
		{
			name:      "Win beats block",
			board:     boardOf(o, o, e, x, x, e, e, e, e),
			botMark:   x,
			wantIndex: 5,
		},
		{
			name:      "Block when no win",
			board:     boardOf(o, o, e, e, x, e, e, e, e),
			botMark:   x,
			wantIndex: 2,
		},
		{
			name:      "Center on empty board",
			board:     game.Board{},
			botMark:   x,
			wantIndex: 4,
		},
		{
			name:      "Corner when center is taken",
			board:     boardOf(e, e, e, e, x, e, e, e, e),
			botMark:   o,
			wantOneOf: []int{0, 2, 6, 8},
		},
		{
			name:      "Remaining corner only",
			board:     boardOf(x, o, x, e, o, e, o, x, e),
			botMark:   x,
			wantIndex: 8,
		},
		{
			name:      "Any empty cell when no rule above applies",
			board:     boardOf(x, e, o, o, x, x, x, e, o),
			botMark:   o,
			wantOneOf: []int{1, 7},
		},
		{
			name:         "Full board",
			board:        boardOf(x, o, x, o, x, o, o, x, o),
			botMark:      x,
			wantNoMoveOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index, ok := NextMove(tt.board, tt.botMark, tt.botMark.Opponent(), testRNG())
			if tt.wantNoMoveOK {
				if ok || index != -1 {
					t.Errorf("NextMove() on a full board got (%d, %v), want (-1, false)", index, ok)
				}
				return
			}
			if !ok {
				t.Fatalf("NextMove() found no move on %v", tt.board)
			}
			if !tt.board.IsEmpty(index) {
				t.Fatalf("NextMove() returned occupied cell %d", index)
			}
			switch {
			case tt.wantOneOf != nil:
				if !slices.Contains(tt.wantOneOf, index) {
					t.Errorf("NextMove() got %d, want one of %v", index, tt.wantOneOf)
				}
			case tt.wantIndex >= 0:
				if index != tt.wantIndex {
					t.Errorf("NextMove() got %d, want %d", index, tt.wantIndex)
				}
			}
		})
	}
}

func TestNextMoveBlocksAfterWinCheck(t *testing.T) {
	// X threatens 2 and O has nothing to complete: O must block.
	board := boardOf(x, x, e, e, o, e, e, e, e)
	index, ok := NextMove(board, o, x, testRNG())
	if !ok || index != 2 {
		t.Errorf("NextMove() got (%d, %v), want (2, true)", index, ok)
	}
}

func TestNextMoveCornerIsUniform(t *testing.T) {
	board := boardOf(e, e, e, e, x, e, e, e, e)
	rng := testRNG()
	seen := map[int]int{}
	for range 400 {
		index, ok := NextMove(board, o, x, rng)
		if !ok {
			t.Fatal("NextMove() found no move")
		}
		seen[index]++
	}
	for _, corner := range game.Corners {
		if seen[corner] == 0 {
			t.Errorf("corner %d never chosen over 400 draws: %v", corner, seen)
		}
	}
	if len(seen) != len(game.Corners) {
		t.Errorf("non-corner cells chosen: %v", seen)
	}
}

func TestNextMoveNeverReturnsOccupiedCell(t *testing.T) {
	rng := testRNG()
	for round := range 500 {
		var board game.Board
		mark := x
		for {
			index, ok := NextMove(board, mark, mark.Opponent(), rng)
			if !ok {
				if !game.CheckDraw(board) {
					t.Fatalf("round %d: no move on non-full board %v", round, board)
				}
				break
			}
			if err := board.ApplyMove(index, mark); err != nil {
				t.Fatalf("round %d: NextMove() returned unusable cell: %v", round, err)
			}
			if game.CheckWin(board, mark) {
				break
			}
			mark = mark.Opponent()
		}
	}
}
