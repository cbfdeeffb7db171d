package bot

import (
	"ctchen222/solo-tic-tac-toe/internal/game"
	"math/rand/v2"
)

// rule proposes a cell for the bot, or reports that it has nothing to offer.
type rule func(board game.Board, botMark, opponentMark game.Mark, rng *rand.Rand) (int, bool)

// rules are tried in order; the first one that finds a cell wins.
var rules = []rule{
	winNow,
	block,
	takeCenter,
	takeCorner,
	takeAny,
}

// NextMove picks the bot's cell using the fixed priority order:
// win, block, center, random corner, random empty cell.
// It returns false only when the board has no empty cell.
func NextMove(board game.Board, botMark, opponentMark game.Mark, rng *rand.Rand) (int, bool) {
	for _, r := range rules {
		if index, ok := r(board, botMark, opponentMark, rng); ok {
			return index, true
		}
	}
	return -1, false
}

// 1. Win: complete a line for the bot.
func winNow(board game.Board, botMark, _ game.Mark, _ *rand.Rand) (int, bool) {
	return findWinningMove(board, botMark)
}

// 2. Block: take the cell the opponent would win on.
func block(board game.Board, _, opponentMark game.Mark, _ *rand.Rand) (int, bool) {
	return findWinningMove(board, opponentMark)
}

// 3. Center
func takeCenter(board game.Board, _, _ game.Mark, _ *rand.Rand) (int, bool) {
	if board.IsEmpty(game.CenterIndex) {
		return game.CenterIndex, true
	}
	return -1, false
}

// 4. Corners: an available corner at random.
func takeCorner(board game.Board, _, _ game.Mark, rng *rand.Rand) (int, bool) {
	availableCorners := make([]int, 0, len(game.Corners))
	for _, corner := range game.Corners {
		if board.IsEmpty(corner) {
			availableCorners = append(availableCorners, corner)
		}
	}
	return pickRandom(availableCorners, rng)
}

// 5. Anything left, at random.
func takeAny(board game.Board, _, _ game.Mark, rng *rand.Rand) (int, bool) {
	return pickRandom(board.EmptyCells(), rng)
}

func pickRandom(cells []int, rng *rand.Rand) (int, bool) {
	if len(cells) == 0 {
		return -1, false
	}
	return cells[rng.IntN(len(cells))], true
}

// findWinningMove returns the lowest empty index that completes a line for mark.
func findWinningMove(board game.Board, mark game.Mark) (int, bool) {
	for _, index := range board.EmptyCells() {
		trial := board
		trial[index] = mark
		if game.CheckWin(trial, mark) {
			return index, true
		}
	}
	return -1, false
}
