package oracle

import (
	"errors"
	"math"
	"math/rand"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

var ErrNoAvailableMoves = errors.New("no available moves")

// minimaxBoardSize caps the exhaustive search; larger boards fall back to
// the win-or-block heuristic.
const minimaxBoardSize = 3

// PickMove chooses the marker's next move. Easy plays a random empty cell,
// medium takes an immediate win or blocks the opponent's, hard plays the
// full minimax where the board allows it.
func PickMove(board entity.Board, marker entity.Marker, difficulty entity.Difficulty) (entity.Cell, error) {
	switch {
	case difficulty <= entity.DifficultyEasy:
		return randomMove(board)
	case difficulty >= entity.DifficultyHard && board.Size() == minimaxBoardSize:
		return minimaxMove(board, marker)
	default:
		return heuristicMove(board, marker)
	}
}

func randomMove(board entity.Board) (entity.Cell, error) {
	available := availableCells(board)
	if len(available) == 0 {
		return entity.Cell{}, ErrNoAvailableMoves
	}

	return available[rand.Intn(len(available))], nil //nolint: gosec // it's ok
}

// heuristicMove - win if possible, otherwise block the opponent's
// immediate win, otherwise play randomly.
func heuristicMove(board entity.Board, marker entity.Marker) (entity.Cell, error) {
	if cell, ok := winningCell(board, marker); ok {
		return cell, nil
	}

	if cell, ok := winningCell(board, marker.Opposite()); ok {
		return cell, nil
	}

	return randomMove(board)
}

// winningCell finds a cell that completes a line for the marker.
func winningCell(board entity.Board, marker entity.Marker) (entity.Cell, bool) {
	for _, cell := range availableCells(board) {
		board[cell.Row][cell.Column] = marker
		winner := Inspect(board).Winner
		board[cell.Row][cell.Column] = entity.EmptyCell

		if winner == marker {
			return cell, true
		}
	}

	return entity.Cell{}, false
}

func minimaxMove(board entity.Board, marker entity.Marker) (entity.Cell, error) {
	available := availableCells(board)
	if len(available) == 0 {
		return entity.Cell{}, ErrNoAvailableMoves
	}

	best := available[0]
	bestScore := math.MinInt

	for _, cell := range available {
		board[cell.Row][cell.Column] = marker
		score := minimaxScore(board, marker.Opposite(), marker, 1)
		board[cell.Row][cell.Column] = entity.EmptyCell

		if score > bestScore {
			bestScore = score
			best = cell
		}
	}

	return best, nil
}

// minimaxScore values a position for the ai marker, mover to play. Depth
// biases the score so earlier wins and later losses are preferred.
func minimaxScore(board entity.Board, mover, ai entity.Marker, depth int) int {
	resolution := Inspect(board)

	switch {
	case resolution.Winner == ai:
		return 10 - depth
	case resolution.Winner == ai.Opposite():
		return depth - 10
	case resolution.Draw:
		return 0
	}

	best := math.MaxInt
	if mover == ai {
		best = math.MinInt
	}

	for _, cell := range availableCells(board) {
		board[cell.Row][cell.Column] = mover
		score := minimaxScore(board, mover.Opposite(), ai, depth+1)
		board[cell.Row][cell.Column] = entity.EmptyCell

		if mover == ai && score > best {
			best = score
		}
		if mover != ai && score < best {
			best = score
		}
	}

	return best
}

func availableCells(board entity.Board) []entity.Cell {
	available := make([]entity.Cell, 0, board.Size()*board.Size())

	for row := 0; row < board.Size(); row++ {
		for col := 0; col < board.Size(); col++ {
			if board.At(row, col) == entity.EmptyCell {
				available = append(available, entity.Cell{Row: row, Column: col})
			}
		}
	}

	return available
}
