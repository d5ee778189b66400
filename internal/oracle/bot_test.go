package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

func TestPickMove_Easy(t *testing.T) {
	t.Run("PlaysAnEmptyCell", func(t *testing.T) {
		// Given: a board with a single free cell
		board := entity.Board{
			{"x", "o", "x"},
			{"x", "o", "o"},
			{"o", "x", ""},
		}

		// When: easy picks a move
		move, err := PickMove(board, entity.MarkerX, entity.DifficultyEasy)

		// Then: it takes the only free cell
		require.NoError(t, err)
		assert.Equal(t, entity.Cell{Row: 2, Column: 2}, move)
	})

	t.Run("FullBoard", func(t *testing.T) {
		// Given: a board with no free cells
		board := entity.Board{
			{"x", "o", "x"},
			{"x", "o", "o"},
			{"o", "x", "x"},
		}

		// When: easy picks a move
		_, err := PickMove(board, entity.MarkerX, entity.DifficultyEasy)

		// Then: ErrNoAvailableMoves is returned
		require.ErrorIs(t, err, ErrNoAvailableMoves)
	})

	t.Run("NeverPlaysAnOccupiedCell", func(t *testing.T) {
		// Given: a sparse board
		board := entity.Board{
			{"x", "", ""},
			{"", "o", ""},
			{"", "", "x"},
		}

		// When: easy picks moves repeatedly
		for i := 0; i < 20; i++ {
			move, err := PickMove(board, entity.MarkerO, entity.DifficultyEasy)

			// Then: the chosen cell is always empty
			require.NoError(t, err)
			assert.Equal(t, entity.EmptyCell, board.At(move.Row, move.Column))
		}
	})
}

func TestPickMove_Medium(t *testing.T) {
	t.Run("TakesTheWin", func(t *testing.T) {
		// Given: o can complete the middle row
		board := entity.Board{
			{"x", "x", ""},
			{"o", "o", ""},
			{"x", "", ""},
		}

		// When: medium picks for o
		move, err := PickMove(board, entity.MarkerO, entity.DifficultyMedium)

		// Then: it completes its own row even though x threatens too
		require.NoError(t, err)
		assert.Equal(t, entity.Cell{Row: 1, Column: 2}, move)
	})

	t.Run("BlocksTheOpponent", func(t *testing.T) {
		// Given: x threatens the top row and o has no win of its own
		board := entity.Board{
			{"x", "x", ""},
			{"", "o", ""},
			{"", "", ""},
		}

		// When: medium picks for o
		move, err := PickMove(board, entity.MarkerO, entity.DifficultyMedium)

		// Then: it blocks the threat
		require.NoError(t, err)
		assert.Equal(t, entity.Cell{Row: 0, Column: 2}, move)
	})
}

func TestPickMove_Hard(t *testing.T) {
	t.Run("TakesTheWin", func(t *testing.T) {
		// Given: x can complete the main diagonal
		board := entity.Board{
			{"x", "o", ""},
			{"o", "x", ""},
			{"", "", ""},
		}

		// When: hard picks for x
		move, err := PickMove(board, entity.MarkerX, entity.DifficultyHard)

		// Then: it takes the winning cell
		require.NoError(t, err)
		assert.Equal(t, entity.Cell{Row: 2, Column: 2}, move)
	})

	t.Run("DefusesTheCornerFork", func(t *testing.T) {
		// Given: x holds opposite corners around o's center, the classic
		// fork setup where any corner reply loses
		board := entity.Board{
			{"x", "", ""},
			{"", "o", ""},
			{"", "", "x"},
		}

		// When: hard picks for o
		move, err := PickMove(board, entity.MarkerO, entity.DifficultyHard)

		// Then: it answers on an edge
		require.NoError(t, err)
		edges := []entity.Cell{
			{Row: 0, Column: 1},
			{Row: 1, Column: 0},
			{Row: 1, Column: 2},
			{Row: 2, Column: 1},
		}
		assert.Contains(t, edges, move)
	})

	t.Run("FallsBackToHeuristicOnLargerBoards", func(t *testing.T) {
		// Given: a 4x4 board where o can complete a full column
		board := entity.Board{
			{"x", "o", "", ""},
			{"x", "o", "", "x"},
			{"", "o", "x", ""},
			{"", "", "", ""},
		}

		// When: hard picks for o
		move, err := PickMove(board, entity.MarkerO, entity.DifficultyHard)

		// Then: the win-or-block heuristic completes the column
		require.NoError(t, err)
		assert.Equal(t, entity.Cell{Row: 3, Column: 1}, move)
	})
}
