package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

func TestInspect(t *testing.T) {
	t.Run("OpenBoard", func(t *testing.T) {
		// Given: a board with a few scattered moves
		board := entity.Board{
			{"x", "", ""},
			{"", "o", ""},
			{"", "", ""},
		}

		// When: the board is inspected
		resolution := Inspect(board)

		// Then: the game is still open
		assert.True(t, resolution.Open())
		assert.Nil(t, resolution.Region)
	})

	t.Run("RowWin", func(t *testing.T) {
		// Given: o owns the middle row
		board := entity.Board{
			{"x", "x", ""},
			{"o", "o", "o"},
			{"x", "", ""},
		}

		// When: the board is inspected
		resolution := Inspect(board)

		// Then: o wins and the region spans the row
		require.Equal(t, entity.MarkerO, resolution.Winner)
		require.NotNil(t, resolution.Region)
		assert.Equal(t, entity.Region{Top: 1, Left: 0, Bottom: 1, Right: 2}, *resolution.Region)
	})

	t.Run("ColumnWin", func(t *testing.T) {
		// Given: x owns the right column
		board := entity.Board{
			{"o", "", "x"},
			{"", "o", "x"},
			{"", "", "x"},
		}

		// When: the board is inspected
		resolution := Inspect(board)

		// Then: x wins and the region spans the column
		require.Equal(t, entity.MarkerX, resolution.Winner)
		require.NotNil(t, resolution.Region)
		assert.Equal(t, entity.Region{Top: 0, Left: 2, Bottom: 2, Right: 2}, *resolution.Region)
	})

	t.Run("DiagonalWin", func(t *testing.T) {
		// Given: x owns the main diagonal
		board := entity.Board{
			{"x", "o", ""},
			{"o", "x", ""},
			{"", "", "x"},
		}

		// When: the board is inspected
		resolution := Inspect(board)

		// Then: x wins and the region is the diagonal's bounding square
		require.Equal(t, entity.MarkerX, resolution.Winner)
		require.NotNil(t, resolution.Region)
		assert.Equal(t, entity.Region{Top: 0, Left: 0, Bottom: 2, Right: 2}, *resolution.Region)
	})

	t.Run("AntiDiagonalWin", func(t *testing.T) {
		// Given: o owns the anti-diagonal
		board := entity.Board{
			{"x", "x", "o"},
			{"x", "o", ""},
			{"o", "", ""},
		}

		// When: the board is inspected
		resolution := Inspect(board)

		// Then: o wins
		require.Equal(t, entity.MarkerO, resolution.Winner)
		require.NotNil(t, resolution.Region)
		assert.Equal(t, entity.Region{Top: 0, Left: 0, Bottom: 2, Right: 2}, *resolution.Region)
	})

	t.Run("Draw", func(t *testing.T) {
		// Given: a full board without a line
		board := entity.Board{
			{"x", "o", "x"},
			{"x", "o", "o"},
			{"o", "x", "x"},
		}

		// When: the board is inspected
		resolution := Inspect(board)

		// Then: the game is drawn
		assert.True(t, resolution.Draw)
		assert.Equal(t, entity.EmptyCell, resolution.Winner)
		assert.False(t, resolution.Open())
	})

	t.Run("PartialChainDoesNotWin", func(t *testing.T) {
		// Given: a 4x4 board where x holds three cells of a row
		board := entity.Board{
			{"x", "x", "x", ""},
			{"o", "o", "", ""},
			{"", "", "", ""},
			{"", "", "", ""},
		}

		// When: the board is inspected
		resolution := Inspect(board)

		// Then: only a whole line wins, so the game is still open
		assert.True(t, resolution.Open())
	})

	t.Run("FullLineWinsOnLargerBoard", func(t *testing.T) {
		// Given: a 4x4 board where o owns a whole column
		board := entity.Board{
			{"x", "o", "", ""},
			{"x", "o", "", "x"},
			{"", "o", "x", ""},
			{"", "o", "", ""},
		}

		// When: the board is inspected
		resolution := Inspect(board)

		// Then: o wins the full column
		require.Equal(t, entity.MarkerO, resolution.Winner)
		require.NotNil(t, resolution.Region)
		assert.Equal(t, entity.Region{Top: 0, Left: 1, Bottom: 3, Right: 1}, *resolution.Region)
	})
}

func TestWinnerToken(t *testing.T) {
	// Given: an open, a drawn and a won resolution
	open := Resolution{}
	drawn := Resolution{Draw: true}
	won := Resolution{Winner: entity.MarkerX}

	// Then: open maps to null, the others to their tokens
	assert.Nil(t, winnerToken(open))

	require.NotNil(t, winnerToken(drawn))
	assert.Equal(t, "draw", *winnerToken(drawn))

	require.NotNil(t, winnerToken(won))
	assert.Equal(t, "x", *winnerToken(won))
}
