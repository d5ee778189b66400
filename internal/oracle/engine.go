package oracle

import (
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

// Resolution is the engine's reading of a board: won with the winning
// line's bounding region, drawn, or still open.
type Resolution struct {
	Winner entity.Marker
	Draw   bool
	Region *entity.Region
}

// Open reports whether the game can continue.
func (that Resolution) Open() bool {
	return !that.Draw && that.Winner == entity.EmptyCell
}

// Inspect scans rows, columns and both diagonals for a full line of one
// marker. A full board without such a line is a draw. Only whole lines
// count: a partial chain never wins regardless of board size.
func Inspect(board entity.Board) Resolution {
	size := board.Size()

	for row := 0; row < size; row++ {
		if marker := lineOwner(board, row, 0, 0, 1); marker != entity.EmptyCell {
			return Resolution{
				Winner: marker,
				Region: &entity.Region{Top: row, Left: 0, Bottom: row, Right: size - 1},
			}
		}
	}

	for col := 0; col < size; col++ {
		if marker := lineOwner(board, 0, col, 1, 0); marker != entity.EmptyCell {
			return Resolution{
				Winner: marker,
				Region: &entity.Region{Top: 0, Left: col, Bottom: size - 1, Right: col},
			}
		}
	}

	if marker := lineOwner(board, 0, 0, 1, 1); marker != entity.EmptyCell {
		return Resolution{
			Winner: marker,
			Region: &entity.Region{Top: 0, Left: 0, Bottom: size - 1, Right: size - 1},
		}
	}

	if marker := lineOwner(board, 0, size-1, 1, -1); marker != entity.EmptyCell {
		return Resolution{
			Winner: marker,
			Region: &entity.Region{Top: 0, Left: 0, Bottom: size - 1, Right: size - 1},
		}
	}

	if board.IsFull() {
		return Resolution{Draw: true}
	}

	return Resolution{}
}

// lineOwner walks one full line from (row, col) and returns its marker, or
// EmptyCell when the line is not uniformly owned.
func lineOwner(board entity.Board, row, col, dRow, dCol int) entity.Marker {
	first := board.At(row, col)
	if first == entity.EmptyCell {
		return entity.EmptyCell
	}

	for i := 1; i < board.Size(); i++ {
		if board.At(row+i*dRow, col+i*dCol) != first {
			return entity.EmptyCell
		}
	}

	return first
}

// winnerToken - the wire value for a resolution: null while open, the draw
// token, or the winning marker.
func winnerToken(resolution Resolution) *string {
	if resolution.Open() {
		return nil
	}

	token := "draw"
	if !resolution.Draw {
		token = string(resolution.Winner)
	}

	return &token
}
