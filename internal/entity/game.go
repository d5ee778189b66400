package entity

import (
	"errors"
	"fmt"
	"time"
)

const (
	StatusWaiting  = "waiting"
	StatusOngoing  = "ongoing"
	StatusFinished = "finished"
)

const (
	MarkerX Marker = "x"
	MarkerO Marker = "o"

	EmptyCell Marker = ""
)

const (
	OpponentPlayer   Opponent = "player"
	OpponentComputer Opponent = "computer"
)

const MinBoardSize = 3

var (
	ErrBoardSize     = errors.New("board size must be at least 3")
	ErrBoardNotEqual = errors.New("board is not square")
	ErrUnknownMarker = errors.New("unknown marker")
)

// Marker is one of the two symbols a player places on a cell. The empty
// string is a vacant cell, matching the wire format.
type Marker string

func (that Marker) Opposite() Marker {
	if that == MarkerX {
		return MarkerO
	}
	return MarkerX
}

func (that Marker) Valid() bool {
	return that == MarkerX || that == MarkerO
}

// Opponent selects who plays the second marker: another human or the
// remote computer oracle.
type Opponent string

// Difficulty is the numeric level stored in settings and saved games. It
// is mapped to its wire name just before an AI move is requested.
type Difficulty int

const (
	DifficultyEasy Difficulty = iota
	DifficultyMedium
	DifficultyHard
)

// Name - maps the numeric level to the name the oracle expects. Levels
// outside the known range are clamped.
func (that Difficulty) Name() string {
	switch {
	case that <= DifficultyEasy:
		return "easy"
	case that >= DifficultyHard:
		return "hard"
	default:
		return "medium"
	}
}

// Cell is a board coordinate. The wire format spells "column" out in full.
type Cell struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Region is the bounding rectangle of a winning line, kept for highlighting.
type Region struct {
	Top    int `json:"top"`
	Left   int `json:"left"`
	Bottom int `json:"bottom"`
	Right  int `json:"right"`
}

// Board is a square grid of markers. It is owned by the turn state machine:
// the only legal mutation is placing a marker into an empty cell, and the
// only legal replacement is loading a saved game wholesale.
type Board [][]Marker

func NewBoard(size int) (Board, error) {
	if size < MinBoardSize {
		return nil, fmt.Errorf("%w: got %d", ErrBoardSize, size)
	}

	board := make(Board, size)
	for row := range board {
		board[row] = make([]Marker, size)
	}

	return board, nil
}

// Validate - checks the grid is square, of the expected size, and contains
// only known markers.
func (that Board) Validate(size int) error {
	if len(that) != size {
		return fmt.Errorf("%w: %d rows, want %d", ErrBoardNotEqual, len(that), size)
	}

	for _, row := range that {
		if len(row) != size {
			return fmt.Errorf("%w: row of %d cells, want %d", ErrBoardNotEqual, len(row), size)
		}

		for _, cell := range row {
			if cell != EmptyCell && !cell.Valid() {
				return fmt.Errorf("%w: %q", ErrUnknownMarker, cell)
			}
		}
	}

	return nil
}

func (that Board) Size() int {
	return len(that)
}

func (that Board) InBounds(row, col int) bool {
	return row >= 0 && row < len(that) && col >= 0 && col < len(that)
}

func (that Board) At(row, col int) Marker {
	return that[row][col]
}

// CountFilled - number of non-empty cells; a freshly loaded game derives
// its step counter from it.
func (that Board) CountFilled() int {
	count := 0
	for _, row := range that {
		for _, cell := range row {
			if cell != EmptyCell {
				count++
			}
		}
	}

	return count
}

func (that Board) IsFull() bool {
	return that.CountFilled() == len(that)*len(that)
}

// Clone - deep copy; consumers outside the state machine only ever see
// board snapshots.
func (that Board) Clone() Board {
	if that == nil {
		return nil
	}

	clone := make(Board, len(that))
	for row := range that {
		clone[row] = make([]Marker, len(that[row]))
		copy(clone[row], that[row])
	}

	return clone
}

// MinWinningSteps - the smallest number of moves after which any full line
// can exist: the first player needs size moves, the second size-1.
func MinWinningSteps(size int) int {
	return 2*size - 1
}

// SavedGame is the persisted snapshot a game is rehydrated from. It is
// loaded and applied as one unit.
type SavedGame struct {
	GameID     string     `json:"gameId"`
	Name       string     `json:"name"`
	Board      Board      `json:"board"`
	LastMove   *Cell      `json:"lastMove"`
	Status     string     `json:"status"`
	UserID     string     `json:"userId"`
	Difficulty Difficulty `json:"difficulty"`
	Size       int        `json:"size"`
	Opponent   Opponent   `json:"opponent"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}
