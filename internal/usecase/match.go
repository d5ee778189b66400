package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/game"
)

var ErrNoAvailableMoves = errors.New("no available moves")

// MovePicker chooses the next move for the marker about to play.
type MovePicker interface {
	Pick(board entity.Board, marker entity.Marker) (entity.Cell, error)
}

// RandomPicker picks a uniformly random empty cell.
type RandomPicker struct{}

func (RandomPicker) Pick(board entity.Board, _ entity.Marker) (entity.Cell, error) {
	free := make([]entity.Cell, 0, board.Size()*board.Size())

	for row := range board {
		for col := range board[row] {
			if board.At(row, col) == entity.EmptyCell {
				free = append(free, entity.Cell{Row: row, Column: col})
			}
		}
	}

	if len(free) == 0 {
		return entity.Cell{}, ErrNoAvailableMoves
	}

	return free[rand.Intn(len(free))], nil //nolint: gosec // it's ok
}

type matchMachine interface {
	SetCell(row, col int) (bool, error)
	Snapshot() game.Snapshot
	Finished() bool
}

type matchStarter interface {
	Start()
}

// MatchRunner plays one full match by feeding picked moves into the
// machine. The orchestrator resolves each move as it lands, so a round of
// SetCell may come back with the computer's answer already on the board.
type MatchRunner struct {
	logger  *slog.Logger
	machine matchMachine
	starter matchStarter
	picker  MovePicker
}

func NewMatchRunner(logger *slog.Logger, machine matchMachine, starter matchStarter, picker MovePicker) *MatchRunner {
	return &MatchRunner{
		logger:  logger.With("component", "match"),
		machine: machine,
		starter: starter,
		picker:  picker,
	}
}

// Run - plays until the machine turns terminal and returns the final
// snapshot.
func (that *MatchRunner) Run(ctx context.Context) (game.Snapshot, error) {
	that.starter.Start()

	for !that.machine.Finished() {
		if err := ctx.Err(); err != nil {
			return that.machine.Snapshot(), err
		}

		snapshot := that.machine.Snapshot()

		move, err := that.picker.Pick(snapshot.Board, snapshot.ActiveMark)
		if err != nil {
			return snapshot, fmt.Errorf("failed to pick a move: %w", err)
		}

		if _, err = that.machine.SetCell(move.Row, move.Column); err != nil {
			if errors.Is(err, apperror.ErrGameFinished) {
				break
			}

			return that.machine.Snapshot(), fmt.Errorf("failed to play %d:%d: %w", move.Row, move.Column, err)
		}
	}

	snapshot := that.machine.Snapshot()
	that.logger.Info("match finished", "verdict", snapshot.Verdict.String(), "winner", string(snapshot.Winner), "steps", snapshot.Step)

	return snapshot, nil
}
