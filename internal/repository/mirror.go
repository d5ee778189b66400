package repository

import (
	"context"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-client/internal/game"
)

// Mirrored field names, one storage key per field.
const (
	FieldBoard      = "board"
	FieldStep       = "step"
	FieldLastMove   = "lastMove"
	FieldStatus     = "status"
	FieldWinner     = "winner"
	FieldSize       = "size"
	FieldOpponent   = "opponent"
	FieldDifficulty = "difficulty"
)

type eventSource interface {
	Subscribe(fn game.Subscriber)
}

// Mirror copies the machine state into the StateRepository after every
// transition. Mirroring is best-effort: a write error is logged and the
// game goes on.
type Mirror struct {
	// ctx bounds the mirror writes to the owning session's lifetime.
	ctx context.Context

	logger *slog.Logger
	states StateRepository
}

func NewMirror(ctx context.Context, logger *slog.Logger, states StateRepository) *Mirror {
	return &Mirror{
		ctx:    ctx,
		logger: logger.With("component", "mirror"),
		states: states,
	}
}

// Attach subscribes the mirror to the machine's events.
func (that *Mirror) Attach(source eventSource) {
	source.Subscribe(that.onEvent)
}

func (that *Mirror) onEvent(event game.Event) {
	snapshot := event.Snapshot

	if event.Kind == game.EventReset {
		if err := that.states.Clear(that.ctx); err != nil {
			that.logger.Error("failed to clear mirrored state", "error", err)
		}
	}

	fields := map[string]any{
		FieldBoard:      snapshot.Board,
		FieldStep:       snapshot.Step,
		FieldLastMove:   snapshot.LastMove,
		FieldStatus:     snapshot.Status,
		FieldWinner:     winnerToken(snapshot),
		FieldSize:       snapshot.Size,
		FieldOpponent:   snapshot.Opponent,
		FieldDifficulty: snapshot.Difficulty,
	}

	for name, value := range fields {
		if err := that.states.SaveField(that.ctx, name, value); err != nil {
			that.logger.Error("failed to mirror field", "field", name, "error", err)
		}
	}
}

// winnerToken - the winner field mirrors null until a terminal verdict, so
// a stale token never survives the next transition.
func winnerToken(snapshot game.Snapshot) *string {
	switch snapshot.Verdict {
	case game.VerdictWon:
		token := string(snapshot.Winner)
		return &token
	case game.VerdictDraw:
		token := "draw"
		return &token
	default:
		return nil
	}
}
