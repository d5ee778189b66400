package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/game"
	"github.com/rocketscienceinc/tictactoe-client/internal/service"
)

type turnMachine interface {
	Subscribe(fn game.Subscriber)
	Snapshot() game.Snapshot
	BeginResolve() bool
	EndResolve()
	RecordOpen()
	ApplyAIMove(move entity.Cell) (bool, error)
	Finish(verdict game.Verdict, winner entity.Marker, region *entity.Region) error
	AITurn() bool
}

type moveOracle interface {
	RequestMove(ctx context.Context, board entity.Board, aiMarker entity.Marker, difficulty entity.Difficulty, lastMove *entity.Cell) (*service.AIMove, error)
	CheckBoard(ctx context.Context, board entity.Board) (service.Outcome, error)
}

type userSession interface {
	CurrentUser() (entity.User, bool)
	UpdateUser(ctx context.Context, patch entity.UserPatch) error
}

type failureNotifier interface {
	Failure(text string)
}

// Tally - one logical player's running results.
type Tally struct {
	Wins   int
	Losses int
	Draws  int
}

// Results - running totals for both logical players of this session.
type Results struct {
	X Tally
	O Tally
}

// Orchestrator bridges the turn machine to the remote oracle and the
// session facade. It subscribes to machine events and resolves every human
// move synchronously on the calling goroutine: mark busy, check the winner
// once enough moves are played, fetch and apply the computer's answer,
// check again, then release input. A failed oracle call leaves the board
// untouched, shows a notice, and never leaves input locked.
type Orchestrator struct {
	// ctx bounds every oracle call; canceling it aborts in-flight
	// retries when the owning session is torn down.
	ctx context.Context

	logger   *slog.Logger
	machine  turnMachine
	oracle   moveOracle
	session  userSession
	notifier failureNotifier

	mu      sync.Mutex
	results Results
}

func NewOrchestrator(ctx context.Context, logger *slog.Logger, machine turnMachine, oracle moveOracle, session userSession, notifier failureNotifier) *Orchestrator {
	that := &Orchestrator{
		ctx:      ctx,
		logger:   logger.With("component", "orchestrator"),
		machine:  machine,
		oracle:   oracle,
		session:  session,
		notifier: notifier,
	}

	machine.Subscribe(that.onEvent)

	return that
}

// Start - resolves the opening move when the computer plays first. Matches
// where the human opens need no kick-off: the first SetCell triggers the
// pipeline through its event.
func (that *Orchestrator) Start() {
	if !that.machine.AITurn() {
		return
	}

	if !that.machine.BeginResolve() {
		that.logger.Warn("resolution already in flight, start skipped")
		return
	}
	defer that.machine.EndResolve()

	that.playAITurn(that.machine.Snapshot())
}

// Results returns the running tallies.
func (that *Orchestrator) Results() Results {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.results
}

func (that *Orchestrator) onEvent(event game.Event) {
	if event.Kind != game.EventMove || event.ByAI {
		return
	}

	if !that.machine.BeginResolve() {
		that.logger.Warn("resolution already in flight, move ignored", "step", event.Snapshot.Step)
		return
	}
	defer that.machine.EndResolve()

	that.resolve(event.Snapshot)
}

// resolve runs the pipeline for one committed human move.
func (that *Orchestrator) resolve(snapshot game.Snapshot) {
	outcome, err := that.checkWinner(snapshot.Board, snapshot.Step, snapshot.Size)
	if err != nil {
		return
	}

	if !outcome.Open {
		that.finish(outcome, nil)
		return
	}

	if !that.machine.AITurn() {
		return
	}

	that.playAITurn(snapshot)
}

// playAITurn fetches the computer's move, commits it, and resolves the
// board it produced.
func (that *Orchestrator) playAITurn(snapshot game.Snapshot) {
	aiMarker := snapshot.HumanMark.Opposite()

	aiMove, err := that.oracle.RequestMove(that.ctx, snapshot.Board, aiMarker, snapshot.Difficulty, snapshot.LastMove)
	if err != nil {
		that.notifier.Failure("failed to get the computer's move")
		that.logger.Error("ai move request failed", "error", err)

		return
	}

	if aiMove.Move == nil {
		that.notifier.Failure("failed to get the computer's move")
		that.logger.Error("ai move response carried no move")

		return
	}

	placed, err := that.machine.ApplyAIMove(*aiMove.Move)
	if err != nil {
		that.notifier.Failure("failed to apply the computer's move")
		that.logger.Error("ai move rejected", "error", err, "row", aiMove.Move.Row, "column", aiMove.Move.Column)

		return
	}

	if !placed {
		that.logger.Warn("duplicate ai move ignored", "row", aiMove.Move.Row, "column", aiMove.Move.Column)
	}

	// The local board stays authoritative; a diverging oracle view is
	// only worth a log line.
	that.compareBoards(aiMove.Board)

	if !aiMove.Outcome.Open {
		that.finish(aiMove.Outcome, aiMove.Region)
		return
	}

	after := that.machine.Snapshot()

	outcome, err := that.checkWinner(after.Board, after.Step, after.Size)
	if err != nil {
		return
	}

	if !outcome.Open {
		that.finish(outcome, nil)
	}
}

// checkWinner asks the oracle once the move count makes a win possible.
// Below that threshold it reports an open game without going on the wire.
func (that *Orchestrator) checkWinner(board entity.Board, step, size int) (service.Outcome, error) {
	if step < entity.MinWinningSteps(size) {
		return service.Outcome{Open: true}, nil
	}

	outcome, err := that.oracle.CheckBoard(that.ctx, board)
	if err != nil {
		that.notifier.Failure("failed to check the board")
		that.logger.Error("winner check failed", "error", err)

		return service.Outcome{}, err
	}

	if outcome.Open {
		that.machine.RecordOpen()
	}

	return outcome, nil
}

// finish commits the terminal verdict, updates the tallies, and persists
// the human's result when the match was against the computer.
func (that *Orchestrator) finish(outcome service.Outcome, region *entity.Region) {
	verdict := game.VerdictDraw
	winner := entity.EmptyCell

	if outcome.Winner.Valid() {
		verdict = game.VerdictWon
		winner = outcome.Winner
	}

	if err := that.machine.Finish(verdict, winner, region); err != nil {
		that.logger.Error("failed to record the verdict", "error", err)
		return
	}

	that.addTally(winner)

	snapshot := that.machine.Snapshot()
	if snapshot.Opponent != entity.OpponentComputer {
		return
	}

	user, ok := that.session.CurrentUser()
	if !ok {
		return
	}

	games := user.GameCount + 1
	patch := entity.UserPatch{GameCount: &games}

	switch winner {
	case entity.EmptyCell:
		// A draw counts the game but moves neither counter.
	case snapshot.HumanMark:
		wins := user.WinNumber + 1
		patch.WinNumber = &wins
	default:
		losses := user.LoseNumber + 1
		patch.LoseNumber = &losses
	}

	if err := that.session.UpdateUser(that.ctx, patch); err != nil {
		that.logger.Error("failed to persist the result", "error", err)
	}
}

func (that *Orchestrator) addTally(winner entity.Marker) {
	that.mu.Lock()
	defer that.mu.Unlock()

	switch winner {
	case entity.MarkerX:
		that.results.X.Wins++
		that.results.O.Losses++
	case entity.MarkerO:
		that.results.O.Wins++
		that.results.X.Losses++
	default:
		that.results.X.Draws++
		that.results.O.Draws++
	}
}

func (that *Orchestrator) compareBoards(remote entity.Board) {
	if remote == nil {
		return
	}

	local := that.machine.Snapshot().Board
	if remote.Size() != local.Size() {
		that.logger.Warn("oracle board size diverges from local state", "local", local.Size(), "remote", remote.Size())
		return
	}

	for row := range local {
		for col := range local[row] {
			if local[row][col] != remote[row][col] {
				that.logger.Warn("oracle board diverges from local state", "row", row, "column", col)
				return
			}
		}
	}
}
