package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/game"
	"github.com/rocketscienceinc/tictactoe-client/internal/service"
)

var errOracleDown = errors.New("oracle down")

type scriptedOracle struct {
	mu         sync.Mutex
	moves      []service.AIMove
	moveErr    error
	checks     []service.Outcome
	checkErr   error
	moveCalls  int
	checkCalls int
}

func (that *scriptedOracle) RequestMove(_ context.Context, _ entity.Board, _ entity.Marker, _ entity.Difficulty, _ *entity.Cell) (*service.AIMove, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.moveCalls++

	if that.moveErr != nil {
		return nil, that.moveErr
	}

	if len(that.moves) == 0 {
		return nil, errors.New("move script exhausted")
	}

	move := that.moves[0]
	that.moves = that.moves[1:]

	return &move, nil
}

func (that *scriptedOracle) CheckBoard(_ context.Context, _ entity.Board) (service.Outcome, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.checkCalls++

	if that.checkErr != nil {
		return service.Outcome{}, that.checkErr
	}

	if len(that.checks) == 0 {
		return service.Outcome{Open: true}, nil
	}

	outcome := that.checks[0]
	that.checks = that.checks[1:]

	return outcome, nil
}

type stubSession struct {
	mu      sync.Mutex
	user    entity.User
	present bool
	patches []entity.UserPatch
}

func (that *stubSession) CurrentUser() (entity.User, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.user, that.present
}

func (that *stubSession) UpdateUser(_ context.Context, patch entity.UserPatch) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.patches = append(that.patches, patch)

	return nil
}

func (that *stubSession) Patches() []entity.UserPatch {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]entity.UserPatch(nil), that.patches...)
}

type stubNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (that *stubNotifier) Failure(text string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.texts = append(that.texts, text)
}

func (that *stubNotifier) Texts() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]string(nil), that.texts...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMachine(t *testing.T, settings game.Settings) *game.Machine {
	t.Helper()

	machine, err := game.NewMachine(testLogger(), settings, nil)
	require.NoError(t, err)

	return machine
}

func TestOrchestrator_ComputerWins(t *testing.T) {
	ctx := context.Background()

	// Given: the human plays o, the computer opens, and the oracle's third
	// move completes the top row
	machine := newMachine(t, game.Settings{Size: 3, Opponent: entity.OpponentComputer, HumanMark: entity.MarkerO})

	oracle := &scriptedOracle{
		moves: []service.AIMove{
			{Move: &entity.Cell{Row: 0, Column: 0}, Outcome: service.Outcome{Open: true}},
			{Move: &entity.Cell{Row: 0, Column: 1}, Outcome: service.Outcome{Open: true}},
			{Move: &entity.Cell{Row: 0, Column: 2}, Outcome: service.Outcome{Open: true}},
		},
		checks: []service.Outcome{{Winner: entity.MarkerX}},
	}

	session := &stubSession{user: entity.User{UserID: "1", WinNumber: 2, LoseNumber: 1, GameCount: 3}, present: true}
	notifier := &stubNotifier{}

	orchestrator := NewOrchestrator(ctx, testLogger(), machine, oracle, session, notifier)

	// When: the match is played to its end
	orchestrator.Start()

	_, err := machine.SetCell(1, 0)
	require.NoError(t, err)

	_, err = machine.SetCell(1, 1)
	require.NoError(t, err)

	// Then: the machine is terminal with x as the winner
	snapshot := machine.Snapshot()
	require.Equal(t, entity.StatusFinished, snapshot.Status)
	assert.Equal(t, game.VerdictWon, snapshot.Verdict)
	assert.Equal(t, entity.MarkerX, snapshot.Winner)
	assert.Equal(t, entity.MarkerX, snapshot.Board.At(0, 2))
	assert.Equal(t, 5, snapshot.Step)
	assert.False(t, machine.Started())
	assert.False(t, machine.Busy())

	// And: the winner check ran exactly once, after the winning move
	assert.Equal(t, 3, oracle.moveCalls)
	assert.Equal(t, 1, oracle.checkCalls)

	// And: exactly one lose increment was persisted for the human
	patches := session.Patches()
	require.Len(t, patches, 1)
	require.NotNil(t, patches[0].LoseNumber)
	assert.Equal(t, 2, *patches[0].LoseNumber)
	assert.Nil(t, patches[0].WinNumber)
	require.NotNil(t, patches[0].GameCount)
	assert.Equal(t, 4, *patches[0].GameCount)

	// And: the tallies moved once on each side
	results := orchestrator.Results()
	assert.Equal(t, Tally{Wins: 1}, results.X)
	assert.Equal(t, Tally{Losses: 1}, results.O)
}

func TestOrchestrator_HumanWins(t *testing.T) {
	ctx := context.Background()

	run := func(t *testing.T, present bool) (*scriptedOracle, *stubSession, *Orchestrator) {
		t.Helper()

		// Given: the human plays x against the computer
		machine := newMachine(t, game.Settings{Size: 3, Opponent: entity.OpponentComputer, HumanMark: entity.MarkerX})

		oracle := &scriptedOracle{
			moves: []service.AIMove{
				{Move: &entity.Cell{Row: 2, Column: 2}, Outcome: service.Outcome{Open: true}},
				{Move: &entity.Cell{Row: 2, Column: 1}, Outcome: service.Outcome{Open: true}},
			},
			checks: []service.Outcome{{Winner: entity.MarkerX}},
		}

		session := &stubSession{user: entity.User{UserID: "1", WinNumber: 2, LoseNumber: 1, GameCount: 3}, present: present}
		orchestrator := NewOrchestrator(ctx, testLogger(), machine, oracle, session, &stubNotifier{})

		// When: the human completes the top row on the fifth move
		for _, move := range []entity.Cell{{Row: 0, Column: 0}, {Row: 0, Column: 1}, {Row: 0, Column: 2}} {
			_, err := machine.SetCell(move.Row, move.Column)
			require.NoError(t, err)
		}

		require.True(t, machine.Finished())

		return oracle, session, orchestrator
	}

	t.Run("Persists exactly one win increment", func(t *testing.T) {
		oracle, session, orchestrator := run(t, true)

		// Then: checks below five moves were skipped entirely
		assert.Equal(t, 2, oracle.moveCalls)
		assert.Equal(t, 1, oracle.checkCalls)

		patches := session.Patches()
		require.Len(t, patches, 1)
		require.NotNil(t, patches[0].WinNumber)
		assert.Equal(t, 3, *patches[0].WinNumber)
		assert.Nil(t, patches[0].LoseNumber)

		results := orchestrator.Results()
		assert.Equal(t, Tally{Wins: 1}, results.X)
		assert.Equal(t, Tally{Losses: 1}, results.O)
	})

	t.Run("Persists nothing when nobody is logged in", func(t *testing.T) {
		_, session, _ := run(t, false)

		assert.Empty(t, session.Patches())
	})
}

func TestOrchestrator_Draw(t *testing.T) {
	ctx := context.Background()

	// Given: a vs-computer match whose fifth-move check answers draw
	machine := newMachine(t, game.Settings{Size: 3, Opponent: entity.OpponentComputer, HumanMark: entity.MarkerX})

	oracle := &scriptedOracle{
		moves: []service.AIMove{
			{Move: &entity.Cell{Row: 2, Column: 2}, Outcome: service.Outcome{Open: true}},
			{Move: &entity.Cell{Row: 2, Column: 1}, Outcome: service.Outcome{Open: true}},
		},
		checks: []service.Outcome{{Draw: true}},
	}

	session := &stubSession{user: entity.User{UserID: "1", WinNumber: 2, LoseNumber: 1, GameCount: 3}, present: true}
	orchestrator := NewOrchestrator(ctx, testLogger(), machine, oracle, session, &stubNotifier{})

	// When: the match reaches the draw verdict
	for _, move := range []entity.Cell{{Row: 0, Column: 0}, {Row: 0, Column: 1}, {Row: 1, Column: 1}} {
		_, err := machine.SetCell(move.Row, move.Column)
		require.NoError(t, err)
	}

	// Then: the game is counted but neither counter moves
	require.True(t, machine.Finished())
	assert.Equal(t, game.VerdictDraw, machine.Verdict())

	patches := session.Patches()
	require.Len(t, patches, 1)
	assert.Nil(t, patches[0].WinNumber)
	assert.Nil(t, patches[0].LoseNumber)
	require.NotNil(t, patches[0].GameCount)
	assert.Equal(t, 4, *patches[0].GameCount)

	results := orchestrator.Results()
	assert.Equal(t, Tally{Draws: 1}, results.X)
	assert.Equal(t, Tally{Draws: 1}, results.O)
}

func TestOrchestrator_FailedAIMove(t *testing.T) {
	ctx := context.Background()

	// Given: an oracle that cannot answer
	machine := newMachine(t, game.Settings{Size: 3, Opponent: entity.OpponentComputer, HumanMark: entity.MarkerX})
	oracle := &scriptedOracle{moveErr: errOracleDown}
	notifier := &stubNotifier{}

	NewOrchestrator(ctx, testLogger(), machine, oracle, &stubSession{}, notifier)

	// When: the human moves
	placed, err := machine.SetCell(0, 0)
	require.NoError(t, err)
	require.True(t, placed)

	// Then: the board kept only the human's move, a notice was shown, and
	// input is not left locked
	assert.Equal(t, 1, machine.Step())
	assert.Equal(t, []string{"failed to get the computer's move"}, notifier.Texts())
	assert.False(t, machine.Busy())
	assert.False(t, machine.Finished())
}

func TestOrchestrator_FailedWinnerCheck(t *testing.T) {
	ctx := context.Background()

	// Given: a vs-player match whose winner check fails on the wire
	machine := newMachine(t, game.Settings{Size: 3, Opponent: entity.OpponentPlayer, HumanMark: entity.MarkerX})
	oracle := &scriptedOracle{checkErr: errOracleDown}
	notifier := &stubNotifier{}

	NewOrchestrator(ctx, testLogger(), machine, oracle, &stubSession{}, notifier)

	// When: five moves land so the check becomes due
	for _, move := range []entity.Cell{{Row: 0, Column: 0}, {Row: 1, Column: 0}, {Row: 0, Column: 1}, {Row: 1, Column: 1}, {Row: 2, Column: 2}} {
		_, err := machine.SetCell(move.Row, move.Column)
		require.NoError(t, err)
	}

	// Then: the match stays open, with a notice per failed check
	assert.False(t, machine.Finished())
	assert.Equal(t, game.VerdictUnresolved, machine.Verdict())
	assert.Equal(t, []string{"failed to check the board"}, notifier.Texts())
	assert.False(t, machine.Busy())
}

func TestOrchestrator_PlayerVersusPlayer(t *testing.T) {
	ctx := context.Background()

	// Given: two humans sharing a board
	machine := newMachine(t, game.Settings{Size: 3, Opponent: entity.OpponentPlayer, HumanMark: entity.MarkerX})
	oracle := &scriptedOracle{checks: []service.Outcome{{Winner: entity.MarkerX}}}
	session := &stubSession{user: entity.User{UserID: "1"}, present: true}

	orchestrator := NewOrchestrator(ctx, testLogger(), machine, oracle, session, &stubNotifier{})

	// When: x completes a row on the fifth move
	for _, move := range []entity.Cell{{Row: 0, Column: 0}, {Row: 1, Column: 0}, {Row: 0, Column: 1}, {Row: 1, Column: 1}, {Row: 0, Column: 2}} {
		_, err := machine.SetCell(move.Row, move.Column)
		require.NoError(t, err)
	}

	// Then: the match finishes without AI involvement or persistence
	require.True(t, machine.Finished())
	assert.Equal(t, 0, oracle.moveCalls)
	assert.Equal(t, 1, oracle.checkCalls)
	assert.Empty(t, session.Patches())

	results := orchestrator.Results()
	assert.Equal(t, Tally{Wins: 1}, results.X)
	assert.Equal(t, Tally{Losses: 1}, results.O)
}

func TestOrchestrator_UsesVerdictCarriedByAIMove(t *testing.T) {
	ctx := context.Background()

	// Given: an oracle whose move response already names the winner
	machine := newMachine(t, game.Settings{Size: 3, Opponent: entity.OpponentComputer, HumanMark: entity.MarkerX})

	region := &entity.Region{Top: 0, Left: 0, Bottom: 2, Right: 0}
	oracle := &scriptedOracle{
		moves: []service.AIMove{
			{Move: &entity.Cell{Row: 1, Column: 1}, Outcome: service.Outcome{Open: true}},
			{Move: &entity.Cell{Row: 2, Column: 0}, Outcome: service.Outcome{Open: true}},
			{Move: &entity.Cell{Row: 1, Column: 0}, Outcome: service.Outcome{Winner: entity.MarkerO}, Region: region},
		},
	}

	NewOrchestrator(ctx, testLogger(), machine, oracle, &stubSession{}, &stubNotifier{})

	// When: the human walks into the oracle's winning answer
	for _, move := range []entity.Cell{{Row: 0, Column: 0}, {Row: 0, Column: 1}, {Row: 2, Column: 2}} {
		_, err := machine.SetCell(move.Row, move.Column)
		require.NoError(t, err)
	}

	// Then: the verdict comes from the move response; only the pre-move
	// check ran, none after the winning answer
	require.True(t, machine.Finished())
	assert.Equal(t, 1, oracle.checkCalls)

	snapshot := machine.Snapshot()
	assert.Equal(t, entity.MarkerO, snapshot.Winner)
	assert.Equal(t, region, snapshot.Region)
}

func TestOrchestrator_DivergingOracleBoard(t *testing.T) {
	ctx := context.Background()

	// Given: an oracle whose move response echoes a board holding an extra
	// o the local machine never placed
	machine := newMachine(t, game.Settings{Size: 3, Opponent: entity.OpponentComputer, HumanMark: entity.MarkerX})

	remote, err := entity.NewBoard(3)
	require.NoError(t, err)

	remote[0][0] = entity.MarkerX
	remote[1][1] = entity.MarkerO
	remote[2][2] = entity.MarkerO

	oracle := &scriptedOracle{
		moves: []service.AIMove{
			{Move: &entity.Cell{Row: 1, Column: 1}, Outcome: service.Outcome{Open: true}, Board: remote},
		},
	}
	notifier := &stubNotifier{}

	NewOrchestrator(ctx, testLogger(), machine, oracle, &stubSession{}, notifier)

	// When: the human moves and the computer answers
	placed, err := machine.SetCell(0, 0)
	require.NoError(t, err)
	require.True(t, placed)

	// Then: only the answered move landed; the phantom cell stays empty
	snapshot := machine.Snapshot()
	assert.Equal(t, entity.MarkerX, snapshot.Board.At(0, 0))
	assert.Equal(t, entity.MarkerO, snapshot.Board.At(1, 1))
	assert.Equal(t, entity.EmptyCell, snapshot.Board.At(2, 2))
	assert.Equal(t, 2, snapshot.Step)

	// And: the match stays open with input unlocked and no notice shown
	assert.False(t, machine.Finished())
	assert.False(t, machine.Busy())
	assert.Empty(t, notifier.Texts())
	assert.Equal(t, 1, oracle.moveCalls)
	assert.Equal(t, 0, oracle.checkCalls)
}
