package game

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

var (
	ErrNotTerminal          = errors.New("verdict is not terminal")
	ErrUnknownStatus        = errors.New("unknown game status")
	ErrUnknownOpponent      = errors.New("unknown opponent kind")
	ErrInconsistentSnapshot = errors.New("saved game is inconsistent")
)

// InputGate is consulted before a human move is accepted. The notification
// center implements it: an active failure notice suppresses board input.
type InputGate interface {
	InputSuppressed() bool
}

// Settings - per-match options, fixed between resets.
type Settings struct {
	Size       int
	Opponent   entity.Opponent
	Difficulty entity.Difficulty
	HumanMark  entity.Marker
}

// Machine is the turn-based game state machine. It owns the board, the
// step counter, the marker alternation and the match status; everything
// else observes it through events and snapshots.
//
// The machine serializes state changes with a mutex and emits events after
// releasing it, so subscribers (the resolution pipeline among them) can
// call back into the machine from their handler.
type Machine struct {
	logger *slog.Logger
	gate   InputGate

	mu          sync.Mutex
	board       entity.Board
	step        int
	lastMove    *entity.Cell
	status      string
	verdict     Verdict
	winner      entity.Marker
	region      *entity.Region
	settings    Settings
	active      entity.Marker
	busy        bool
	subscribers []Subscriber
}

// NewMachine - returns a machine in the waiting state with an empty board.
// X always opens.
func NewMachine(logger *slog.Logger, settings Settings, gate InputGate) (*Machine, error) {
	board, err := entity.NewBoard(settings.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create board: %w", err)
	}

	if !settings.HumanMark.Valid() {
		settings.HumanMark = entity.MarkerX
	}

	if settings.Opponent == "" {
		settings.Opponent = entity.OpponentComputer
	}

	return &Machine{
		logger:   logger.With("component", "machine"),
		gate:     gate,
		board:    board,
		status:   entity.StatusWaiting,
		verdict:  VerdictUnresolved,
		settings: settings,
		active:   entity.MarkerX,
	}, nil
}

// Subscribe registers fn for every subsequent event.
func (that *Machine) Subscribe(fn Subscriber) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.subscribers = append(that.subscribers, fn)
}

// SetCell - attempts a human move. A click on an occupied cell is a silent
// no-op: it reports (false, nil) and changes nothing. Moves are rejected
// with a sentinel when the match is finished, a resolution is in flight,
// input is suppressed, the cell is out of range, or it is the computer's
// turn.
func (that *Machine) SetCell(row, col int) (bool, error) {
	that.mu.Lock()

	if that.status == entity.StatusFinished {
		that.mu.Unlock()
		return false, apperror.ErrGameFinished
	}

	if that.busy {
		that.mu.Unlock()
		return false, apperror.ErrInputBlocked
	}

	if that.gate != nil && that.gate.InputSuppressed() {
		that.mu.Unlock()
		return false, apperror.ErrInputBlocked
	}

	if !that.board.InBounds(row, col) {
		that.mu.Unlock()
		return false, fmt.Errorf("%w: %d:%d", apperror.ErrInvalidCell, row, col)
	}

	if that.settings.Opponent == entity.OpponentComputer && that.active != that.settings.HumanMark {
		that.mu.Unlock()
		return false, apperror.ErrNotYourTurn
	}

	if that.board.At(row, col) != entity.EmptyCell {
		that.mu.Unlock()
		return false, nil
	}

	event := that.place(row, col, false)
	that.mu.Unlock()

	that.publish(event)

	return true, nil
}

// ApplyAIMove - places the oracle's move. The active marker at this point
// is the computer's, so the marker choice is structural. Re-applying a
// move into an occupied cell is a no-op, which keeps a duplicated oracle
// response from advancing the step counter twice.
func (that *Machine) ApplyAIMove(move entity.Cell) (bool, error) {
	that.mu.Lock()

	if that.status == entity.StatusFinished {
		that.mu.Unlock()
		return false, apperror.ErrGameFinished
	}

	if !that.board.InBounds(move.Row, move.Column) {
		that.mu.Unlock()
		return false, fmt.Errorf("%w: %d:%d", apperror.ErrInvalidCell, move.Row, move.Column)
	}

	if that.board.At(move.Row, move.Column) != entity.EmptyCell {
		that.mu.Unlock()
		return false, nil
	}

	event := that.place(move.Row, move.Column, true)
	that.mu.Unlock()

	that.publish(event)

	return true, nil
}

// place applies an accepted move. Caller holds the lock.
func (that *Machine) place(row, col int, byAI bool) Event {
	marker := that.active

	that.board[row][col] = marker
	that.step++
	that.lastMove = &entity.Cell{Row: row, Column: col}
	that.active = marker.Opposite()
	that.verdict = VerdictUnresolved

	if that.status == entity.StatusWaiting {
		that.status = entity.StatusOngoing
	}

	that.logger.Debug("marker placed", "marker", string(marker), "row", row, "column", col, "step", that.step, "byAI", byAI)

	return Event{
		Kind:     EventMove,
		Move:     entity.Cell{Row: row, Column: col},
		Marker:   marker,
		ByAI:     byAI,
		Snapshot: that.snapshotLocked(),
	}
}

// BeginResolve marks the machine busy for the duration of an oracle round
// trip. It reports false when a resolution is already running.
func (that *Machine) BeginResolve() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.busy {
		return false
	}

	that.busy = true

	return true
}

// EndResolve clears the busy flag. Input must never stay locked after a
// resolution, successful or not.
func (that *Machine) EndResolve() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.busy = false
}

// RecordOpen notes a winner check that answered "no winner yet".
func (that *Machine) RecordOpen() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.status == entity.StatusFinished {
		return
	}

	that.verdict = VerdictOngoing
}

// Finish - moves the match to its terminal state. Finishing an already
// finished match is a no-op.
func (that *Machine) Finish(verdict Verdict, winner entity.Marker, region *entity.Region) error {
	if !verdict.Terminal() {
		return fmt.Errorf("%w: %s", ErrNotTerminal, verdict)
	}

	if verdict == VerdictWon && !winner.Valid() {
		return fmt.Errorf("%w: %q", entity.ErrUnknownMarker, winner)
	}

	that.mu.Lock()

	if that.status == entity.StatusFinished {
		that.mu.Unlock()
		return nil
	}

	that.status = entity.StatusFinished
	that.verdict = verdict

	if verdict == VerdictWon {
		that.winner = winner
		that.region = region
	} else {
		that.winner = entity.EmptyCell
		that.region = nil
	}

	event := Event{Kind: EventFinished, Snapshot: that.snapshotLocked()}
	that.mu.Unlock()

	that.logger.Info("game finished", "verdict", verdict.String(), "winner", string(winner))
	that.publish(event)

	return nil
}

// Reset - returns the machine to the waiting state with a fresh board,
// keeping the current settings.
func (that *Machine) Reset() error {
	that.mu.Lock()

	board, err := entity.NewBoard(that.settings.Size)
	if err != nil {
		that.mu.Unlock()
		return fmt.Errorf("failed to create board: %w", err)
	}

	that.board = board
	that.step = 0
	that.lastMove = nil
	that.status = entity.StatusWaiting
	that.verdict = VerdictUnresolved
	that.winner = entity.EmptyCell
	that.region = nil
	that.active = entity.MarkerX
	that.busy = false

	event := Event{Kind: EventReset, Snapshot: that.snapshotLocked()}
	that.mu.Unlock()

	that.publish(event)

	return nil
}

// LoadSavedGame - rehydrates the machine from a persisted snapshot. The
// snapshot is validated in full before anything is touched; on any error
// the live state is left exactly as it was.
func (that *Machine) LoadSavedGame(saved entity.SavedGame) error {
	size := saved.Size
	if size == 0 {
		size = saved.Board.Size()
	}

	if err := saved.Board.Validate(size); err != nil {
		return fmt.Errorf("failed to validate saved board: %w", err)
	}

	switch saved.Status {
	case entity.StatusWaiting, entity.StatusOngoing, entity.StatusFinished:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStatus, saved.Status)
	}

	opponent := saved.Opponent
	if opponent == "" {
		opponent = entity.OpponentComputer
	}

	if opponent != entity.OpponentPlayer && opponent != entity.OpponentComputer {
		return fmt.Errorf("%w: %q", ErrUnknownOpponent, opponent)
	}

	if saved.LastMove != nil {
		if !saved.Board.InBounds(saved.LastMove.Row, saved.LastMove.Column) {
			return fmt.Errorf("%w: lastMove %d:%d", apperror.ErrInvalidCell, saved.LastMove.Row, saved.LastMove.Column)
		}

		if saved.Board.At(saved.LastMove.Row, saved.LastMove.Column) == entity.EmptyCell {
			return fmt.Errorf("%w: lastMove points at an empty cell", ErrInconsistentSnapshot)
		}
	}

	that.mu.Lock()

	if that.busy {
		that.mu.Unlock()
		return apperror.ErrInputBlocked
	}

	that.board = saved.Board.Clone()
	that.step = that.board.CountFilled()
	that.lastMove = nil

	if saved.LastMove != nil {
		that.lastMove = &entity.Cell{Row: saved.LastMove.Row, Column: saved.LastMove.Column}
	}

	that.status = saved.Status
	if that.status == entity.StatusWaiting && that.step > 0 {
		that.status = entity.StatusOngoing
	}

	// Persisted snapshots carry no verdict; a finished one stays finished
	// with the outcome unresolved until a fresh check.
	that.verdict = VerdictUnresolved
	that.winner = entity.EmptyCell
	that.region = nil

	if that.step%2 == 0 {
		that.active = entity.MarkerX
	} else {
		that.active = entity.MarkerO
	}

	that.settings.Size = size
	that.settings.Opponent = opponent
	that.settings.Difficulty = saved.Difficulty

	event := Event{Kind: EventLoaded, Snapshot: that.snapshotLocked()}
	that.mu.Unlock()

	that.logger.Info("saved game loaded", "gameID", saved.GameID, "step", event.Snapshot.Step, "status", event.Snapshot.Status)
	that.publish(event)

	return nil
}

// Snapshot returns a copy of the whole machine state.
func (that *Machine) Snapshot() Snapshot {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.snapshotLocked()
}

func (that *Machine) Status() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.status
}

// Started reports whether a match is in progress. It turns false once the
// match finishes.
func (that *Machine) Started() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.status == entity.StatusOngoing
}

func (that *Machine) Finished() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.status == entity.StatusFinished
}

func (that *Machine) Busy() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.busy
}

func (that *Machine) Step() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.step
}

func (that *Machine) Board() entity.Board {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.board.Clone()
}

func (that *Machine) LastMove() *entity.Cell {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.lastMove == nil {
		return nil
	}

	return &entity.Cell{Row: that.lastMove.Row, Column: that.lastMove.Column}
}

func (that *Machine) ActiveMarker() entity.Marker {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.active
}

func (that *Machine) Verdict() Verdict {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.verdict
}

func (that *Machine) Settings() Settings {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.settings
}

// AITurn reports whether the computer owns the next move.
func (that *Machine) AITurn() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.status != entity.StatusFinished &&
		that.settings.Opponent == entity.OpponentComputer &&
		that.active != that.settings.HumanMark
}

func (that *Machine) snapshotLocked() Snapshot {
	var lastMove *entity.Cell
	if that.lastMove != nil {
		lastMove = &entity.Cell{Row: that.lastMove.Row, Column: that.lastMove.Column}
	}

	var region *entity.Region
	if that.region != nil {
		copied := *that.region
		region = &copied
	}

	return Snapshot{
		Board:      that.board.Clone(),
		Step:       that.step,
		LastMove:   lastMove,
		Status:     that.status,
		Verdict:    that.verdict,
		Winner:     that.winner,
		Region:     region,
		Size:       that.settings.Size,
		Opponent:   that.settings.Opponent,
		Difficulty: that.settings.Difficulty,
		HumanMark:  that.settings.HumanMark,
		ActiveMark: that.active,
	}
}

func (that *Machine) publish(event Event) {
	that.mu.Lock()
	subscribers := make([]Subscriber, len(that.subscribers))
	copy(subscribers, that.subscribers)
	that.mu.Unlock()

	for _, fn := range subscribers {
		fn(event)
	}
}
