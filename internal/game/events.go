package game

import "github.com/rocketscienceinc/tictactoe-client/internal/entity"

// EventKind - what kind of transition the machine went through.
type EventKind int

const (
	// EventMove - a marker was placed on the board.
	EventMove EventKind = iota
	// EventFinished - the match reached a terminal verdict.
	EventFinished
	// EventLoaded - a saved game replaced the live state.
	EventLoaded
	// EventReset - the machine returned to the waiting state.
	EventReset
)

func (that EventKind) String() string {
	switch that {
	case EventMove:
		return "move"
	case EventFinished:
		return "finished"
	case EventLoaded:
		return "loaded"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Snapshot is a self-consistent copy of the machine state. Consumers never
// see the live board.
type Snapshot struct {
	Board      entity.Board
	Step       int
	LastMove   *entity.Cell
	Status     string
	Verdict    Verdict
	Winner     entity.Marker
	Region     *entity.Region
	Size       int
	Opponent   entity.Opponent
	Difficulty entity.Difficulty
	HumanMark  entity.Marker
	ActiveMark entity.Marker
}

// Event describes one transition. Move, Marker and ByAI are set for
// EventMove only; the Snapshot is taken right after the transition.
type Event struct {
	Kind     EventKind
	Move     entity.Cell
	Marker   entity.Marker
	ByAI     bool
	Snapshot Snapshot
}

// Subscriber receives machine events synchronously, in subscription order,
// on the goroutine that caused the transition. The machine lock is released
// before delivery, so a subscriber may call back into the machine.
type Subscriber func(Event)
