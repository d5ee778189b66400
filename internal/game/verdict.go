package game

// Verdict is the latest winner-check answer for the current match. A fresh
// move resets it to unresolved until the next check comes back.
type Verdict int

const (
	// VerdictUnresolved - no check has answered since the last move.
	VerdictUnresolved Verdict = iota
	// VerdictOngoing - the last check confirmed the game is still open.
	VerdictOngoing
	// VerdictWon - a marker completed a line.
	VerdictWon
	// VerdictDraw - the board filled with no winner.
	VerdictDraw
)

func (that Verdict) String() string {
	switch that {
	case VerdictUnresolved:
		return "unresolved"
	case VerdictOngoing:
		return "ongoing"
	case VerdictWon:
		return "won"
	case VerdictDraw:
		return "draw"
	default:
		return "unknown"
	}
}

// Terminal reports whether the verdict ends the match.
func (that Verdict) Terminal() bool {
	return that == VerdictWon || that == VerdictDraw
}
