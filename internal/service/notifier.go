package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Notifier is the non-visual core of the failure snackbar: it holds the
// set of active notices, auto-dismisses each one after a fixed lifetime,
// and suppresses board input while at least one notice is showing.
type Notifier interface {
	Failure(text string)
	Active() []string
	InputSuppressed() bool
	Stop()
}

type notifier struct {
	logger   *slog.Logger
	lifetime time.Duration

	mu      sync.Mutex
	nextID  int
	notices map[int]string
	timers  map[int]*time.Timer
	stopped bool
}

// NewNotifier - notices live for the given lifetime before auto-dismissal.
func NewNotifier(logger *slog.Logger, lifetime time.Duration) Notifier {
	return &notifier{
		logger:   logger.With("component", "notifier"),
		lifetime: lifetime,
		notices:  make(map[int]string),
		timers:   make(map[int]*time.Timer),
	}
}

// Failure records a transient notice and schedules its dismissal.
func (that *notifier) Failure(text string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.stopped {
		return
	}

	id := that.nextID
	that.nextID++

	that.notices[id] = text
	that.timers[id] = time.AfterFunc(that.lifetime, func() { that.dismiss(id) })

	that.logger.Warn("failure notice shown", "text", text)
}

func (that *notifier) dismiss(id int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.notices, id)
	delete(that.timers, id)
}

// Active returns the texts of the live notices, oldest first.
func (that *notifier) Active() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	ids := make([]int, 0, len(that.notices))
	for id := range that.notices {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	texts := make([]string, 0, len(ids))
	for _, id := range ids {
		texts = append(texts, that.notices[id])
	}

	return texts
}

// InputSuppressed reports whether any notice is still showing. The game
// machine consults it before accepting a move.
func (that *notifier) InputSuppressed() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.notices) > 0
}

// Stop cancels the outstanding dismissal timers. Further notices are
// dropped.
func (that *notifier) Stop() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.stopped = true

	for id, timer := range that.timers {
		timer.Stop()
		delete(that.timers, id)
		delete(that.notices, id)
	}
}
