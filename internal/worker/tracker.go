package worker

import (
	"sync"

	"github.com/scratchbank/ledgerd/internal/domain"
)

// Result is the aggregate outcome of one batch.
type Result struct {
	Remaining int
	Errs      []*domain.CommandError
}

// Tracker owns the countdown and error list for one batch. It replaces
// shared mutable counters with a single coordinator: processing reports each
// terminal command through Finish, and the completion result is delivered
// exactly once on Done.
type Tracker struct {
	mu        sync.Mutex
	remaining int
	errs      []*domain.CommandError
	completed bool
	done      chan Result
}

func NewTracker(expected int) *Tracker {
	return &Tracker{remaining: expected, done: make(chan Result, 1)}
}

// Finish records one terminal command, with its error if it failed, and
// reports whether the batch just completed. Completion fires at most once.
func (t *Tracker) Finish(cmdErr *domain.CommandError) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cmdErr != nil {
		t.errs = append(t.errs, cmdErr)
	}
	t.remaining--
	if t.remaining > 0 || t.completed {
		return false
	}
	t.completed = true
	t.done <- Result{Remaining: t.remaining, Errs: t.errs}
	return true
}

// Done delivers the batch result once all expected commands are terminal.
func (t *Tracker) Done() <-chan Result {
	return t.done
}

// Snapshot returns the current countdown and a copy of the errors collected
// so far. Used when a batch deadline expires before completion.
func (t *Tracker) Snapshot() Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	errs := make([]*domain.CommandError, len(t.errs))
	copy(errs, t.errs)
	return Result{Remaining: t.remaining, Errs: errs}
}
