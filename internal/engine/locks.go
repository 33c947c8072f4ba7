package engine

import "sync"

// lockTable serializes read-modify-write cycles per account so that two
// workers in the same process cannot interleave on one balance.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

func (t *lockTable) lockFor(id string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[id]
	if !ok {
		l = &sync.Mutex{}
		t.locks[id] = l
	}
	return l
}

// acquire locks a single account. The returned func releases it.
func (t *lockTable) acquire(id string) func() {
	l := t.lockFor(id)
	l.Lock()
	return l.Unlock
}

// acquirePair locks two accounts in lexicographic id order so that
// opposite-direction transfers cannot deadlock each other.
func (t *lockTable) acquirePair(a, b string) func() {
	if a == b {
		return t.acquire(a)
	}
	if b < a {
		a, b = b, a
	}
	first, second := t.lockFor(a), t.lockFor(b)
	first.Lock()
	second.Lock()
	return func() {
		second.Unlock()
		first.Unlock()
	}
}
