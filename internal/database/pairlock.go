package database

import "sync"

type pairKey struct{ a, b int64 }

// pairLocks hands out one mutex per canonical pair so writes to the same pair
// serialize while unrelated pairs proceed. Entries are reference counted and
// dropped once no writer holds them.
type pairLocks struct {
	mu    sync.Mutex
	locks map[pairKey]*pairLock
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[pairKey]*pairLock)}
}

// lock acquires the mutex for (a, b) and returns its release func.
func (p *pairLocks) lock(a, b int64) func() {
	k := pairKey{a, b}
	p.mu.Lock()
	l, ok := p.locks[k]
	if !ok {
		l = &pairLock{}
		p.locks[k] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, k)
		}
		p.mu.Unlock()
	}
}

func (p *pairLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
