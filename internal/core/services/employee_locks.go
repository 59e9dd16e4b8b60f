package services

import "sync"

// employeeLocks serializes transitions per employee inside this process.
// Entries are reference counted and dropped once nobody holds or waits on them.
type employeeLocks struct {
	mu    sync.Mutex
	locks map[string]*employeeLock
}

type employeeLock struct {
	mu   sync.Mutex
	refs int
}

func newEmployeeLocks() *employeeLocks {
	return &employeeLocks{locks: make(map[string]*employeeLock)}
}

// lock blocks until employeeID is free and returns the matching unlock func.
func (l *employeeLocks) lock(employeeID string) func() {
	l.mu.Lock()
	el, ok := l.locks[employeeID]
	if !ok {
		el = &employeeLock{}
		l.locks[employeeID] = el
	}
	el.refs++
	l.mu.Unlock()

	el.mu.Lock()
	return func() {
		el.mu.Unlock()
		l.mu.Lock()
		el.refs--
		if el.refs == 0 {
			delete(l.locks, employeeID)
		}
		l.mu.Unlock()
	}
}

func (l *employeeLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
