package services

import "sync"

// RouteLocks serializes mutations per route id.
//
// Every load-modify-save cycle on a route happens while holding its lock, so
// two incident reports (or an incident and a stop update) cannot interleave
// and lose each other's writes. Entries are reference counted and removed
// once no goroutine holds or waits for them.
type RouteLocks struct {
	mu    sync.Mutex
	locks map[string]*routeLock
}

type routeLock struct {
	mu   sync.Mutex
	refs int
}

func NewRouteLocks() *RouteLocks {
	return &RouteLocks{locks: make(map[string]*routeLock)}
}

// Lock blocks until the route's lock is held and returns the unlock func.
func (l *RouteLocks) Lock(routeID string) (unlock func()) {
	l.mu.Lock()
	rl, ok := l.locks[routeID]
	if !ok {
		rl = &routeLock{}
		l.locks[routeID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()

	return func() {
		rl.mu.Unlock()

		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, routeID)
		}
		l.mu.Unlock()
	}
}

// held returns the number of routes with an active or pending lock.
func (l *RouteLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
