package guard

import (
	"sync"

	"carbon-registry/registry-backend/internal/domain"
)

// Guard is an explicit per-call mutual-exclusion flag. Every externally
// reachable operation acquires it on entry and releases it on every exit path.
// Unlike a plain mutex, a second acquisition while held fails instead of
// blocking, so a recipient that calls back into the engine during an external
// value transfer is rejected rather than deadlocked.
type Guard struct {
	mu   sync.Mutex
	held bool
}

func New() *Guard {
	return &Guard{}
}

// Enter acquires the flag. Fails with a StateError when already held.
func (g *Guard) Enter() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return domain.Statef("reentrant call")
	}
	g.held = true
	return nil
}

// Exit releases the flag. Safe to defer immediately after a successful Enter.
func (g *Guard) Exit() {
	g.mu.Lock()
	g.held = false
	g.mu.Unlock()
}
