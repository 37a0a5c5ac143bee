package session

import (
	"sync"
	"sync/atomic"
)

// 🚧 Gate switches auto-routing off while manual pastes are in flight.
//
// Sweeps run inside Guard with the gate's lock held, so Hold waits for a
// running sweep to finish and a sweep started during a hold does nothing.
type Gate struct {
	mu      sync.Mutex
	holds   int
	enabled atomic.Bool
}

// NewGate returns an enabled gate
func NewGate() *Gate {
	g := &Gate{}
	g.enabled.Store(true)
	return g
}

// Enabled reports whether auto-routing is allowed right now
func (g *Gate) Enabled() bool {
	return g.enabled.Load()
}

// Hold disables auto-routing until the returned release is called.
// Release is idempotent; overlapping holds are counted.
func (g *Gate) Hold() (release func()) {
	g.mu.Lock()
	g.holds++
	g.enabled.Store(false)
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.holds--
			g.enabled.Store(g.holds == 0)
			g.mu.Unlock()
		})
	}
}

// Guard runs fn while no hold is active and reports whether it ran
func (g *Gate) Guard(fn func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.holds > 0 {
		return false
	}
	fn()
	return true
}
