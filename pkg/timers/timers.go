package timers

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// TimeoutFunc is invoked when an item's auto-dismiss timer elapses. It
// receives the item's logical id (the caller-supplied key when one exists,
// the internal id otherwise).
type TimeoutFunc func(id string)

// LiveFunc reports whether the item identified by internalID is still live in
// the owning store: present and not in its exit transition. It is consulted
// before rescheduling a timer on resume.
type LiveFunc func(internalID string) bool

// Group shares a single paused flag across all managers created from it.
// Pausing the group freezes every running timer in every category; resuming
// restarts them with whatever time they had left.
type Group struct {
	clock  clockwork.Clock
	paused atomic.Bool

	mu       sync.Mutex
	managers []*Manager
}

// NewGroup creates a timer group. A nil clock defaults to the real clock.
func NewGroup(clock clockwork.Clock) *Group {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Group{clock: clock}
}

// NewManager creates and registers a manager for one category of timed items.
func (g *Group) NewManager(category string, onTimeout TimeoutFunc, live LiveFunc) *Manager {
	m := &Manager{
		category:  category,
		clock:     g.clock,
		group:     g,
		onTimeout: onTimeout,
		live:      live,
		timers:    make(map[string]clockwork.Timer),
		pending:   make(map[string]*pendingTimer),
	}
	g.mu.Lock()
	g.managers = append(g.managers, m)
	g.mu.Unlock()
	return m
}

// Paused reports whether the group is currently paused.
func (g *Group) Paused() bool {
	return g.paused.Load()
}

// Pause freezes every running timer in every registered manager. Idempotent.
func (g *Group) Pause() {
	if !g.paused.CompareAndSwap(false, true) {
		return
	}
	for _, m := range g.snapshot() {
		m.pauseAll()
	}
}

// Resume restarts timers with their remaining durations. Items that vanished
// while paused, or whose remaining time already reached zero, are dropped.
// Idempotent.
func (g *Group) Resume() {
	if !g.paused.CompareAndSwap(true, false) {
		return
	}
	for _, m := range g.snapshot() {
		m.resumeAll()
	}
}

func (g *Group) snapshot() []*Manager {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Manager, len(g.managers))
	copy(out, g.managers)
	return out
}

// Manager owns the running timers and pause bookkeeping for one category of
// timed items, keyed by internal id.
type Manager struct {
	category  string
	clock     clockwork.Clock
	group     *Group
	onTimeout TimeoutFunc
	live      LiveFunc

	mu      sync.Mutex
	timers  map[string]clockwork.Timer
	pending map[string]*pendingTimer
}

// pendingTimer tracks how much time an item has left so pause cycles do not
// lose progress.
type pendingTimer struct {
	id        string
	remaining time.Duration
	startedAt time.Time
}

// Start schedules onTimeout(id) to fire after duration, replacing any timer
// already running for internalID. While the group is paused the duration is
// recorded but nothing is scheduled until Resume.
func (m *Manager) Start(internalID, id string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked(internalID)
	m.pending[internalID] = &pendingTimer{
		id:        id,
		remaining: duration,
		startedAt: m.clock.Now(),
	}
	if m.group.Paused() {
		return
	}
	m.timers[internalID] = m.clock.AfterFunc(duration, func() { m.fire(internalID) })
}

// Clear cancels the timer for internalID and drops its bookkeeping. Clearing
// an unknown id is a no-op.
func (m *Manager) Clear(internalID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked(internalID)
	delete(m.pending, internalID)
}

// Reset cancels every timer and drops all bookkeeping.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for internalID, t := range m.timers {
		t.Stop()
		delete(m.timers, internalID)
	}
	clear(m.pending)
}

// Category returns the category name the manager was created with.
func (m *Manager) Category() string {
	return m.category
}

// Running returns the number of currently scheduled timers.
func (m *Manager) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Pending returns the number of items with remaining-time bookkeeping,
// whether their timers are scheduled or frozen by a pause.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *Manager) stopLocked(internalID string) {
	if t, ok := m.timers[internalID]; ok {
		t.Stop()
		delete(m.timers, internalID)
	}
}

// fire runs on the timer goroutine. The bookkeeping is dropped before
// onTimeout is invoked so a concurrent Clear from the store's removal path
// stays a no-op, and the lock is released first because the store will call
// back into the manager.
func (m *Manager) fire(internalID string) {
	m.mu.Lock()
	p, ok := m.pending[internalID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.pending, internalID)
	delete(m.timers, internalID)
	id := p.id
	m.mu.Unlock()

	m.onTimeout(id)
}

func (m *Manager) pauseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	for internalID, t := range m.timers {
		t.Stop()
		delete(m.timers, internalID)
		if p, ok := m.pending[internalID]; ok {
			p.remaining -= now.Sub(p.startedAt)
			if p.remaining < 0 {
				p.remaining = 0
			}
		}
	}
}

// resumeAll reschedules paused timers. The liveness check happens outside the
// manager lock: the store's lookup takes the store lock, and store operations
// call into the manager while holding it.
func (m *Manager) resumeAll() {
	type candidate struct {
		internalID string
		remaining  time.Duration
	}

	m.mu.Lock()
	candidates := make([]candidate, 0, len(m.pending))
	for internalID, p := range m.pending {
		if p.remaining <= 0 {
			delete(m.pending, internalID)
			continue
		}
		candidates = append(candidates, candidate{internalID, p.remaining})
	}
	m.mu.Unlock()

	for _, c := range candidates {
		if !m.live(c.internalID) {
			m.mu.Lock()
			delete(m.pending, c.internalID)
			m.mu.Unlock()
			continue
		}

		m.mu.Lock()
		p, ok := m.pending[c.internalID]
		if !ok {
			m.mu.Unlock()
			continue
		}
		if _, running := m.timers[c.internalID]; running {
			m.mu.Unlock()
			continue
		}
		p.startedAt = m.clock.Now()
		internalID := c.internalID
		m.timers[internalID] = m.clock.AfterFunc(p.remaining, func() { m.fire(internalID) })
		m.mu.Unlock()
	}
}
