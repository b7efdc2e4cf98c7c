package overlay

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/overlaykit/overlay/pkg/logger"
	"github.com/overlaykit/overlay/pkg/timers"
)

// ToastStore is a bounded, deduplicated collection of short transient
// messages with auto-dismiss. All methods are safe for concurrent use.
//
// Removal is two-phase: Remove marks a toast exiting so the renderer can play
// its exit transition, FinalizeRemoval physically deletes it. An exiting toast
// is never mutated again and never revived.
type ToastStore struct {
	clock  clockwork.Clock
	log    *slog.Logger
	limit  int
	defDur time.Duration

	mu    sync.RWMutex
	items []Toast
	seq   uint64

	timers   *timers.Manager
	onChange func()
}

// NewToastStore creates a toast store. Timers must be bound with BindTimers
// before toasts can auto-dismiss; until then toasts simply stay visible.
func NewToastStore(cfg Config, clock clockwork.Clock, log *slog.Logger) *ToastStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	cfg = cfg.sanitize()
	return &ToastStore{
		clock:  clock,
		log:    log,
		limit:  cfg.MaxToasts,
		defDur: cfg.ToastDuration,
	}
}

// BindTimers injects the timer manager. Separate from construction so the
// manager can be built with callbacks into this store first.
func (s *ToastStore) BindTimers(m *timers.Manager) {
	s.mu.Lock()
	s.timers = m
	s.mu.Unlock()
}

// Add inserts a toast and returns its effective id (the explicit id when
// given, the generated internal id otherwise).
//
// A visible toast with the same dedupe key is superseded first: last write
// wins and the previous instance animates out. The store then evicts the
// oldest visible toast while over its cap, preferring temporal toasts over
// progress ones; when the just-added toast is itself the eviction victim its
// timer is never started.
func (s *ToastStore) Add(opts ToastOptions, progress bool) string {
	s.mu.Lock()

	now := s.clock.Now()
	s.seq++
	iid := internalID("toast", s.seq, now)
	key := dedupeKey(opts.ID, opts.Theme, opts.Title, opts.Description)

	var clearTimers []string
	for i := range s.items {
		if !s.items[i].Exiting && s.items[i].DedupeKey == key {
			s.items[i].Exiting = true
			clearTimers = append(clearTimers, s.items[i].InternalID)
		}
	}

	s.items = append(s.items, Toast{
		InternalID:  iid,
		ID:          opts.ID,
		DedupeKey:   key,
		Theme:       opts.Theme,
		Title:       opts.Title,
		Description: opts.Description,
		Duration:    opts.Duration,
		Progress:    progress,
		CreatedAt:   now,
	})

	evicted := false
	for s.activeCountLocked() > s.limit {
		idx := s.evictionCandidateLocked()
		if idx < 0 {
			break
		}
		if s.items[idx].InternalID == iid {
			evicted = true
		}
		s.items[idx].Exiting = true
		clearTimers = append(clearTimers, s.items[idx].InternalID)
		s.log.Debug("evicted toast over cap",
			logger.Component("toasts"),
			logger.ToastID(s.items[idx].InternalID),
		)
	}

	effectiveID := iid
	if opts.ID != "" {
		effectiveID = opts.ID
	}

	startTimer := !evicted && !progress
	duration := s.defDur
	if opts.Duration != nil {
		duration = *opts.Duration
	}
	if duration <= 0 {
		startTimer = false
	}
	s.mu.Unlock()

	for _, id := range clearTimers {
		s.clearTimer(id)
	}
	if startTimer {
		s.startTimer(iid, effectiveID, duration)
	}
	s.changed()
	return effectiveID
}

// Remove clears the toast's timer and marks it exiting. Unknown ids and
// already-exiting toasts are silent no-ops.
func (s *ToastStore) Remove(id string) {
	s.mu.Lock()
	var iid string
	for i := range s.items {
		if s.items[i].Exiting {
			continue
		}
		if s.items[i].ID == id || s.items[i].InternalID == id {
			s.items[i].Exiting = true
			iid = s.items[i].InternalID
			break
		}
	}
	s.mu.Unlock()

	if iid == "" {
		return
	}
	s.clearTimer(iid)
	s.changed()
}

// FinalizeRemoval physically deletes a toast. The renderer calls this exactly
// once per toast after its exit transition completes.
func (s *ToastStore) FinalizeRemoval(internalID string) {
	s.mu.Lock()
	removed := false
	for i := range s.items {
		if s.items[i].InternalID == internalID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()

	if !removed {
		return
	}
	s.clearTimer(internalID)
	s.changed()
}

// Update shallow-merges the patch into the matching visible toast without
// touching its exit state or timer.
func (s *ToastStore) Update(id string, patch ToastPatch) {
	s.mu.Lock()
	updated := false
	for i := range s.items {
		t := &s.items[i]
		if t.Exiting || (t.ID != id && t.InternalID != id) {
			continue
		}
		if patch.Theme != nil {
			t.Theme = *patch.Theme
		}
		if patch.Title != nil {
			t.Title = *patch.Title
		}
		if patch.Description != nil {
			t.Description = *patch.Description
		}
		updated = true
		break
	}
	s.mu.Unlock()

	if updated {
		s.changed()
	}
}

// Items returns a copy of the current toast list, exiting entries included.
func (s *ToastStore) Items() []Toast {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Toast, len(s.items))
	copy(out, s.items)
	return out
}

// ActiveCount returns the number of non-exiting toasts.
func (s *ToastStore) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeCountLocked()
}

// handleTimeout is the timer manager's removal callback. Remove re-checks
// existence, so a timeout racing another removal path is harmless.
func (s *ToastStore) handleTimeout(id string) {
	s.Remove(id)
}

// isLive reports whether the toast is present and not exiting. The timer
// manager consults it before rescheduling on resume.
func (s *ToastStore) isLive(internalID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.items {
		if s.items[i].InternalID == internalID {
			return !s.items[i].Exiting
		}
	}
	return false
}

func (s *ToastStore) activeCountLocked() int {
	n := 0
	for i := range s.items {
		if !s.items[i].Exiting {
			n++
		}
	}
	return n
}

// evictionCandidateLocked picks the oldest visible temporal toast; progress
// toasts are only eligible when no temporal toast remains to evict.
func (s *ToastStore) evictionCandidateLocked() int {
	firstActive := -1
	for i := range s.items {
		if s.items[i].Exiting {
			continue
		}
		if firstActive < 0 {
			firstActive = i
		}
		if !s.items[i].Progress {
			return i
		}
	}
	return firstActive
}

func (s *ToastStore) startTimer(internalID, id string, d time.Duration) {
	s.mu.RLock()
	m := s.timers
	s.mu.RUnlock()
	if m != nil {
		m.Start(internalID, id, d)
	}
}

func (s *ToastStore) clearTimer(internalID string) {
	s.mu.RLock()
	m := s.timers
	s.mu.RUnlock()
	if m != nil {
		m.Clear(internalID)
	}
}

func (s *ToastStore) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
