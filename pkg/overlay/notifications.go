package overlay

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/overlaykit/overlay/pkg/logger"
	"github.com/overlaykit/overlay/pkg/timers"
)

// NotificationStore is a bounded, upsertable collection of overlay
// notifications. On timeout or explicit close it hands persistent items to
// the archive; an action-reason dismissal instead fully suppresses the id for
// the rest of the process lifetime.
type NotificationStore struct {
	clock         clockwork.Clock
	log           *slog.Logger
	limit         int
	defDur        time.Duration
	persistentDur time.Duration
	archive       *Archive

	mu    sync.RWMutex
	items []Notification
	seq   uint64
	// dismissedByUser holds ids archived through a close or timeout
	// dismissal: a stale re-trigger of such an id must not pop back up on
	// the overlay, it goes straight to the archive.
	dismissedByUser map[string]struct{}
	// suppressed holds fully dismissed ids. They never re-enter the
	// overlay or the archive through Add; only Record or a process
	// restart clears them.
	suppressed map[string]struct{}

	timers   *timers.Manager
	onChange func()
}

// NewNotificationStore creates a notification store writing persistent
// snapshots into archive. Timers must be bound with BindTimers before
// notifications can auto-dismiss.
func NewNotificationStore(cfg Config, clock clockwork.Clock, log *slog.Logger, archive *Archive) *NotificationStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	cfg = cfg.sanitize()
	return &NotificationStore{
		clock:           clock,
		log:             log,
		limit:           cfg.MaxNotifications,
		defDur:          cfg.NotificationDuration,
		persistentDur:   cfg.PersistentDuration,
		archive:         archive,
		dismissedByUser: make(map[string]struct{}),
		suppressed:      make(map[string]struct{}),
	}
}

// BindTimers injects the timer manager, completing the three-stage wiring.
func (s *NotificationStore) BindTimers(m *timers.Manager) {
	s.mu.Lock()
	s.timers = m
	s.mu.Unlock()
}

// Add inserts or upserts a notification and returns its effective id.
//
// Fully suppressed ids are ignored. A persistent id the user already
// dismissed is upserted straight into the archive without showing an overlay.
// An id that is currently visible is updated in place; its timer restarts
// only when the title or description string actually changed value, so silent
// metadata churn does not reset the countdown. Otherwise the notification is
// appended, evicting the oldest visible one when the store is at its cap.
func (s *NotificationStore) Add(opts Options, ownerID string) string {
	s.mu.Lock()

	if opts.ID != "" {
		if _, ok := s.suppressed[opts.ID]; ok {
			s.mu.Unlock()
			return opts.ID
		}
	}

	if opts.Persistent && opts.ID == "" {
		s.log.Warn("persistent notification without explicit id cannot be upserted reliably",
			logger.Component("notifications"),
		)
	}

	now := s.clock.Now()

	if opts.Persistent && opts.ID != "" {
		if _, ok := s.dismissedByUser[opts.ID]; ok {
			s.mu.Unlock()
			s.archive.Put(ArchivedItem{
				ID:          opts.ID,
				Theme:       opts.Theme,
				Title:       opts.Title,
				Description: opts.Description,
				Icon:        opts.Icon,
				Actions:     opts.Actions,
				CreatedAt:   now,
				UpdatedAt:   now,
				OwnerID:     ownerID,
			})
			return opts.ID
		}
	}

	if opts.ID != "" {
		if id, handled := s.upsertLocked(opts, now); handled {
			// upsertLocked released the lock.
			return id
		}
	}

	s.seq++
	iid := internalID("notification", s.seq, now)

	var clearTimers []string
	var archived []ArchivedItem
	for s.activeCountLocked() >= s.limit {
		idx := s.oldestActiveLocked()
		if idx < 0 {
			break
		}
		victim := s.items[idx]
		s.items[idx].Exiting = true
		clearTimers = append(clearTimers, victim.InternalID)
		if victim.Persistent {
			archived = append(archived, snapshotOf(victim, false))
		}
		s.log.Debug("evicted notification over cap",
			logger.Component("notifications"),
			logger.NotificationID(victim.InternalID),
		)
	}

	s.items = append(s.items, Notification{
		InternalID:  iid,
		ID:          opts.ID,
		Theme:       opts.Theme,
		Title:       opts.Title,
		Description: opts.Description,
		Icon:        opts.Icon,
		Actions:     opts.Actions,
		Dismissible: opts.Dismissible == nil || *opts.Dismissible,
		Duration:    opts.Duration,
		Persistent:  opts.Persistent,
		CreatedAt:   now,
		UpdatedAt:   now,
		OwnerID:     ownerID,
	})

	effectiveID := iid
	if opts.ID != "" {
		effectiveID = opts.ID
	}
	duration, enabled := s.effectiveDuration(opts)
	s.mu.Unlock()

	for _, id := range clearTimers {
		s.clearTimer(id)
	}
	for _, item := range archived {
		s.archive.Put(item)
	}
	if enabled {
		s.startTimer(iid, effectiveID, duration)
	}
	s.changed()
	return effectiveID
}

// upsertLocked updates a visible notification with the same id in place.
// It must be entered holding s.mu; when it returns handled=true the lock has
// been released and all effects applied.
func (s *NotificationStore) upsertLocked(opts Options, now time.Time) (string, bool) {
	for i := range s.items {
		n := &s.items[i]
		if n.Exiting || (n.ID != opts.ID && n.InternalID != opts.ID) {
			continue
		}

		// A visible content change restarts the countdown; anything else
		// must not. This is a deliberate UX contract.
		contentChanged := n.Title != opts.Title || n.Description != opts.Description

		n.Theme = opts.Theme
		n.Title = opts.Title
		n.Description = opts.Description
		n.Icon = opts.Icon
		n.Actions = opts.Actions
		n.Dismissible = opts.Dismissible == nil || *opts.Dismissible
		n.Duration = opts.Duration
		n.Persistent = opts.Persistent
		n.UpdatedAt = now

		iid := n.InternalID
		duration, enabled := s.effectiveDuration(opts)
		s.mu.Unlock()

		if contentChanged {
			if enabled {
				s.startTimer(iid, opts.ID, duration)
			} else {
				s.clearTimer(iid)
			}
		}
		s.changed()
		return opts.ID, true
	}
	return "", false
}

// Remove clears the notification's timer, applies the reason's archival
// semantics and marks the notification exiting. Unknown ids and
// already-exiting notifications are silent no-ops.
func (s *NotificationStore) Remove(id string, reason DismissReason) {
	s.mu.Lock()
	idx := -1
	for i := range s.items {
		if !s.items[i].Exiting && (s.items[i].ID == id || s.items[i].InternalID == id) {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}

	n := s.items[idx]
	s.items[idx].Exiting = true

	archiveID := n.ID
	if archiveID == "" {
		archiveID = n.InternalID
	}

	var toArchive *ArchivedItem
	deleteFromArchive := false
	if n.Persistent {
		switch reason {
		case ReasonClose, ReasonTimeout:
			snap := snapshotOf(n, true)
			toArchive = &snap
			s.dismissedByUser[archiveID] = struct{}{}
		case ReasonAction:
			deleteFromArchive = true
			s.suppressed[archiveID] = struct{}{}
		}
	}
	s.mu.Unlock()

	s.clearTimer(n.InternalID)
	if toArchive != nil {
		s.archive.Put(*toArchive)
	}
	if deleteFromArchive {
		s.archive.Remove(archiveID)
	}
	s.changed()
}

// RemoveByOwner removes every visible notification created under ownerID, in
// one batch, with api semantics: no archival, no suppression.
func (s *NotificationStore) RemoveByOwner(ownerID string) {
	s.mu.Lock()
	var clearTimers []string
	for i := range s.items {
		if !s.items[i].Exiting && s.items[i].OwnerID == ownerID {
			s.items[i].Exiting = true
			clearTimers = append(clearTimers, s.items[i].InternalID)
		}
	}
	s.mu.Unlock()

	if len(clearTimers) == 0 {
		return
	}
	for _, id := range clearTimers {
		s.clearTimer(id)
	}
	s.log.Debug("removed notifications for owner",
		logger.Component("notifications"),
		logger.OwnerID(ownerID),
		logger.Count(len(clearTimers)),
	)
	s.changed()
}

// FinalizeRemoval physically deletes a notification. The renderer calls this
// exactly once per notification after its exit transition completes.
func (s *NotificationStore) FinalizeRemoval(internalID string) {
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

// Update shallow-merges the patch into the matching visible notification
// without touching its exit state or timer.
func (s *NotificationStore) Update(id string, patch NotificationPatch) {
	s.mu.Lock()
	updated := false
	for i := range s.items {
		n := &s.items[i]
		if n.Exiting || (n.ID != id && n.InternalID != id) {
			continue
		}
		if patch.Theme != nil {
			n.Theme = *patch.Theme
		}
		if patch.Title != nil {
			n.Title = *patch.Title
		}
		if patch.Description != nil {
			n.Description = *patch.Description
		}
		if patch.Icon != nil {
			n.Icon = *patch.Icon
		}
		if patch.Actions != nil {
			n.Actions = patch.Actions
		}
		n.UpdatedAt = s.clock.Now()
		updated = true
		break
	}
	s.mu.Unlock()

	if updated {
		s.changed()
	}
}

// Items returns a copy of the current notification list, exiting entries
// included.
func (s *NotificationStore) Items() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, len(s.items))
	copy(out, s.items)
	return out
}

// ActiveCount returns the number of non-exiting notifications.
func (s *NotificationStore) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeCountLocked()
}

// handleTimeout is the timer manager's removal callback.
func (s *NotificationStore) handleTimeout(id string) {
	s.Remove(id, ReasonTimeout)
}

// isLive reports whether the notification is present and not exiting.
func (s *NotificationStore) isLive(internalID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.items {
		if s.items[i].InternalID == internalID {
			return !s.items[i].Exiting
		}
	}
	return false
}

// clearSuppression lifts the full suppression for id. Only the Record path
// uses this: it is the one deliberate way to resurrect a fully dismissed id.
func (s *NotificationStore) clearSuppression(id string) {
	s.mu.Lock()
	delete(s.suppressed, id)
	s.mu.Unlock()
}

// isSuppressed reports whether id has been fully dismissed.
func (s *NotificationStore) isSuppressed(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.suppressed[id]
	return ok
}

func (s *NotificationStore) activeCountLocked() int {
	n := 0
	for i := range s.items {
		if !s.items[i].Exiting {
			n++
		}
	}
	return n
}

func (s *NotificationStore) oldestActiveLocked() int {
	for i := range s.items {
		if !s.items[i].Exiting {
			return i
		}
	}
	return -1
}

func (s *NotificationStore) effectiveDuration(opts Options) (time.Duration, bool) {
	if opts.Duration != nil {
		if *opts.Duration <= 0 {
			return 0, false
		}
		return *opts.Duration, true
	}
	if opts.Persistent {
		return s.persistentDur, true
	}
	return s.defDur, true
}

func (s *NotificationStore) startTimer(internalID, id string, d time.Duration) {
	s.mu.RLock()
	m := s.timers
	s.mu.RUnlock()
	if m != nil {
		m.Start(internalID, id, d)
	}
}

func (s *NotificationStore) clearTimer(internalID string) {
	s.mu.RLock()
	m := s.timers
	s.mu.RUnlock()
	if m != nil {
		m.Clear(internalID)
	}
}

func (s *NotificationStore) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// snapshotOf captures the archive view of a notification at the moment it
// leaves the overlay.
func snapshotOf(n Notification, read bool) ArchivedItem {
	id := n.ID
	if id == "" {
		id = n.InternalID
	}
	return ArchivedItem{
		ID:          id,
		Theme:       n.Theme,
		Title:       n.Title,
		Description: n.Description,
		Icon:        n.Icon,
		Actions:     n.Actions,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
		Read:        read,
		OwnerID:     n.OwnerID,
	}
}
