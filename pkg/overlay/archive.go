package overlay

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/overlaykit/overlay/pkg/logger"
)

// Archive is the bounded in-memory store of notifications that survive past
// their overlay lifetime. Items are ordered newest-first by creation time and
// truncated at the configured maximum by dropping the oldest entries. State
// is volatile and scoped to the process.
type Archive struct {
	clock clockwork.Clock
	log   *slog.Logger
	limit int

	mu    sync.RWMutex
	items []ArchivedItem
	seq   uint64
	// version increments on every state write; MarkAllAsRead deliberately
	// avoids bumping it when nothing is unread.
	version uint64
}

// NewArchive creates an archive capped at cfg.MaxPersistentItems.
func NewArchive(cfg Config, clock clockwork.Clock, log *slog.Logger) *Archive {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	cfg = cfg.sanitize()
	return &Archive{
		clock: clock,
		log:   log,
		limit: cfg.MaxPersistentItems,
	}
}

// Put upserts an item by id. Updating an existing entry forces it unread: new
// content means the user has not seen it yet. The list is re-sorted
// newest-first and truncated to the cap afterwards.
func (a *Archive) Put(item ArchivedItem) {
	if item.ID == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if item.CreatedAt.IsZero() {
		item.CreatedAt = a.clock.Now()
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.CreatedAt
	}

	idx := -1
	for i := range a.items {
		if a.items[i].ID == item.ID {
			idx = i
			break
		}
	}
	if idx >= 0 {
		item.Read = false
		a.items[idx] = item
	} else {
		a.items = append(a.items, item)
	}

	sort.SliceStable(a.items, func(i, j int) bool {
		return a.items[i].CreatedAt.After(a.items[j].CreatedAt)
	})
	if len(a.items) > a.limit {
		dropped := len(a.items) - a.limit
		a.items = a.items[:a.limit]
		a.log.Debug("truncated archive over cap",
			logger.Component("archive"),
			logger.Count(dropped),
		)
	}
	a.version++
}

// Remove deletes the item with the given id. Unknown ids are silent no-ops.
func (a *Archive) Remove(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.items {
		if a.items[i].ID == id {
			a.items = append(a.items[:i], a.items[i+1:]...)
			a.version++
			return
		}
	}
}

// RemoveByOwner deletes every item created under ownerID.
func (a *Archive) RemoveByOwner(ownerID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	kept := a.items[:0]
	removed := false
	for _, item := range a.items {
		if item.OwnerID == ownerID {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	a.items = kept
	if removed {
		a.version++
	}
}

// Clear drops every item.
func (a *Archive) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.items) == 0 {
		return
	}
	a.items = nil
	a.version++
}

// MarkAllAsRead flags every item read. When nothing is unread it writes no
// state at all, so repeated calls cannot cause spurious downstream updates.
func (a *Archive) MarkAllAsRead() {
	a.mu.Lock()
	defer a.mu.Unlock()

	anyUnread := false
	for i := range a.items {
		if !a.items[i].Read {
			anyUnread = true
			break
		}
	}
	if !anyUnread {
		return
	}
	for i := range a.items {
		a.items[i].Read = true
	}
	a.version++
}

// Items returns a copy of the archive, newest-first.
func (a *Archive) Items() []ArchivedItem {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]ArchivedItem, len(a.items))
	copy(out, a.items)
	return out
}

// Get returns the item with the given id.
func (a *Archive) Get(id string) (ArchivedItem, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for i := range a.items {
		if a.items[i].ID == id {
			return a.items[i], true
		}
	}
	return ArchivedItem{}, false
}

// Count returns the number of archived items.
func (a *Archive) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}

// UnreadCount returns the number of unread items.
func (a *Archive) UnreadCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := 0
	for i := range a.items {
		if !a.items[i].Read {
			n++
		}
	}
	return n
}

// Counts returns total and unread counters in one consistent read.
func (a *Archive) Counts() ArchiveCounts {
	a.mu.RLock()
	defer a.mu.RUnlock()
	c := ArchiveCounts{Total: len(a.items)}
	for i := range a.items {
		if !a.items[i].Read {
			c.Unread++
		}
	}
	return c
}

// nextID generates an internal id for items recorded without an explicit key.
func (a *Archive) nextID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	return internalID("stored", a.seq, a.clock.Now())
}
