// Package timers provides auto-dismiss timer management for categories of
// timed items, with a single shared pause signal across all categories.
//
// A Group owns the global paused flag. Each Manager created from the group
// tracks per-item timers for one category ("toast", "notification") and keeps
// remaining-duration bookkeeping across pause cycles, so pausing at 2s into a
// 5s timer and resuming later fires the timeout 3s after the resume.
//
// # Basic Usage
//
//	group := timers.NewGroup(clockwork.NewRealClock())
//
//	manager := group.NewManager("toast",
//	    func(id string) { store.Remove(id) },
//	    func(internalID string) bool { return store.Contains(internalID) },
//	)
//
//	manager.Start("toast-1-1700000000000", "my-toast", 5*time.Second)
//
//	// Mouse entered the overlay region: freeze every visible countdown.
//	group.Pause()
//
//	// Mouse left: resume with whatever time was left.
//	group.Resume()
//
// The liveness callback is consulted on resume so timers are never rescheduled
// for items that were removed while paused. Timeout callbacks run on their own
// goroutine; the owning store must re-check existence before acting, since the
// item may have been removed concurrently by another path.
package timers
