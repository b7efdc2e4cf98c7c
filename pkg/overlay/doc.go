// Package overlay implements the state engine behind ephemeral UI
// notifications: toasts, richer overlay notifications and a persistent
// in-memory archive of notifications that survive past their overlay
// lifetime.
//
// The package owns which messages are currently visible, for how long, in
// what order, and where they go when dismissed or timed out. It deliberately
// owns nothing about presentation: a renderer consumes plain Snapshot records
// and reports exit-transition completion, dismissal and hover pause back into
// the engine.
//
// # Architecture
//
//   - ToastStore: bounded, deduplicated short status messages
//   - NotificationStore: bounded, upsertable action-bearing messages
//   - Archive: bounded persistent store with read/unread tracking
//   - Engine: composition root and consumer-facing API
//
// Auto-dismiss timing lives in pkg/timers; a single pause signal freezes
// every countdown at once, mirroring "the mouse is over the overlay region".
//
// # Basic Usage
//
//	engine := overlay.New()
//	defer engine.Close()
//
//	engine.Success("Changes saved")
//
//	handle := engine.Notify(overlay.Options{
//	    ID:         "sync-failed",
//	    Theme:      overlay.ThemeDanger,
//	    Title:      "Sync failed",
//	    Persistent: true,
//	})
//
//	// Later, from application code:
//	handle.Dismiss()
//
// # Renderer Integration
//
//	sub := engine.Subscribe(ctx)
//	for snap := range sub.C() {
//	    render(snap.Toasts, snap.Notifications)
//	}
//
// The renderer must call FinalizeToast / FinalizeNotification exactly once
// per item after the exit animation finishes, and forward hover state through
// SetPaused and user dismissals through DismissNotification with the real
// reason.
//
// # Ownership Scopes
//
// A call-site scope (a component instance, a request handler) obtains an
// Owner once and creates notifications through it. Releasing the owner tears
// its notifications down in one batch; the teardown is deferred one tick and
// cancelable with Retain, so rapid unmount/remount churn neither leaks timers
// nor drops notifications the remount immediately recreates.
package overlay
