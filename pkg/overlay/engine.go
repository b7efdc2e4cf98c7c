package overlay

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/overlaykit/overlay/pkg/broadcast"
	"github.com/overlaykit/overlay/pkg/timers"
)

// Engine is the composition root wiring the toast store, the notification
// store, the persistent archive and the timer managers together. It exposes
// the consumer-facing API (Notify, Record, Dismiss, toast helpers) and the
// renderer-facing hooks (snapshots, exit-complete callbacks, pause signal).
type Engine struct {
	cfg    Config
	clock  clockwork.Clock
	log    *slog.Logger
	group  *timers.Group
	toasts *ToastStore
	store  *NotificationStore
	items  *Archive
	bus    *broadcast.Broadcaster[Snapshot]

	toastTimers        *timers.Manager
	notificationTimers *timers.Manager
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithClock sets the clock, primarily for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMaxPersistentItems overrides the archive cap.
func WithMaxPersistentItems(n int) Option {
	return func(e *Engine) { e.cfg.MaxPersistentItems = n }
}

// New creates a fully wired engine.
//
// Wiring happens in three stages to avoid a cyclic object graph: the stores
// are built first, then the timer managers with removal and liveness
// callbacks bound to the stores, then the managers are injected back into the
// stores.
func New(opts ...Option) *Engine {
	e := &Engine{
		cfg:   DefaultConfig(),
		clock: clockwork.NewRealClock(),
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cfg = e.cfg.sanitize()

	e.items = NewArchive(e.cfg, e.clock, e.log)
	e.toasts = NewToastStore(e.cfg, e.clock, e.log)
	e.store = NewNotificationStore(e.cfg, e.clock, e.log, e.items)

	e.group = timers.NewGroup(e.clock)
	e.toastTimers = e.group.NewManager("toast", e.toasts.handleTimeout, e.toasts.isLive)
	e.notificationTimers = e.group.NewManager("notification", e.store.handleTimeout, e.store.isLive)
	e.toasts.BindTimers(e.toastTimers)
	e.store.BindTimers(e.notificationTimers)

	e.bus = broadcast.New[Snapshot](8)
	e.toasts.onChange = e.publish
	e.store.onChange = e.publish
	return e
}

// Notify routes a notification request: stored mode goes straight to the
// archive without showing anything, everything else shows on the overlay.
// The returned handle's Dismiss uses api semantics.
func (e *Engine) Notify(opts Options) Handle {
	return e.notify(opts, "")
}

func (e *Engine) notify(opts Options, ownerID string) Handle {
	if opts.Mode == ModeStored {
		// The notify path never resurrects a fully dismissed id.
		if opts.ID != "" && e.store.isSuppressed(opts.ID) {
			return Handle{ID: opts.ID}
		}
		return e.record(opts, ownerID, false)
	}
	id := e.store.Add(opts, ownerID)
	return Handle{ID: id, dismiss: func() { e.store.Remove(id, ReasonAPI) }}
}

// Record writes a notification straight into the persistent archive, showing
// no overlay. Unlike Notify it is an explicit statement of intent and lifts
// any full suppression for the id.
func (e *Engine) Record(opts Options) Handle {
	return e.record(opts, "", true)
}

func (e *Engine) record(opts Options, ownerID string, clearSuppression bool) Handle {
	id := opts.ID
	if id == "" {
		id = e.items.nextID()
	} else if clearSuppression {
		e.store.clearSuppression(id)
	}
	now := e.clock.Now()
	e.items.Put(ArchivedItem{
		ID:          id,
		Theme:       opts.Theme,
		Title:       opts.Title,
		Description: opts.Description,
		Icon:        opts.Icon,
		Actions:     opts.Actions,
		CreatedAt:   now,
		UpdatedAt:   now,
		OwnerID:     ownerID,
	})
	return Handle{ID: id, dismiss: func() { e.items.Remove(id) }}
}

// Dismiss removes a notification with api semantics: no archival, no
// suppression. Unknown ids are silent no-ops.
func (e *Engine) Dismiss(id string) {
	e.store.Remove(id, ReasonAPI)
}

// DismissNotification is the renderer-facing dismissal hook carrying the real
// reason (close button, action click, timeout).
func (e *Engine) DismissNotification(id string, reason DismissReason) {
	e.store.Remove(id, reason)
}

// Toast shows a temporal toast and returns its effective id.
func (e *Engine) Toast(opts ToastOptions) string {
	return e.toasts.Add(opts, false)
}

// ProgressToast shows a toast that never auto-dismisses; the caller removes
// it once the operation completes, typically superseding it by id with a
// result toast.
func (e *Engine) ProgressToast(opts ToastOptions) string {
	return e.toasts.Add(opts, true)
}

// Note shows a note-themed toast with the given title.
func (e *Engine) Note(title string) string {
	return e.Toast(ToastOptions{Theme: ThemeNote, Title: title})
}

// Success shows a success-themed toast with the given title.
func (e *Engine) Success(title string) string {
	return e.Toast(ToastOptions{Theme: ThemeSuccess, Title: title})
}

// Warning shows a warning-themed toast with the given title.
func (e *Engine) Warning(title string) string {
	return e.Toast(ToastOptions{Theme: ThemeWarning, Title: title})
}

// Danger shows a danger-themed toast with the given title.
func (e *Engine) Danger(title string) string {
	return e.Toast(ToastOptions{Theme: ThemeDanger, Title: title})
}

// RemoveToast begins a toast's exit transition.
func (e *Engine) RemoveToast(id string) {
	e.toasts.Remove(id)
}

// UpdateToast patches a visible toast in place.
func (e *Engine) UpdateToast(id string, patch ToastPatch) {
	e.toasts.Update(id, patch)
}

// UpdateNotification patches a visible notification in place.
func (e *Engine) UpdateNotification(id string, patch NotificationPatch) {
	e.store.Update(id, patch)
}

// FinalizeToast physically removes a toast once its exit transition is done.
func (e *Engine) FinalizeToast(internalID string) {
	e.toasts.FinalizeRemoval(internalID)
}

// FinalizeNotification physically removes a notification once its exit
// transition is done.
func (e *Engine) FinalizeNotification(internalID string) {
	e.store.FinalizeRemoval(internalID)
}

// SetPaused is the renderer's hover signal: true freezes every auto-dismiss
// countdown in every category, false resumes them with their remaining time.
func (e *Engine) SetPaused(paused bool) {
	if paused {
		e.group.Pause()
	} else {
		e.group.Resume()
	}
}

// Paused reports whether the countdowns are currently frozen.
func (e *Engine) Paused() bool {
	return e.group.Paused()
}

// Toasts returns the current toast list, exiting entries included.
func (e *Engine) Toasts() []Toast {
	return e.toasts.Items()
}

// Notifications returns the current notification list, exiting entries
// included.
func (e *Engine) Notifications() []Notification {
	return e.store.Items()
}

// Archive exposes the persistent archive: items, counters, removal, clear
// and mark-all-as-read.
func (e *Engine) Archive() *Archive {
	return e.items
}

// Counts returns the archive's total and unread counters.
func (e *Engine) Counts() ArchiveCounts {
	return e.items.Counts()
}

// Snapshot returns the current renderer-facing state.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{Toasts: e.toasts.Items(), Notifications: e.store.Items()}
}

// Subscribe delivers a fresh Snapshot after every overlay state change until
// ctx is cancelled.
func (e *Engine) Subscribe(ctx context.Context) *broadcast.Subscriber[Snapshot] {
	return e.bus.Subscribe(ctx)
}

// NewOwner opens an ownership scope for a call site. Items created through
// the owner are removed together when the scope is released.
func (e *Engine) NewOwner() *Owner {
	return newOwner(e)
}

// Close cancels all timers and shuts down snapshot delivery. The stores stay
// readable.
func (e *Engine) Close() {
	e.toastTimers.Reset()
	e.notificationTimers.Reset()
	e.bus.Close()
}

func (e *Engine) publish() {
	e.bus.Publish(e.Snapshot())
}
