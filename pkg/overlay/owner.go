package overlay

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/overlaykit/overlay/pkg/logger"
)

// releaseDefer is how long a Release stays cancelable. Cleanup is deferred
// one tick so a synchronous teardown/recreate cycle (Release immediately
// followed by Retain) neither leaks timers nor dismisses notifications the
// re-created scope still wants.
const releaseDefer = time.Millisecond

// Owner is an ownership scope for a call site. Notifications created through
// it carry its generated id, and releasing the scope removes them all in one
// batch with api semantics.
type Owner struct {
	id string
	e  *Engine

	mu       sync.Mutex
	released bool
	pending  clockwork.Timer
}

func newOwner(e *Engine) *Owner {
	return &Owner{id: uuid.NewString(), e: e}
}

// ID returns the owner's generated id.
func (o *Owner) ID() string {
	return o.id
}

// Notify behaves like Engine.Notify with the notification stamped as owned by
// this scope. After the scope has been released it returns an inert handle
// and does nothing.
func (o *Owner) Notify(opts Options) Handle {
	if o.isReleased() {
		return Handle{ID: opts.ID}
	}
	return o.e.notify(opts, o.id)
}

// Record behaves like Engine.Record with the archived item stamped as owned
// by this scope. Inert after release.
func (o *Owner) Record(opts Options) Handle {
	if o.isReleased() {
		return Handle{ID: opts.ID}
	}
	return o.e.record(opts, o.id, true)
}

// Release schedules the scope's teardown: one deferred tick later every
// notification it owns is removed with api semantics. Releasing an already
// released scope, or one with a release already pending, is a no-op.
func (o *Owner) Release() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.released || o.pending != nil {
		return
	}
	o.pending = o.e.clock.AfterFunc(releaseDefer, o.teardown)
}

// Retain cancels a pending release. A scope re-established before its
// teardown tick keeps all its notifications and stays usable.
func (o *Owner) Retain() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending != nil {
		o.pending.Stop()
		o.pending = nil
	}
}

func (o *Owner) isReleased() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.released
}

func (o *Owner) teardown() {
	o.mu.Lock()
	if o.released {
		o.mu.Unlock()
		return
	}
	o.released = true
	o.pending = nil
	o.mu.Unlock()

	o.e.log.Debug("owner scope released",
		logger.Component("engine"),
		logger.OwnerID(o.id),
	)
	o.e.store.RemoveByOwner(o.id)
}
