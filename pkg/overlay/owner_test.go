package overlay

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwner_StampsNotifications(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	owner := e.NewOwner()

	owner.Notify(Options{ID: "x"})

	items := e.Notifications()
	require.Len(t, items, 1)
	assert.Equal(t, owner.ID(), items[0].OwnerID)
}

func TestOwner_ReleaseRemovesAllOwnedAndNothingElse(t *testing.T) {
	t.Parallel()

	e, clock := newTestEngine(t)
	owner := e.NewOwner()

	for i := 0; i < 3; i++ {
		owner.Notify(Options{ID: fmt.Sprintf("mine-%d", i), Duration: durationOf(0)})
	}
	e.Notify(Options{ID: "other", Duration: durationOf(0)})

	owner.Release()

	// Cleanup is deferred by one tick.
	assert.Len(t, activeEngineNotifications(e), 4)

	clock.Advance(5 * time.Millisecond)
	require.Eventually(t, func() bool {
		return len(activeEngineNotifications(e)) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, "other", activeEngineNotifications(e)[0].ID)
}

func TestOwner_DoubleReleaseIsNoOp(t *testing.T) {
	t.Parallel()

	e, clock := newTestEngine(t)
	owner := e.NewOwner()

	owner.Notify(Options{ID: "mine", Duration: durationOf(0)})

	owner.Release()
	owner.Release()

	clock.Advance(5 * time.Millisecond)
	require.Eventually(t, func() bool {
		return len(activeEngineNotifications(e)) == 0
	}, time.Second, time.Millisecond)

	assert.NotPanics(t, func() {
		owner.Release()
	})
}

func TestOwner_RetainCancelsPendingRelease(t *testing.T) {
	t.Parallel()

	e, clock := newTestEngine(t)
	owner := e.NewOwner()

	owner.Notify(Options{ID: "mine", Duration: durationOf(0)})

	// Unmount immediately followed by remount: nothing may be torn down.
	owner.Release()
	owner.Retain()

	clock.Advance(time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, activeEngineNotifications(e), 1)

	// The scope stays fully usable.
	owner.Notify(Options{ID: "more", Duration: durationOf(0)})
	assert.Len(t, activeEngineNotifications(e), 2)
}

func TestOwner_StaleScopeReturnsInertHandles(t *testing.T) {
	t.Parallel()

	e, clock := newTestEngine(t)
	owner := e.NewOwner()

	owner.Release()
	clock.Advance(5 * time.Millisecond)

	require.Eventually(t, func() bool {
		return owner.isReleased()
	}, time.Second, time.Millisecond)

	handle := owner.Notify(Options{ID: "late"})
	assert.Equal(t, "late", handle.ID)
	assert.Empty(t, e.Notifications())
	assert.NotPanics(t, handle.Dismiss)

	recorded := owner.Record(Options{ID: "late-record"})
	assert.Equal(t, 0, e.Archive().Count())
	assert.NotPanics(t, recorded.Dismiss)
}

func TestOwner_RecordStampsArchiveItems(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	owner := e.NewOwner()

	owner.Record(Options{ID: "a"})
	owner.Record(Options{ID: "b"})
	e.Record(Options{ID: "c"})

	e.Archive().RemoveByOwner(owner.ID())
	require.Equal(t, 1, e.Archive().Count())
	_, ok := e.Archive().Get("c")
	assert.True(t, ok)
}

func TestOwner_ReleaseDoesNotTouchArchive(t *testing.T) {
	t.Parallel()

	e, clock := newTestEngine(t)
	owner := e.NewOwner()

	owner.Record(Options{ID: "kept"})
	owner.Notify(Options{ID: "shown", Duration: durationOf(0)})

	owner.Release()
	clock.Advance(5 * time.Millisecond)

	require.Eventually(t, func() bool {
		return len(activeEngineNotifications(e)) == 0
	}, time.Second, time.Millisecond)

	// The archive outlives the scope that wrote to it.
	assert.Equal(t, 1, e.Archive().Count())
}
