package overlay

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overlaykit/overlay/pkg/timers"
)

func durationOf(d time.Duration) *time.Duration {
	return &d
}

func newToastFixture(t *testing.T) (*ToastStore, *clockwork.FakeClock, *timers.Manager) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	store := NewToastStore(DefaultConfig(), clock, slog.Default())
	group := timers.NewGroup(clock)
	manager := group.NewManager("toast", store.handleTimeout, store.isLive)
	store.BindTimers(manager)
	return store, clock, manager
}

func activeToasts(s *ToastStore) []Toast {
	var out []Toast
	for _, item := range s.Items() {
		if !item.Exiting {
			out = append(out, item)
		}
	}
	return out
}

func TestToastStore_CapInvariant(t *testing.T) {
	t.Parallel()

	store, _, _ := newToastFixture(t)

	for i := 0; i < 10; i++ {
		store.Add(ToastOptions{Title: fmt.Sprintf("toast %d", i)}, false)
		assert.LessOrEqual(t, store.ActiveCount(), 3)
	}
}

func TestToastStore_EvictsOldestFirst(t *testing.T) {
	t.Parallel()

	store, _, _ := newToastFixture(t)

	for i := 0; i < 4; i++ {
		store.Add(ToastOptions{Title: fmt.Sprintf("toast %d", i)}, false)
	}

	active := activeToasts(store)
	require.Len(t, active, 3)
	assert.Equal(t, "toast 1", active[0].Title)
	assert.Equal(t, "toast 3", active[2].Title)

	// The oldest toast is the one animating out, not deleted yet.
	items := store.Items()
	require.Len(t, items, 4)
	assert.Equal(t, "toast 0", items[0].Title)
	assert.True(t, items[0].Exiting)
}

func TestToastStore_DedupeCollapsesDuplicateCalls(t *testing.T) {
	t.Parallel()

	store, _, _ := newToastFixture(t)

	store.Add(ToastOptions{Theme: ThemeSuccess, Title: "Saved"}, false)
	store.Add(ToastOptions{Theme: ThemeSuccess, Title: "Saved"}, false)

	active := activeToasts(store)
	require.Len(t, active, 1)

	items := store.Items()
	require.Len(t, items, 2)
	assert.True(t, items[0].Exiting, "the older duplicate animates out")
	assert.Equal(t, items[0].DedupeKey, items[1].DedupeKey)
}

func TestToastStore_ExplicitIDWinsLastWrite(t *testing.T) {
	t.Parallel()

	store, _, manager := newToastFixture(t)

	first := store.Add(ToastOptions{ID: "upload", Title: "Uploading"}, false)
	second := store.Add(ToastOptions{ID: "upload", Title: "Uploaded"}, false)

	assert.Equal(t, "upload", first)
	assert.Equal(t, "upload", second)

	active := activeToasts(store)
	require.Len(t, active, 1)
	assert.Equal(t, "Uploaded", active[0].Title)

	// Only the visible instance holds a timer.
	assert.Equal(t, 1, manager.Pending())
}

func TestToastStore_ProgressExemptFromEviction(t *testing.T) {
	t.Parallel()

	store, _, _ := newToastFixture(t)

	store.Add(ToastOptions{ID: "progress", Title: "Working..."}, true)
	for i := 0; i < 4; i++ {
		store.Add(ToastOptions{Title: fmt.Sprintf("temporal %d", i)}, false)
	}

	var progressActive bool
	for _, item := range activeToasts(store) {
		if item.ID == "progress" {
			progressActive = true
		}
	}
	assert.True(t, progressActive, "progress toast must survive while temporal toasts are evictable")
	assert.Equal(t, 3, store.ActiveCount())
}

func TestToastStore_JustAddedEvictedWhenOnlyProgressRemains(t *testing.T) {
	t.Parallel()

	store, clock, manager := newToastFixture(t)

	for i := 0; i < 3; i++ {
		store.Add(ToastOptions{Title: fmt.Sprintf("progress %d", i)}, true)
	}
	store.Add(ToastOptions{Title: "temporal"}, false)

	// The new temporal toast was the only eviction candidate; it must be
	// exiting and its timer must never have started.
	items := store.Items()
	require.Len(t, items, 4)
	assert.True(t, items[3].Exiting)
	assert.Equal(t, 0, manager.Pending())

	clock.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, store.ActiveCount())
}

func TestToastStore_ProgressNeverAutoDismisses(t *testing.T) {
	t.Parallel()

	store, clock, manager := newToastFixture(t)

	store.Add(ToastOptions{Title: "Working..."}, true)
	assert.Equal(t, 0, manager.Pending())

	clock.Advance(time.Hour)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, store.ActiveCount())
}

func TestToastStore_AutoDismissAfterDefaultDuration(t *testing.T) {
	t.Parallel()

	store, clock, _ := newToastFixture(t)

	store.Add(ToastOptions{Title: "hello"}, false)

	clock.Advance(4 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, store.ActiveCount())

	clock.Advance(1100 * time.Millisecond)
	require.Eventually(t, func() bool {
		return store.ActiveCount() == 0
	}, time.Second, time.Millisecond)

	// Still listed until the renderer finishes the exit transition.
	items := store.Items()
	require.Len(t, items, 1)
	assert.True(t, items[0].Exiting)
}

func TestToastStore_ExplicitDurationOverridesDefault(t *testing.T) {
	t.Parallel()

	store, clock, _ := newToastFixture(t)

	store.Add(ToastOptions{Title: "quick", Duration: durationOf(time.Second)}, false)

	clock.Advance(1100 * time.Millisecond)
	require.Eventually(t, func() bool {
		return store.ActiveCount() == 0
	}, time.Second, time.Millisecond)
}

func TestToastStore_NonPositiveDurationDisablesAutoDismiss(t *testing.T) {
	t.Parallel()

	store, clock, manager := newToastFixture(t)

	store.Add(ToastOptions{Title: "sticky", Duration: durationOf(0)}, false)
	assert.Equal(t, 0, manager.Pending())

	clock.Advance(time.Hour)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, store.ActiveCount())
}

func TestToastStore_RemoveMarksExitingAndClearsTimer(t *testing.T) {
	t.Parallel()

	store, _, manager := newToastFixture(t)

	id := store.Add(ToastOptions{Title: "bye"}, false)
	require.Equal(t, 1, manager.Pending())

	store.Remove(id)

	assert.Equal(t, 0, store.ActiveCount())
	assert.Equal(t, 0, manager.Pending())

	// Removing again, or removing something unknown, is a no-op.
	store.Remove(id)
	store.Remove("never-existed")
	assert.Len(t, store.Items(), 1)
}

func TestToastStore_FinalizeRemovalDeletes(t *testing.T) {
	t.Parallel()

	store, _, _ := newToastFixture(t)

	store.Add(ToastOptions{ID: "x", Title: "bye"}, false)
	internal := store.Items()[0].InternalID

	store.Remove("x")
	store.FinalizeRemoval(internal)

	assert.Empty(t, store.Items())

	store.FinalizeRemoval(internal) // idempotent
	assert.Empty(t, store.Items())
}

func TestToastStore_ExitingToastIsNeverRevived(t *testing.T) {
	t.Parallel()

	store, _, _ := newToastFixture(t)

	store.Add(ToastOptions{ID: "x", Title: "first"}, false)
	store.Remove("x")
	store.Add(ToastOptions{ID: "x", Title: "second"}, false)

	items := store.Items()
	require.Len(t, items, 2)
	assert.True(t, items[0].Exiting)
	assert.Equal(t, "first", items[0].Title)
	assert.False(t, items[1].Exiting)
	assert.Equal(t, "second", items[1].Title)
}

func TestToastStore_UpdatePatchesVisibleToastOnly(t *testing.T) {
	t.Parallel()

	store, _, manager := newToastFixture(t)

	store.Add(ToastOptions{ID: "x", Title: "old"}, false)

	newTitle := "new"
	store.Update("x", ToastPatch{Title: &newTitle})

	active := activeToasts(store)
	require.Len(t, active, 1)
	assert.Equal(t, "new", active[0].Title)
	assert.Equal(t, 1, manager.Pending(), "update must not touch timers")

	store.Remove("x")
	ignored := "ignored"
	store.Update("x", ToastPatch{Title: &ignored})
	assert.Equal(t, "new", store.Items()[0].Title, "exiting toasts are immutable")
}
