// Package broadcast provides a small in-process fan-out bus used to push
// overlay state snapshots to renderers.
//
// Publishing never blocks: when a subscriber's buffer is full the value is
// dropped for that subscriber and it is detached. That is the right trade-off
// for UI state delivery, where every publish carries the full current state
// and a dropped intermediate snapshot is superseded by the next one anyway.
//
// # Usage
//
//	bus := broadcast.New[overlay.Snapshot](8)
//
//	sub := bus.Subscribe(ctx)
//	go func() {
//	    for snap := range sub.C() {
//	        render(snap)
//	    }
//	}()
//
//	bus.Publish(snapshot)
//
// Subscriptions are detached automatically when their context is cancelled.
package broadcast
