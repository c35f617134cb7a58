package reactive

import "sync/atomic"

// Listener is notified when a signal it read during its last render changes.
type Listener interface {
	MarkDirty()
	// ID distinguishes listeners when notifications are deduplicated.
	ID() uint64
}

// Cleanup undoes an effect. It runs before the effect runs again and when the
// effect's owner is disposed.
type Cleanup func()

var ids atomic.Uint64

func nextID() uint64 {
	return ids.Add(1)
}
