package reactive

import (
	"runtime"
	"sync"
)

// trackingContext holds the reactive state for one goroutine.
type trackingContext struct {
	// currentOwner owns hooks and effects created right now.
	currentOwner *Owner

	// currentListener is subscribed to signals read right now.
	// nil means reads don't create subscriptions.
	currentListener Listener

	// batchDepth tracks nested Batch() calls.
	batchDepth int

	// pendingUpdates accumulates listeners to notify when a batch completes.
	pendingUpdates []Listener

	// renderDepth is > 0 while a component render function is executing.
	renderDepth int
}

// trackingContexts stores per-goroutine tracking contexts.
var trackingContexts sync.Map

// goroutineID extracts the current goroutine id from the runtime stack header
// ("goroutine <id> [running]:").
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// tracking returns the tracking context for the current goroutine,
// creating it on first use.
func tracking() *trackingContext {
	gid := goroutineID()
	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}
	ctx := &trackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

func getCurrentListener() Listener {
	return tracking().currentListener
}

func setCurrentListener(l Listener) Listener {
	ctx := tracking()
	old := ctx.currentListener
	ctx.currentListener = l
	return old
}

func getCurrentOwner() *Owner {
	return tracking().currentOwner
}

func setCurrentOwner(o *Owner) *Owner {
	ctx := tracking()
	old := ctx.currentOwner
	ctx.currentOwner = o
	return old
}

func beginRender() {
	tracking().renderDepth++
}

func endRender() {
	ctx := tracking()
	if ctx.renderDepth > 0 {
		ctx.renderDepth--
	}
}

// InRender reports whether a component render function is executing on the
// current goroutine.
func InRender() bool {
	return tracking().renderDepth > 0
}

// CurrentOwner returns the owner that hooks called right now would attach to,
// or nil outside of a component render.
func CurrentOwner() *Owner {
	return getCurrentOwner()
}

// WithOwner runs fn with owner as the current owner.
func WithOwner(owner *Owner, fn func()) {
	old := setCurrentOwner(owner)
	defer setCurrentOwner(old)
	fn()
}

// WithListener runs fn with l tracking signal reads.
func WithListener(l Listener, fn func()) {
	old := setCurrentListener(l)
	defer setCurrentListener(old)
	fn()
}

// ReleaseGoroutine drops the tracking context of the current goroutine.
// Long-lived servers call it when a session goroutine exits.
func ReleaseGoroutine() {
	trackingContexts.Delete(goroutineID())
}
