package reactive

// Batch runs fn and defers every notification its writes cause until fn,
// and any enclosing Batch, returns. A listener touched by several writes is
// notified once.
//
//	reactive.Batch(func() {
//	    page.Set(1)
//	    filter.Set("open")
//	})
func Batch(fn func()) {
	tc := tracking()
	tc.batchDepth++
	defer func() {
		if tc.batchDepth--; tc.batchDepth == 0 {
			flushQueued(tc)
		}
	}()
	fn()
}

// notify marks listeners dirty now, or queues them inside a batch.
func notify(listeners []Listener) {
	tc := tracking()
	if tc.batchDepth > 0 {
		tc.pendingUpdates = append(tc.pendingUpdates, listeners...)
		return
	}
	for _, l := range listeners {
		l.MarkDirty()
	}
}

func flushQueued(tc *trackingContext) {
	queued := tc.pendingUpdates
	tc.pendingUpdates = nil

	done := make(map[uint64]struct{}, len(queued))
	for _, l := range queued {
		if _, ok := done[l.ID()]; ok {
			continue
		}
		done[l.ID()] = struct{}{}
		l.MarkDirty()
	}
}

// Untracked runs fn without subscribing anything to the signals it reads.
func Untracked(fn func()) {
	WithListener(nil, fn)
}
