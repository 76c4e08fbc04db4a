package loom

// Batch runs fn with schedulerless effect re-runs deferred. While the
// batch is open, triggered effects queue instead of running; when the
// outermost batch exits, the queue drains with each effect running once
// in first-triggered order. Effects with schedulers, computeds included,
// are notified immediately so staleness is never deferred.
//
// Batches nest; only the outermost exit flushes.
func Batch(fn func()) {
	ctx := getTrackingContext()
	ctx.batchDepth++
	defer func() {
		ctx.batchDepth--
		if ctx.batchDepth == 0 {
			flushPending(ctx)
		}
	}()
	fn()
}

// flushPending drains the deferred queue, deduplicated by effect ID in
// first-queued order. Effects running here can trigger further effects;
// with no batch open those run synchronously, but a re-entrant Batch
// inside the flush can queue again, so drain until empty.
func flushPending(ctx *trackingContext) {
	for len(ctx.pendingEffects) > 0 {
		pending := ctx.pendingEffects
		ctx.pendingEffects = nil

		seen := make(map[uint64]struct{}, len(pending))
		for _, e := range pending {
			if _, dup := seen[e.id]; dup {
				continue
			}
			seen[e.id] = struct{}{}
			e.Run()
		}
	}
}
