package loom

import (
	"runtime"
	"sync"
)

// trackingContext holds the reactive state for a goroutine.
// Each goroutine has its own context so concurrent computations never
// corrupt each other's dependency attribution.
type trackingContext struct {
	// effectStack is the stack of currently-running effects.
	// The top entry is the active effect that reads subscribe to.
	effectStack []*Effect

	// trackingEnabled gates whether reads create dependencies.
	// Paused around code that must read state without subscribing.
	trackingEnabled bool

	// trackingStack saves previous trackingEnabled values so that
	// pause/enable regions can nest and restore correctly.
	trackingStack []bool

	// currentScope is the Scope that adopts newly created effects.
	currentScope *Scope

	// batchDepth tracks nested Batch() calls.
	// When > 0, schedulerless effects queue instead of running immediately.
	batchDepth int

	// pendingEffects accumulates effects to run when the outermost
	// batch completes. Deduplicated by ID before running.
	pendingEffects []*Effect

	// triggerDepth counts synchronous trigger nesting for the runaway
	// cascade warning.
	triggerDepth int
}

// trackingContexts maps goroutine ID to that goroutine's tracking state.
var trackingContexts sync.Map

// getGoroutineID extracts the current goroutine's ID from the runtime
// stack header. There is no public API for this; the first stack line
// is always "goroutine <id> [...]", which is stable enough to parse.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	// Digits start right after the "goroutine " prefix.
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		c := buf[i]
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}

// getTrackingContext returns the calling goroutine's tracking state,
// creating it on first use with tracking enabled.
func getTrackingContext() *trackingContext {
	gid := getGoroutineID()

	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}

	ctx := &trackingContext{trackingEnabled: true}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// activeEffect returns the effect currently tracking dependencies on this
// goroutine, or nil when no effect is running.
func activeEffect() *Effect {
	ctx := getTrackingContext()
	if n := len(ctx.effectStack); n > 0 {
		return ctx.effectStack[n-1]
	}
	return nil
}

// currentScope returns the scope that adopts new effects on this goroutine.
// Returns nil if no scope is active.
func currentScope() *Scope {
	return getTrackingContext().currentScope
}

// setCurrentScope sets the adopting scope for the goroutine.
// Returns the previous scope so it can be restored.
func setCurrentScope(s *Scope) *Scope {
	ctx := getTrackingContext()
	old := ctx.currentScope
	ctx.currentScope = s
	return old
}

// PauseTracking suspends dependency tracking on the current goroutine.
// Reads made until the matching ResetTracking create no subscriptions.
// Pause/enable regions nest; each call saves the previous state.
func PauseTracking() {
	ctx := getTrackingContext()
	ctx.trackingStack = append(ctx.trackingStack, ctx.trackingEnabled)
	ctx.trackingEnabled = false
}

// EnableTracking re-enables dependency tracking on the current goroutine,
// saving the previous state for the matching ResetTracking.
func EnableTracking() {
	ctx := getTrackingContext()
	ctx.trackingStack = append(ctx.trackingStack, ctx.trackingEnabled)
	ctx.trackingEnabled = true
}

// ResetTracking restores the tracking state saved by the most recent
// PauseTracking or EnableTracking. With nothing saved, tracking is enabled.
func ResetTracking() {
	ctx := getTrackingContext()
	if n := len(ctx.trackingStack); n > 0 {
		ctx.trackingEnabled = ctx.trackingStack[n-1]
		ctx.trackingStack = ctx.trackingStack[:n-1]
	} else {
		ctx.trackingEnabled = true
	}
}

// Untracked runs fn without tracking reads as dependencies.
// This is useful when an effect needs a value without subscribing to it.
//
// Example:
//
//	Untracked(func() {
//	    // Reading count here won't subscribe the current effect
//	    fmt.Println("current:", count.Get())
//	})
//
// Note: for single ref reads, Peek() is more direct.
func Untracked(fn func()) {
	PauseTracking()
	defer ResetTracking()
	fn()
}

// cleanupGoroutineContext removes the tracking context for the current
// goroutine. Worth calling from goroutines that touched reactive state and
// are about to exit; contexts are small and overwritten on reuse, so this
// is optional.
func cleanupGoroutineContext() {
	gid := getGoroutineID()
	trackingContexts.Delete(gid)
}
