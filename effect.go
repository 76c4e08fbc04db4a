package loom

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Effect is a re-runnable computation that automatically subscribes to
// every reactive value it reads during its most recent run. When any of
// those values later changes, the effect re-runs (or is handed to its
// scheduler). Dependencies are recollected from scratch on each run, so
// reads from earlier runs that no longer happen are dropped.
//
// Effects run immediately when created unless the Lazy option is given.
type Effect struct {
	id uint64

	// fn is the tracked computation.
	fn func() any

	// active is cleared by Stop. A stopped effect never re-subscribes.
	active atomic.Bool

	// deps are the dependency sets this effect currently belongs to,
	// kept for O(deps) cleanup. Guarded by the graph mutex.
	deps []*dep

	// lazy suppresses the initial run at creation time.
	lazy bool

	// scheduler, when set, receives the effect instead of an immediate
	// synchronous re-run. Derived values use this to flip a dirty flag.
	scheduler Scheduler

	// allowRecurse lets the effect's own writes re-trigger it.
	allowRecurse bool

	// Debug hooks.
	onTrack   func(TrackEvent)
	onTrigger func(TriggerEvent)
	onStop    func()
}

// Scheduler decides if and when a triggered effect runs. The default
// (no scheduler) is immediate synchronous execution.
type Scheduler func(*Effect)

// TrackEvent describes one new dependency subscription, for the OnTrack
// debug hook.
type TrackEvent struct {
	Effect *Effect
	Target any
	Key    any
}

// TriggerEvent describes one pending re-run, for the OnTrigger debug hook.
type TriggerEvent struct {
	Effect   *Effect
	Target   any
	Key      any
	Op       Op
	NewValue any
	OldValue any
}

// NewEffect creates an effect around fn and, unless Lazy is given, runs it
// once immediately. The effect registers with the current Scope when one is
// active on this goroutine.
func NewEffect(fn func() any, opts ...EffectOption) *Effect {
	e := &Effect{id: nextID(), fn: fn}
	e.active.Store(true)
	for _, opt := range opts {
		opt.applyEffect(e)
	}

	if s := currentScope(); s != nil {
		s.addEffect(e)
	}

	counters.effectsCreated.Add(1)
	emitEffectCreated(e)

	if !e.lazy {
		e.Run()
	}
	return e
}

// ID returns the unique identifier for this effect.
func (e *Effect) ID() uint64 {
	return e.id
}

// Active reports whether the effect has not been stopped.
func (e *Effect) Active() bool {
	return e.active.Load()
}

// Run executes the computation with dependency tracking and returns its
// result. Stopped effects are a no-op returning nil, unless a scheduler is
// configured, in which case the computation runs as a plain call (reads
// attribute to whatever effect encloses the caller). A directly
// self-recursive run returns nil rather than re-entering.
func (e *Effect) Run() any {
	if !e.active.Load() {
		if e.scheduler == nil {
			return nil
		}
		return e.fn()
	}

	ctx := getTrackingContext()
	for _, running := range ctx.effectStack {
		if running == e {
			return nil
		}
	}

	// Dependencies become exactly those observed on this run.
	e.clearDeps()

	counters.effectRuns.Add(1)
	var started time.Time
	if Events.Active() || Debug.LogEffectRuns {
		started = time.Now()
	}

	EnableTracking()
	ctx.effectStack = append(ctx.effectStack, e)
	defer func() {
		ctx.effectStack = ctx.effectStack[:len(ctx.effectStack)-1]
		ResetTracking()
		if !started.IsZero() {
			elapsed := time.Since(started)
			if Debug.LogEffectRuns {
				slog.Default().Debug("loom: effect run", "id", e.id, "duration", elapsed)
			}
			emitEffectRun(e, elapsed)
		}
	}()

	return e.fn()
}

// Stop removes the effect from every dependency set and fires the OnStop
// hook once. Idempotent; subsequent mutations of previously-tracked state
// never reach a stopped effect.
func (e *Effect) Stop() {
	if !e.active.CompareAndSwap(true, false) {
		return
	}

	e.clearDeps()

	if e.onStop != nil {
		e.onStop()
	}

	counters.effectsStopped.Add(1)
	emitEffectStopped(e)
}

// clearDeps removes the effect from all dependency sets it belongs to.
func (e *Effect) clearDeps() {
	graph.mu.Lock()
	for _, d := range e.deps {
		d.remove(e)
	}
	e.deps = e.deps[:0]
	graph.mu.Unlock()
}

// EffectOption configures an Effect at creation time.
type EffectOption interface {
	isEffectOption()
	applyEffect(e *Effect)
}

// effectOptionFunc adapts a function to the EffectOption interface.
type effectOptionFunc func(e *Effect)

func (f effectOptionFunc) isEffectOption()       {}
func (f effectOptionFunc) applyEffect(e *Effect) { f(e) }

// Lazy suppresses the immediate run at creation. The first run happens when
// the caller invokes Run (or a trigger does).
func Lazy() EffectOption {
	return effectOptionFunc(func(e *Effect) {
		e.lazy = true
	})
}

// WithScheduler installs a scheduler that receives the effect on trigger
// instead of an immediate synchronous re-run.
func WithScheduler(s Scheduler) EffectOption {
	return effectOptionFunc(func(e *Effect) {
		e.scheduler = s
	})
}

// AllowRecurse lets the effect's own writes re-trigger it. Without this,
// an effect mutating state it also reads would be excluded from its own
// trigger's run set.
func AllowRecurse() EffectOption {
	return effectOptionFunc(func(e *Effect) {
		e.allowRecurse = true
	})
}

// OnTrack installs a debug hook fired once per new dependency subscription.
func OnTrack(fn func(TrackEvent)) EffectOption {
	return effectOptionFunc(func(e *Effect) {
		e.onTrack = fn
	})
}

// OnTrigger installs a debug hook fired once per pending re-run, before the
// effect runs or is scheduled.
func OnTrigger(fn func(TriggerEvent)) EffectOption {
	return effectOptionFunc(func(e *Effect) {
		e.onTrigger = fn
	})
}

// OnStop installs a hook fired exactly once when the effect is stopped.
func OnStop(fn func()) EffectOption {
	return effectOptionFunc(func(e *Effect) {
		e.onStop = fn
	})
}
