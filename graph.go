package loom

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Op identifies the kind of mutation behind a trigger. Carried on
// TriggerEvent and used by the key-selection rules.
type Op string

const (
	OpSet    Op = "set"
	OpAdd    Op = "add"
	OpDelete Op = "delete"
	OpClear  Op = "clear"
)

// targetKind classifies an observed target for the trigger rules.
// Fixed at wrap time; records and keyed collections invalidate iteration
// differently, and only lists have length semantics.
type targetKind uint8

const (
	kindRecord targetKind = iota
	kindList
	kindDict
	kindRef
)

// iterationToken is the reserved dependency-key type for "this target's key
// set was enumerated". A distinct type keeps tokens from ever colliding
// with user string keys.
type iterationToken string

const (
	// iterateKey invalidates whole-target enumeration (Keys/Len/Range on
	// records, Len/Values/Range on collections).
	iterateKey iterationToken = "iterate"

	// keysIterateKey invalidates key-only enumeration of keyed
	// collections, which value replacement does not disturb.
	keysIterateKey iterationToken = "keys"
)

// lengthKey is the dependency key for a list's length. Integer indices and
// this key make up a list's whole key space.
const lengthKey = "length"

// depGraph is the process-wide dependency store: target identity to per-key
// dependency sets. Entries appear on first track and leave when a target's
// wrappers are collected; empty inner sets are tolerated.
type depGraph struct {
	mu      sync.Mutex
	targets map[uintptr]*keyDeps
}

var graph = &depGraph{targets: make(map[uintptr]*keyDeps)}

// drop removes every dependency set of a target. Called from wrapper and
// ref finalizers once nothing can read through the identity again.
func (g *depGraph) drop(id uintptr) {
	g.mu.Lock()
	delete(g.targets, id)
	g.mu.Unlock()
}

// counters feed Stats and the instrument observers.
var counters struct {
	effectsCreated atomic.Uint64
	effectsStopped atomic.Uint64
	effectRuns     atomic.Uint64
	tracks         atomic.Uint64
	triggers       atomic.Uint64
}

// Stats is a point-in-time snapshot of engine activity.
type Stats struct {
	Targets        int    `json:"targets"`
	DependencySets int    `json:"dependency_sets"`
	EffectsCreated uint64 `json:"effects_created"`
	EffectsStopped uint64 `json:"effects_stopped"`
	EffectRuns     uint64 `json:"effect_runs"`
	Tracks         uint64 `json:"tracks"`
	Triggers       uint64 `json:"triggers"`
}

// CurrentStats returns a snapshot of engine counters and graph sizes.
func CurrentStats() Stats {
	graph.mu.Lock()
	targets := len(graph.targets)
	sets := 0
	for _, kd := range graph.targets {
		sets += len(kd.deps)
	}
	graph.mu.Unlock()

	return Stats{
		Targets:        targets,
		DependencySets: sets,
		EffectsCreated: counters.effectsCreated.Load(),
		EffectsStopped: counters.effectsStopped.Load(),
		EffectRuns:     counters.effectRuns.Load(),
		Tracks:         counters.tracks.Load(),
		Triggers:       counters.triggers.Load(),
	}
}

// track subscribes the active effect (if any, and if tracking is enabled on
// this goroutine) to (target, key). Re-tracking the same key during one run
// is idempotent; the effect's on-track hook fires only on new membership.
func track(id uintptr, owner any, key any) {
	ctx := getTrackingContext()
	if !ctx.trackingEnabled {
		return
	}
	n := len(ctx.effectStack)
	if n == 0 {
		return
	}
	e := ctx.effectStack[n-1]

	counters.tracks.Add(1)

	graph.mu.Lock()
	kd := graph.targets[id]
	if kd == nil {
		kd = newKeyDeps()
		graph.targets[id] = kd
	}
	d := kd.ensure(key)
	added := d.add(e)
	if added {
		e.deps = append(e.deps, d)
	}
	graph.mu.Unlock()

	if added && e.onTrack != nil {
		e.onTrack(TrackEvent{Effect: e, Target: owner, Key: key})
	}
}

// trigger notifies every effect subscribed to the mutated (target, key)
// according to the operation's key-selection rules. The run set is
// collected deduplicated in subscription order under the graph lock, then
// effects run (or are handed to their schedulers) after release.
func trigger(id uintptr, owner any, kind targetKind, op Op, key any, newValue, oldValue any) {
	counters.triggers.Add(1)
	if Debug.LogTriggers {
		slog.Default().Debug("loom: trigger", "op", string(op), "key", key)
	}

	active := activeEffect()

	graph.mu.Lock()
	kd := graph.targets[id]
	if kd == nil {
		graph.mu.Unlock()
		return
	}

	var run []*Effect
	seen := make(map[*Effect]struct{}, 4)
	collect := func(d *dep) {
		if d == nil {
			return
		}
		for _, e := range d.effects {
			if _, dup := seen[e]; dup {
				continue
			}
			// An effect never re-runs from its own writes unless it
			// explicitly opted into recursion.
			if e == active && !e.allowRecurse {
				continue
			}
			seen[e] = struct{}{}
			run = append(run, e)
		}
	}

	switch {
	case op == OpClear:
		for _, k := range kd.order {
			collect(kd.deps[k])
		}
	case kind == kindList && key == lengthKey:
		// Truncation invalidates the length itself and every index that
		// just fell out of range.
		newLen, _ := newValue.(int)
		for _, k := range kd.order {
			if k == lengthKey {
				collect(kd.deps[k])
			} else if idx, ok := k.(int); ok && idx >= newLen {
				collect(kd.deps[k])
			}
		}
	default:
		collect(kd.get(key))
		switch op {
		case OpAdd:
			if kind == kindList {
				if _, ok := key.(int); ok {
					collect(kd.get(lengthKey))
				}
			} else {
				collect(kd.get(iterateKey))
				if kind == kindDict {
					collect(kd.get(keysIterateKey))
				}
			}
		case OpDelete:
			if kind != kindList {
				collect(kd.get(iterateKey))
				if kind == kindDict {
					collect(kd.get(keysIterateKey))
				}
			}
		case OpSet:
			if kind == kindDict {
				collect(kd.get(iterateKey))
			}
		}
	}
	graph.mu.Unlock()

	emitTrigger(op, key, len(run))

	if len(run) == 0 {
		return
	}

	ctx := getTrackingContext()
	ctx.triggerDepth++
	defer func() { ctx.triggerDepth-- }()
	if TriggerDepthLimit > 0 && ctx.triggerDepth == TriggerDepthLimit {
		warn("trigger cascade reached depth limit, possible reactive cycle",
			"depth", ctx.triggerDepth, "op", string(op))
	}

	batching := ctx.batchDepth > 0
	for _, e := range run {
		if e.onTrigger != nil {
			e.onTrigger(TriggerEvent{
				Effect:   e,
				Target:   owner,
				Key:      key,
				Op:       op,
				NewValue: newValue,
				OldValue: oldValue,
			})
		}
		if e.scheduler != nil {
			e.scheduler(e)
			continue
		}
		if batching {
			ctx.pendingEffects = append(ctx.pendingEffects, e)
			continue
		}
		e.Run()
	}
}
