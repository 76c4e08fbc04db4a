// Package loom is a fine-grained, pull-free reactive dependency-tracking
// engine. Computations ("effects") automatically record which pieces of
// observed state they read, and exactly the affected effects re-run when
// that state later changes. Dependencies are never declared manually.
//
// # Observed values
//
// Reactive wraps a composite value in an observing facade. Three target
// kinds are supported: records (map[string]any), lists (*[]any, passed by
// pointer so identity survives growth), and keyed collections (map[any]any):
//
//	state := Reactive(map[string]any{"count": 0}).(*Map)
//	NewEffect(func() any {
//	    fmt.Println("count is", state.Get("count"))
//	    return nil
//	})
//	state.Set("count", 1) // effect re-runs
//
// Readonly, ShallowReactive, and ShallowReadonly produce the other wrapper
// variants. Wrapping the same target twice returns the same wrapper.
//
// # Refs and computeds
//
// NewRef boxes a single value; reads and writes go through Get/Set and
// participate in the same dependency graph:
//
//	count := NewRef(0)
//	total := NewComputed(func() any { return count.Get().(int) * 2 })
//	total.Get() // 0, recomputes only after count changes
//
// # Batching
//
// Multiple writes can be batched to coalesce re-runs:
//
//	Batch(func() {
//	    first.Set("Ada")
//	    last.Set("Lovelace")
//	}) // dependents run once after both updates
//
// # Thread safety
//
// Engine state is lock-protected and values may be read and written from
// multiple goroutines. The active-effect stack and tracking flag are
// per-goroutine, so dependency attribution never crosses goroutines; an
// effect body runs on the goroutine that triggered it.
package loom
