package loom

import (
	"reflect"
	"runtime"
	"sync"
	"weak"
)

// identityOf returns the stable address used to key the dependency graph
// and the wrapper caches. Targets are maps or slice pointers, so the
// address is well defined for the lifetime of the object.
func identityOf(target any) uintptr {
	return reflect.ValueOf(target).Pointer()
}

// variant selects one of the four observation modes a target can be
// wrapped in. Each (target, variant) pair has at most one live wrapper.
type variant uint8

const (
	variantReactive variant = iota
	variantShallowReactive
	variantReadonly
	variantShallowReadonly
)

func (v variant) readonly() bool {
	return v == variantReadonly || v == variantShallowReadonly
}

func (v variant) shallow() bool {
	return v == variantShallowReactive || v == variantShallowReadonly
}

func (v variant) String() string {
	switch v {
	case variantReactive:
		return "reactive"
	case variantShallowReactive:
		return "shallowReactive"
	case variantReadonly:
		return "readonly"
	case variantShallowReadonly:
		return "shallowReadonly"
	}
	return "unknown"
}

// cacheSlots holds the wrappers for one target, one weak slot per variant.
type cacheSlots[W any] struct {
	ptrs [4]weak.Pointer[W]
}

// wrapperCache interns wrappers so that wrapping the same target in the
// same mode always yields the same wrapper. Entries hold the wrappers
// weakly; an unreferenced wrapper is collectable, and its cleanup removes
// the slot and, once all four slots are dead, the target's dependency
// sets as well. Live effects keep the wrappers they read reachable
// through their closures, so dropping the sets cannot strand an active
// subscriber.
type wrapperCache[W any] struct {
	mu      sync.Mutex
	entries map[uintptr]*cacheSlots[W]
}

func newWrapperCache[W any]() *wrapperCache[W] {
	return &wrapperCache[W]{entries: make(map[uintptr]*cacheSlots[W])}
}

// intern returns the cached wrapper for (id, v), building and caching one
// with build when none is alive. It reports whether build ran, so callers
// can fire creation hooks outside the cache lock.
func (c *wrapperCache[W]) intern(id uintptr, v variant, build func() *W) (*W, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	slots, ok := c.entries[id]
	if !ok {
		slots = &cacheSlots[W]{}
		c.entries[id] = slots
	}
	if w := slots.ptrs[v].Value(); w != nil {
		return w, false
	}

	w := build()
	slots.ptrs[v] = weak.Make(w)
	runtime.AddCleanup(w, func(id uintptr) {
		if c.prune(id, v) {
			graph.drop(id)
		}
	}, id)
	return w, true
}

// lookup returns the live wrapper for (id, v), or nil.
func (c *wrapperCache[W]) lookup(id uintptr, v variant) *W {
	c.mu.Lock()
	defer c.mu.Unlock()
	slots, ok := c.entries[id]
	if !ok {
		return nil
	}
	return slots.ptrs[v].Value()
}

// prune runs from a wrapper's cleanup. It clears the slot unless the slot
// was re-interned with a newer live wrapper in the meantime, and reports
// whether the whole entry is now dead.
func (c *wrapperCache[W]) prune(id uintptr, v variant) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	slots, ok := c.entries[id]
	if !ok {
		return false
	}
	if slots.ptrs[v].Value() != nil {
		return false
	}
	slots.ptrs[v] = weak.Pointer[W]{}

	for i := range slots.ptrs {
		if slots.ptrs[i].Value() != nil {
			return false
		}
	}
	delete(c.entries, id)
	return true
}

var (
	mapCache  = newWrapperCache[Map]()
	listCache = newWrapperCache[List]()
	dictCache = newWrapperCache[Dict]()
)

// rawPins records targets excluded from wrapping by MarkRaw. The pin holds
// the target strongly so its address can never be reused while the mark is
// in force.
var rawPins struct {
	mu  sync.Mutex
	ids map[uintptr]any
}

func pinRaw(id uintptr, target any) {
	rawPins.mu.Lock()
	if rawPins.ids == nil {
		rawPins.ids = make(map[uintptr]any)
	}
	rawPins.ids[id] = target
	rawPins.mu.Unlock()
}

func pinnedRaw(id uintptr) bool {
	rawPins.mu.Lock()
	_, ok := rawPins.ids[id]
	rawPins.mu.Unlock()
	return ok
}

// armCleanup drops a ref's dependency sets once the ref itself is
// unreachable. As with wrappers, any effect still reading the ref keeps it
// reachable, so the drop only ever discards sets nothing can re-subscribe
// through.
func armCleanup[T any](r *T, depID uintptr) {
	runtime.AddCleanup(r, func(id uintptr) {
		graph.drop(id)
	}, depID)
}
