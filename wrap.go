package loom

import (
	"fmt"
	"sync"
)

// dataMu serializes access to the raw targets behind all wrappers. The
// dependency graph has its own lock; the two are never held together, so
// a read can subscribe and fetch without lock nesting.
var dataMu sync.RWMutex

// Reactive returns the deep mutable view of target. Reads through the
// view subscribe the running effect, writes notify subscribers, and
// nested records, lists and dicts are wrapped lazily on first read.
// Non-observable values are returned unchanged.
//
// Wrapping the same target twice yields the same view.
func Reactive(target any) any {
	return wrapAs(target, variantReactive)
}

// ShallowReactive is Reactive for the top level only. Property reads
// return stored values as-is with no nested wrapping and no Ref
// unwrapping.
func ShallowReactive(target any) any {
	return wrapAs(target, variantShallowReactive)
}

// Readonly returns the deep read-only view of target. Reads do not
// subscribe and writes are rejected with a DevMode warning. Applying
// Readonly to a reactive view layers a read-only facade over it; reads
// through the facade still subscribe via the inner view.
func Readonly(target any) any {
	return wrapAs(target, variantReadonly)
}

// ShallowReadonly is Readonly for the top level only.
func ShallowReadonly(target any) any {
	return wrapAs(target, variantShallowReadonly)
}

func wrapAs(target any, v variant) any {
	switch t := target.(type) {
	case nil:
		warn("cannot observe nil")
		return nil
	case *Map:
		return rewrapMap(t, v)
	case *List:
		return rewrapList(t, v)
	case *Dict:
		return rewrapDict(t, v)
	case map[string]any:
		if t == nil {
			warn("cannot observe a nil record")
			return target
		}
		id := identityOf(t)
		if pinnedRaw(id) {
			return target
		}
		w, created := mapCache.intern(id, v, func() *Map {
			return &Map{target: t, id: id, variant: v}
		})
		if created {
			emitWrapperCreated(kindRecord, v)
		}
		return w
	case *[]any:
		if t == nil {
			warn("cannot observe a nil list")
			return target
		}
		id := identityOf(t)
		if pinnedRaw(id) {
			return target
		}
		w, created := listCache.intern(id, v, func() *List {
			return &List{target: t, id: id, variant: v}
		})
		if created {
			emitWrapperCreated(kindList, v)
		}
		return w
	case []any:
		// A slice header has no stable identity. Callers pass *[]any so
		// the same list always resolves to the same wrapper.
		warn("lists must be observed through a *[]any pointer")
		return target
	case map[any]any:
		if t == nil {
			warn("cannot observe a nil dict")
			return target
		}
		id := identityOf(t)
		if pinnedRaw(id) {
			return target
		}
		w, created := dictCache.intern(id, v, func() *Dict {
			return &Dict{target: t, id: id, variant: v}
		})
		if created {
			emitWrapperCreated(kindDict, v)
		}
		return w
	default:
		warn("value cannot be observed", "type", fmt.Sprintf("%T", target))
		return target
	}
}

// rewrapMap resolves wrapping an existing wrapper. The only combination
// that produces a new wrapper is a readonly view over a mutable one;
// everything else returns the wrapper it was given.
func rewrapMap(w *Map, v variant) any {
	if !v.readonly() || w.variant.readonly() {
		return w
	}
	cid := identityOf(w)
	chained, created := mapCache.intern(cid, v, func() *Map {
		return &Map{target: w.target, id: w.id, variant: v, inner: w}
	})
	if created {
		emitWrapperCreated(kindRecord, v)
	}
	return chained
}

func rewrapList(w *List, v variant) any {
	if !v.readonly() || w.variant.readonly() {
		return w
	}
	cid := identityOf(w)
	chained, created := listCache.intern(cid, v, func() *List {
		return &List{target: w.target, id: w.id, variant: v, inner: w}
	})
	if created {
		emitWrapperCreated(kindList, v)
	}
	return chained
}

func rewrapDict(w *Dict, v variant) any {
	if !v.readonly() || w.variant.readonly() {
		return w
	}
	cid := identityOf(w)
	chained, created := dictCache.intern(cid, v, func() *Dict {
		return &Dict{target: w.target, id: w.id, variant: v, inner: w}
	})
	if created {
		emitWrapperCreated(kindDict, v)
	}
	return chained
}

// IsReactive reports whether v is a mutable observed view, including a
// readonly facade layered over one.
func IsReactive(v any) bool {
	switch w := v.(type) {
	case *Map:
		return !w.variant.readonly() || w.inner != nil
	case *List:
		return !w.variant.readonly() || w.inner != nil
	case *Dict:
		return !w.variant.readonly() || w.inner != nil
	}
	return false
}

// IsReadonly reports whether v is a read-only observed view.
func IsReadonly(v any) bool {
	switch w := v.(type) {
	case *Map:
		return w.variant.readonly()
	case *List:
		return w.variant.readonly()
	case *Dict:
		return w.variant.readonly()
	}
	return false
}

// IsWrapper reports whether v is any observed view.
func IsWrapper(v any) bool {
	switch v.(type) {
	case *Map, *List, *Dict:
		return true
	}
	return false
}

// Raw returns the plain target behind an observed view, or v itself when
// it is not a view. Mutations made through the raw target are invisible
// to subscribers.
func Raw(v any) any {
	switch w := v.(type) {
	case *Map:
		return w.target
	case *List:
		return w.target
	case *Dict:
		return w.target
	}
	return v
}

// MarkRaw permanently excludes target from observation; wrapping it later
// returns it unchanged. The mark pins the target for the life of the
// process so its identity can never be recycled. Returns target.
func MarkRaw(target any) any {
	switch t := target.(type) {
	case map[string]any:
		if t != nil {
			pinRaw(identityOf(t), t)
		}
	case *[]any:
		if t != nil {
			pinRaw(identityOf(t), t)
		}
	case map[any]any:
		if t != nil {
			pinRaw(identityOf(t), t)
		}
	default:
		warn("only records, lists and dicts can be marked raw", "type", fmt.Sprintf("%T", target))
	}
	return target
}

// isComposite reports whether v is a plain value the engine knows how to
// observe.
func isComposite(v any) bool {
	switch v.(type) {
	case map[string]any, *[]any, map[any]any:
		return true
	}
	return false
}

// toReactive wraps observable values and passes everything else through.
func toReactive(v any) any {
	if isComposite(v) {
		return Reactive(v)
	}
	return v
}

// wrapNested applies a wrapper's deep policy to one of its read results.
// Shallow wrappers return stored values untouched; deep wrappers extend
// their own mode onto observable children.
func wrapNested(v any, vr variant) any {
	if vr.shallow() {
		return v
	}
	if !isComposite(v) && !IsWrapper(v) {
		return v
	}
	if vr.readonly() {
		return Readonly(v)
	}
	return Reactive(v)
}
