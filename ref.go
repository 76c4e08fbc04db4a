package loom

import (
	"fmt"
	"reflect"
	"sync"
)

// refValueKey is the single dependency key every ref tracks and triggers
// under.
const refValueKey = "value"

// Ref is a boxed single value whose reads subscribe the running effect
// and whose writes notify subscribers. Implementations are provided by
// NewRef, NewShallowRef, NewCustomRef, ToRef and the computed
// constructors; the interface cannot be implemented outside this
// package.
type Ref interface {
	// Get returns the current value and subscribes the running effect.
	Get() any
	// Set replaces the value and notifies subscribers when it changed.
	Set(v any)
	// Peek returns the current value without subscribing.
	Peek() any

	base() *refBase
}

var (
	_ Ref = (*valueRef)(nil)
	_ Ref = (*customRef)(nil)
	_ Ref = (*propertyRef)(nil)
)

// refBase carries the identity every ref tracks and triggers under. It
// must be the first field of each implementation so the dependency key
// matches the ref's own address.
type refBase struct {
	id    uint64
	depID uintptr
}

func (b *refBase) init() {
	b.id = nextID()
	b.depID = reflect.ValueOf(b).Pointer()
}

func (b *refBase) base() *refBase { return b }

func (b *refBase) trackValue(owner any) {
	track(b.depID, owner, refValueKey)
}

func (b *refBase) triggerValue(owner, newValue, oldValue any) {
	trigger(b.depID, owner, kindRef, OpSet, refValueKey, newValue, oldValue)
}

// valueRef is the standard ref. Deep refs store the raw value next to
// its reactive form so writes can compare structurally; shallow refs
// store the value exactly as given.
type valueRef struct {
	refBase
	shallow bool

	mu      sync.Mutex
	raw     any
	wrapped any
}

// NewRef boxes v. Reading through Get subscribes; writing a
// structurally different value through Set notifies. A record, list or
// dict value is handed out in reactive form. Passing an existing Ref
// returns it unchanged, refs never nest.
func NewRef(v any) Ref {
	return newValueRef(v, false)
}

// NewShallowRef boxes v without making its contents reactive; only
// replacing the value itself notifies. Use TriggerRef after mutating the
// contents in place.
func NewShallowRef(v any) Ref {
	return newValueRef(v, true)
}

func newValueRef(v any, shallow bool) Ref {
	if r, ok := v.(Ref); ok {
		return r
	}
	r := &valueRef{shallow: shallow}
	r.init()
	if shallow {
		r.raw = v
		r.wrapped = v
	} else {
		r.raw = Raw(v)
		r.wrapped = toReactive(r.raw)
	}
	armCleanup(r, r.depID)
	return r
}

func (r *valueRef) Get() any {
	r.trackValue(r)
	r.mu.Lock()
	v := r.wrapped
	r.mu.Unlock()
	return v
}

func (r *valueRef) Set(v any) {
	nv := v
	if !r.shallow {
		nv = Raw(v)
	}

	r.mu.Lock()
	if valueEquals(nv, r.raw) {
		r.mu.Unlock()
		return
	}
	old := r.raw
	r.raw = nv
	if r.shallow {
		r.wrapped = nv
	} else {
		r.wrapped = toReactive(nv)
	}
	r.mu.Unlock()

	r.triggerValue(r, nv, old)
}

func (r *valueRef) Peek() any {
	r.mu.Lock()
	v := r.wrapped
	r.mu.Unlock()
	return v
}

// TriggerRef notifies r's subscribers without a value change, typically
// after mutating the contents of a shallow ref in place.
func TriggerRef(r Ref) {
	if r == nil {
		return
	}
	b := r.base()
	trigger(b.depID, r, kindRef, OpSet, refValueKey, r.Peek(), nil)
}

// customRef delegates its accessors to caller-supplied closures wired to
// the ref's own subscription hooks.
type customRef struct {
	refBase
	get func() any
	set func(v any)
}

// NewCustomRef builds a ref whose get and set come from factory. The
// factory receives the ref's track and trigger hooks and returns the
// accessor pair; calling track inside get and trigger inside set makes
// the custom ref participate in the graph like any other. The usual use
// is debouncing or validation around a plain value.
func NewCustomRef(factory func(track func(), trigger func()) (get func() any, set func(v any))) Ref {
	r := &customRef{}
	r.init()
	r.get, r.set = factory(
		func() { r.trackValue(r) },
		func() { trigger(r.depID, r, kindRef, OpSet, refValueKey, nil, nil) },
	)
	armCleanup(r, r.depID)
	return r
}

func (r *customRef) Get() any {
	if r.get == nil {
		return nil
	}
	return r.get()
}

func (r *customRef) Set(v any) {
	if r.set == nil {
		return
	}
	r.set(v)
}

// Peek runs the custom getter with dependency collection suspended.
func (r *customRef) Peek() any {
	if r.get == nil {
		return nil
	}
	PauseTracking()
	defer ResetTracking()
	return r.get()
}

// propertyRef binds one record property. Through a record view it reads
// and writes with full reactivity; over a plain map it is a plain
// accessor.
type propertyRef struct {
	refBase
	view *Map
	raw  map[string]any
	key  string
}

// ToRef returns a ref bound to host's key property. With a *Map host the
// ref subscribes on read and notifies on write like the view itself
// does. With a plain map[string]any host the ref carries no reactivity,
// except that a Ref already stored under the key is returned directly.
func ToRef(host any, key string) Ref {
	r := &propertyRef{key: key}
	switch h := host.(type) {
	case *Map:
		r.view = h
	case map[string]any:
		if existing, ok := h[key].(Ref); ok {
			return existing
		}
		r.raw = h
	default:
		warn("ref host must be a record or a record view", "type", fmt.Sprintf("%T", host))
	}
	r.init()
	armCleanup(r, r.depID)
	return r
}

func (r *propertyRef) Get() any {
	if r.view != nil {
		return r.view.Get(r.key)
	}
	if r.raw != nil {
		dataMu.RLock()
		v := r.raw[r.key]
		dataMu.RUnlock()
		return v
	}
	return nil
}

func (r *propertyRef) Set(v any) {
	if r.view != nil {
		r.view.Set(r.key, v)
		return
	}
	if r.raw != nil {
		dataMu.Lock()
		r.raw[r.key] = v
		dataMu.Unlock()
	}
}

func (r *propertyRef) Peek() any {
	var v any
	if r.view != nil {
		dataMu.RLock()
		v = r.view.target[r.key]
		dataMu.RUnlock()
	} else if r.raw != nil {
		dataMu.RLock()
		v = r.raw[r.key]
		dataMu.RUnlock()
	}
	if nested, ok := v.(Ref); ok {
		return nested.Peek()
	}
	return v
}

// ToRefs converts each current property of src into a bound ref.
// Properties added later get no ref. A plain map[string]any src works
// but produces non-reactive refs, with a DevMode warning.
func ToRefs(src any) map[string]Ref {
	switch h := src.(type) {
	case *Map:
		keys := h.Keys()
		out := make(map[string]Ref, len(keys))
		for _, k := range keys {
			out[k] = ToRef(h, k)
		}
		return out
	case map[string]any:
		warn("converting a plain record produces non-reactive refs")
		out := make(map[string]Ref, len(h))
		for k := range h {
			out[k] = ToRef(h, k)
		}
		return out
	default:
		warn("only records and record views convert to refs", "type", fmt.Sprintf("%T", src))
		return nil
	}
}

// IsRef reports whether v is a Ref.
func IsRef(v any) bool {
	_, ok := v.(Ref)
	return ok
}

// Unref returns v's boxed value when v is a Ref (subscribing like any
// read) and v itself otherwise.
func Unref(v any) any {
	if r, ok := v.(Ref); ok {
		return r.Get()
	}
	return v
}

// RefView is a record facade whose reads unwrap Ref properties and whose
// writes assign through them. The view itself subscribes to nothing; the
// refs it exposes keep their own subscriptions.
type RefView struct {
	target map[string]any
}

// ProxyRefs returns a ref-unwrapping view of target. A *Map passes
// through unchanged because its traps already unwrap; a plain
// map[string]any gets a *RefView facade. Anything else is returned
// unchanged.
func ProxyRefs(target any) any {
	switch t := target.(type) {
	case *Map:
		return t
	case map[string]any:
		return &RefView{target: t}
	}
	return target
}

// Get returns the value under key, unwrapping a stored Ref. The ref read
// subscribes as usual; the view adds no subscription of its own.
func (v *RefView) Get(key string) any {
	dataMu.RLock()
	val := v.target[key]
	dataMu.RUnlock()
	return Unref(val)
}

// Set stores value under key. When the slot holds a Ref and value is not
// one, the write routes through the ref's setter and notifies its
// subscribers; otherwise it is a plain write.
func (v *RefView) Set(key string, value any) {
	dataMu.Lock()
	old := v.target[key]
	if r, ok := old.(Ref); ok {
		if _, newIsRef := value.(Ref); !newIsRef {
			dataMu.Unlock()
			r.Set(value)
			return
		}
	}
	v.target[key] = value
	dataMu.Unlock()
}

// Has reports whether key is present, without subscribing.
func (v *RefView) Has(key string) bool {
	dataMu.RLock()
	_, ok := v.target[key]
	dataMu.RUnlock()
	return ok
}
