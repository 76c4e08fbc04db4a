package loom

import (
	"fmt"
	"sort"
)

// Map is the observed view of a record (a map[string]any). All access to
// the record goes through the view; mutating the underlying map directly
// bypasses subscribers.
type Map struct {
	target  map[string]any
	id      uintptr
	variant variant

	// inner is set on a readonly facade layered over a mutable view.
	// Reads delegate to it so they still subscribe.
	inner *Map
}

// Get returns the value stored under key, or nil. The read subscribes
// the running effect to the key. A stored Ref comes back unwrapped (its
// getter runs, so the ref is subscribed too) and a stored record, list
// or dict comes back wrapped in this view's mode. Shallow views return
// the stored value untouched.
func (m *Map) Get(key string) any {
	var res any
	if m.inner != nil {
		res = m.inner.Get(key)
	} else {
		if !m.variant.readonly() {
			track(m.id, m, key)
		}
		dataMu.RLock()
		res = m.target[key]
		dataMu.RUnlock()
	}
	if m.variant.shallow() {
		return res
	}
	if r, ok := res.(Ref); ok {
		return r.Get()
	}
	return wrapNested(res, m.variant)
}

// Set stores value under key and notifies subscribers: an add when the
// key was absent, a set when its value changed structurally. In deep
// mode incoming wrappers are stored raw, and writing a plain value over
// a stored Ref assigns through the ref instead of replacing it.
func (m *Map) Set(key string, value any) {
	if m.variant.readonly() {
		warn("set on a readonly record rejected", "key", key)
		return
	}

	dataMu.Lock()
	old, had := m.target[key]
	if !m.variant.shallow() {
		value = Raw(value)
		old = Raw(old)
		if r, ok := old.(Ref); ok {
			if _, newIsRef := value.(Ref); !newIsRef {
				dataMu.Unlock()
				r.Set(value)
				return
			}
		}
	}
	m.target[key] = value
	dataMu.Unlock()

	if !had {
		trigger(m.id, m, kindRecord, OpAdd, key, value, nil)
	} else if !valueEquals(value, old) {
		trigger(m.id, m, kindRecord, OpSet, key, value, old)
	}
}

// Delete removes key and reports whether it existed. Subscribers of the
// key and of iteration are notified only when something was removed.
func (m *Map) Delete(key string) bool {
	if m.variant.readonly() {
		warn("delete on a readonly record rejected", "key", key)
		return false
	}

	dataMu.Lock()
	old, had := m.target[key]
	if had {
		delete(m.target, key)
	}
	dataMu.Unlock()

	if had {
		trigger(m.id, m, kindRecord, OpDelete, key, nil, old)
	}
	return had
}

// Has reports whether key is present. The check subscribes to the key.
func (m *Map) Has(key string) bool {
	if m.inner != nil {
		return m.inner.Has(key)
	}
	if !m.variant.readonly() {
		track(m.id, m, key)
	}
	dataMu.RLock()
	_, ok := m.target[key]
	dataMu.RUnlock()
	return ok
}

// Keys returns the current keys in sorted order. Subscribes to
// iteration, so adds and deletes re-run the effect.
func (m *Map) Keys() []string {
	if m.inner != nil {
		return m.inner.Keys()
	}
	if !m.variant.readonly() {
		track(m.id, m, iterateKey)
	}
	dataMu.RLock()
	keys := make([]string, 0, len(m.target))
	for k := range m.target {
		keys = append(keys, k)
	}
	dataMu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys. Subscribes to iteration.
func (m *Map) Len() int {
	if m.inner != nil {
		return m.inner.Len()
	}
	if !m.variant.readonly() {
		track(m.id, m, iterateKey)
	}
	dataMu.RLock()
	n := len(m.target)
	dataMu.RUnlock()
	return n
}

// Range calls fn for each property in sorted key order until fn returns
// false. Subscribes like Keys plus a read of every visited property.
func (m *Map) Range(fn func(key string, value any) bool) {
	for _, k := range m.Keys() {
		if !fn(k, m.Get(k)) {
			return
		}
	}
}

func (m *Map) String() string {
	dataMu.RLock()
	n := len(m.target)
	dataMu.RUnlock()
	return fmt.Sprintf("%s record view (%d keys)", m.variant, n)
}
