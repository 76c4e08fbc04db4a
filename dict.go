package loom

import (
	"fmt"
	"reflect"
)

// Dict is the observed view of a keyed collection (a map[any]any). Keys
// are used as given; iteration order is not specified. Unlike record
// properties, dict values are never Ref-unwrapped on read.
type Dict struct {
	target  map[any]any
	id      uintptr
	variant variant

	// inner is set on a readonly facade layered over a mutable view.
	inner *Dict
}

// dictKeyable reports whether key can be stored in a Go map. Records,
// lists and dicts themselves cannot; their wrappers (being pointers) can.
func dictKeyable(key any) bool {
	if key == nil {
		return true
	}
	return reflect.TypeOf(key).Comparable()
}

// Get returns the value stored under key, or nil. The read subscribes to
// the key, and a composite value comes back wrapped in this view's mode.
func (d *Dict) Get(key any) any {
	if !dictKeyable(key) {
		warn("dict key type is not comparable", "type", fmt.Sprintf("%T", key))
		return nil
	}
	var res any
	if d.inner != nil {
		res = d.inner.Get(key)
	} else {
		if !d.variant.readonly() {
			track(d.id, d, key)
		}
		dataMu.RLock()
		res = d.target[key]
		dataMu.RUnlock()
	}
	if d.variant.shallow() {
		return res
	}
	return wrapNested(res, d.variant)
}

// Has reports whether key is present. The check subscribes to the key.
func (d *Dict) Has(key any) bool {
	if !dictKeyable(key) {
		warn("dict key type is not comparable", "type", fmt.Sprintf("%T", key))
		return false
	}
	if d.inner != nil {
		return d.inner.Has(key)
	}
	if !d.variant.readonly() {
		track(d.id, d, key)
	}
	dataMu.RLock()
	_, ok := d.target[key]
	dataMu.RUnlock()
	return ok
}

// Set stores value under key. An add notifies key, iteration and keys
// subscribers; replacing an existing key's value notifies the key and
// iteration subscribers.
func (d *Dict) Set(key, value any) {
	if d.variant.readonly() {
		warn("set on a readonly dict rejected")
		return
	}
	if !dictKeyable(key) {
		warn("dict key type is not comparable", "type", fmt.Sprintf("%T", key))
		return
	}
	if !d.variant.shallow() {
		value = Raw(value)
	}

	dataMu.Lock()
	old, had := d.target[key]
	if !d.variant.shallow() {
		old = Raw(old)
	}
	d.target[key] = value
	dataMu.Unlock()

	if !had {
		trigger(d.id, d, kindDict, OpAdd, key, value, nil)
	} else if !valueEquals(value, old) {
		trigger(d.id, d, kindDict, OpSet, key, value, old)
	}
}

// Delete removes key and reports whether it existed.
func (d *Dict) Delete(key any) bool {
	if d.variant.readonly() {
		warn("delete on a readonly dict rejected")
		return false
	}
	if !dictKeyable(key) {
		warn("dict key type is not comparable", "type", fmt.Sprintf("%T", key))
		return false
	}

	dataMu.Lock()
	old, had := d.target[key]
	if had {
		delete(d.target, key)
	}
	dataMu.Unlock()

	if had {
		trigger(d.id, d, kindDict, OpDelete, key, nil, old)
	}
	return had
}

// Clear removes every entry and notifies all subscribers of the dict.
func (d *Dict) Clear() {
	if d.variant.readonly() {
		warn("clear on a readonly dict rejected")
		return
	}

	dataMu.Lock()
	had := len(d.target) > 0
	clear(d.target)
	dataMu.Unlock()

	if had {
		trigger(d.id, d, kindDict, OpClear, nil, nil, nil)
	}
}

// Len returns the entry count. Subscribes to iteration.
func (d *Dict) Len() int {
	if d.inner != nil {
		return d.inner.Len()
	}
	if !d.variant.readonly() {
		track(d.id, d, iterateKey)
	}
	dataMu.RLock()
	n := len(d.target)
	dataMu.RUnlock()
	return n
}

// Keys returns the current keys in unspecified order. Subscribes to the
// key set only, so replacing an existing key's value does not re-run the
// effect.
func (d *Dict) Keys() []any {
	if d.inner != nil {
		return d.inner.Keys()
	}
	if !d.variant.readonly() {
		track(d.id, d, keysIterateKey)
	}
	dataMu.RLock()
	keys := make([]any, 0, len(d.target))
	for k := range d.target {
		keys = append(keys, k)
	}
	dataMu.RUnlock()
	return keys
}

// Values returns the current values in unspecified order, each passed
// through this view's read policy. Subscribes to iteration.
func (d *Dict) Values() []any {
	if d.inner != nil {
		vals := d.inner.Values()
		if !d.variant.shallow() {
			for i, v := range vals {
				vals[i] = wrapNested(v, d.variant)
			}
		}
		return vals
	}

	if !d.variant.readonly() {
		track(d.id, d, iterateKey)
	}
	dataMu.RLock()
	vals := make([]any, 0, len(d.target))
	for _, v := range d.target {
		vals = append(vals, v)
	}
	dataMu.RUnlock()
	if !d.variant.shallow() {
		for i, v := range vals {
			vals[i] = wrapNested(v, d.variant)
		}
	}
	return vals
}

// Range calls fn for each entry until fn returns false. Subscribes to
// iteration; entry order is not specified.
func (d *Dict) Range(fn func(key, value any) bool) {
	if d.inner != nil {
		d.inner.Range(func(k, v any) bool {
			if !d.variant.shallow() {
				v = wrapNested(v, d.variant)
			}
			return fn(k, v)
		})
		return
	}

	if !d.variant.readonly() {
		track(d.id, d, iterateKey)
	}
	type pair struct{ k, v any }
	dataMu.RLock()
	pairs := make([]pair, 0, len(d.target))
	for k, v := range d.target {
		pairs = append(pairs, pair{k, v})
	}
	dataMu.RUnlock()

	for _, p := range pairs {
		v := p.v
		if !d.variant.shallow() {
			v = wrapNested(v, d.variant)
		}
		if !fn(p.k, v) {
			return
		}
	}
}

func (d *Dict) String() string {
	dataMu.RLock()
	n := len(d.target)
	dataMu.RUnlock()
	return fmt.Sprintf("%s dict view (%d entries)", d.variant, n)
}
