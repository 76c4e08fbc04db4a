package loom

import "fmt"

// List is the observed view of a list (a *[]any). The pointer is the
// list's identity, stable across growth; the slice behind it must only
// be mutated through the view while effects depend on it.
type List struct {
	target  *[]any
	id      uintptr
	variant variant

	// inner is set on a readonly facade layered over a mutable view.
	inner *List
}

// At returns the element at index i, or nil when out of range. The read
// subscribes to the index. Unlike record properties, element Refs are
// returned intact, never unwrapped.
func (l *List) At(i int) any {
	var res any
	if l.inner != nil {
		res = l.inner.At(i)
	} else {
		if !l.variant.readonly() {
			track(l.id, l, i)
		}
		dataMu.RLock()
		if s := *l.target; i >= 0 && i < len(s) {
			res = s[i]
		}
		dataMu.RUnlock()
	}
	if l.variant.shallow() {
		return res
	}
	return wrapNested(res, l.variant)
}

// Len returns the element count. Subscribes to the length.
func (l *List) Len() int {
	if l.inner != nil {
		return l.inner.Len()
	}
	if !l.variant.readonly() {
		track(l.id, l, lengthKey)
	}
	return l.rawLen()
}

func (l *List) rawLen() int {
	dataMu.RLock()
	n := len(*l.target)
	dataMu.RUnlock()
	return n
}

// SetAt writes the element at index i. Writing one past the end appends;
// writing further past the end pads the gap with nils first. Negative
// indices are rejected with a DevMode warning. Refs stored in lists are
// replaced, not written through.
func (l *List) SetAt(i int, v any) {
	if l.variant.readonly() {
		warn("set on a readonly list rejected", "index", i)
		return
	}
	if i < 0 {
		warn("negative list index rejected", "index", i)
		return
	}
	if !l.variant.shallow() {
		v = Raw(v)
	}

	dataMu.Lock()
	s := *l.target
	if i < len(s) {
		old := s[i]
		s[i] = v
		dataMu.Unlock()
		if !valueEquals(v, old) {
			trigger(l.id, l, kindList, OpSet, i, v, old)
		}
		return
	}
	for len(s) < i {
		s = append(s, nil)
	}
	*l.target = append(s, v)
	dataMu.Unlock()

	trigger(l.id, l, kindList, OpAdd, i, v, nil)
}

// SetLen resizes the list. Growing pads with nils; shrinking drops the
// tail and notifies subscribers of the length and of every index that
// fell out of range.
func (l *List) SetLen(n int) {
	if l.variant.readonly() {
		warn("set on a readonly list rejected", "key", lengthKey)
		return
	}
	if n < 0 {
		warn("negative list length rejected", "length", n)
		return
	}

	dataMu.Lock()
	s := *l.target
	old := len(s)
	switch {
	case n < old:
		for i := n; i < old; i++ {
			s[i] = nil
		}
		*l.target = s[:n]
	case n > old:
		for len(s) < n {
			s = append(s, nil)
		}
		*l.target = s
	}
	dataMu.Unlock()

	if n != old {
		trigger(l.id, l, kindList, OpSet, lengthKey, n, old)
	}
}

// Append adds items at the end and returns the new length. Dependency
// collection is suspended for the duration so an effect can append to a
// list it also reads without subscribing to its own writes.
func (l *List) Append(items ...any) int {
	if l.variant.readonly() {
		warn("append on a readonly list rejected")
		return l.rawLen()
	}
	PauseTracking()
	defer ResetTracking()

	if !l.variant.shallow() {
		for i := range items {
			items[i] = Raw(items[i])
		}
	}

	dataMu.Lock()
	s := *l.target
	start := len(s)
	*l.target = append(s, items...)
	n := len(*l.target)
	dataMu.Unlock()

	for i, v := range items {
		trigger(l.id, l, kindList, OpAdd, start+i, v, nil)
	}
	return n
}

// Pop removes and returns the last element. The second result is false
// on an empty list.
func (l *List) Pop() (any, bool) {
	if l.variant.readonly() {
		warn("pop on a readonly list rejected")
		return nil, false
	}
	PauseTracking()
	defer ResetTracking()

	dataMu.Lock()
	s := *l.target
	n := len(s)
	if n == 0 {
		dataMu.Unlock()
		return nil, false
	}
	v := s[n-1]
	s[n-1] = nil
	*l.target = s[:n-1]
	dataMu.Unlock()

	trigger(l.id, l, kindList, OpDelete, n-1, nil, v)
	trigger(l.id, l, kindList, OpSet, lengthKey, n-1, n)

	if l.variant.shallow() {
		return v, true
	}
	return wrapNested(v, l.variant), true
}

// Shift removes and returns the first element. Every surviving element
// moves down one index, and subscribers of each changed index are
// notified the same way per-index writes would have.
func (l *List) Shift() (any, bool) {
	if l.variant.readonly() {
		warn("shift on a readonly list rejected")
		return nil, false
	}
	PauseTracking()
	defer ResetTracking()

	type move struct {
		idx    int
		nv, ov any
	}

	dataMu.Lock()
	s := *l.target
	n := len(s)
	if n == 0 {
		dataMu.Unlock()
		return nil, false
	}
	first := s[0]
	last := s[n-1]
	var moves []move
	for i := 0; i < n-1; i++ {
		if !valueEquals(s[i+1], s[i]) {
			moves = append(moves, move{idx: i, nv: s[i+1], ov: s[i]})
		}
		s[i] = s[i+1]
	}
	s[n-1] = nil
	*l.target = s[:n-1]
	dataMu.Unlock()

	for _, mv := range moves {
		trigger(l.id, l, kindList, OpSet, mv.idx, mv.nv, mv.ov)
	}
	trigger(l.id, l, kindList, OpDelete, n-1, nil, last)
	trigger(l.id, l, kindList, OpSet, lengthKey, n-1, n)

	if l.variant.shallow() {
		return first, true
	}
	return wrapNested(first, l.variant), true
}

// Prepend inserts items at the front and returns the new length.
func (l *List) Prepend(items ...any) int {
	if l.variant.readonly() {
		warn("prepend on a readonly list rejected")
		return l.rawLen()
	}
	PauseTracking()
	defer ResetTracking()

	if !l.variant.shallow() {
		for i := range items {
			items[i] = Raw(items[i])
		}
	}

	dataMu.Lock()
	s := *l.target
	oldLen := len(s)
	olds := make([]any, oldLen)
	copy(olds, s)
	ns := make([]any, 0, oldLen+len(items))
	ns = append(ns, items...)
	ns = append(ns, olds...)
	*l.target = ns
	n := len(ns)
	dataMu.Unlock()

	for i := 0; i < n; i++ {
		if i < oldLen {
			if !valueEquals(ns[i], olds[i]) {
				trigger(l.id, l, kindList, OpSet, i, ns[i], olds[i])
			}
		} else {
			trigger(l.id, l, kindList, OpAdd, i, ns[i], nil)
		}
	}
	return n
}

// Splice removes del elements starting at start, inserts items in their
// place, and returns the removed elements. Negative start counts from
// the end; start and del are clamped to the list's bounds. Subscribers
// are notified per changed index, plus the length when the list shrank.
func (l *List) Splice(start, del int, items ...any) []any {
	if l.variant.readonly() {
		warn("splice on a readonly list rejected")
		return nil
	}
	PauseTracking()
	defer ResetTracking()

	if !l.variant.shallow() {
		for i := range items {
			items[i] = Raw(items[i])
		}
	}

	dataMu.Lock()
	s := *l.target
	oldLen := len(s)
	if start < 0 {
		start += oldLen
		if start < 0 {
			start = 0
		}
	}
	if start > oldLen {
		start = oldLen
	}
	if del < 0 {
		del = 0
	}
	if del > oldLen-start {
		del = oldLen - start
	}

	olds := make([]any, oldLen)
	copy(olds, s)
	removed := make([]any, del)
	copy(removed, s[start:start+del])

	ns := make([]any, 0, oldLen-del+len(items))
	ns = append(ns, s[:start]...)
	ns = append(ns, items...)
	ns = append(ns, s[start+del:]...)
	*l.target = ns
	newLen := len(ns)
	dataMu.Unlock()

	common := newLen
	if oldLen < common {
		common = oldLen
	}
	for i := start; i < common; i++ {
		if !valueEquals(ns[i], olds[i]) {
			trigger(l.id, l, kindList, OpSet, i, ns[i], olds[i])
		}
	}
	for i := oldLen; i < newLen; i++ {
		trigger(l.id, l, kindList, OpAdd, i, ns[i], nil)
	}
	for i := newLen; i < oldLen; i++ {
		trigger(l.id, l, kindList, OpDelete, i, nil, olds[i])
	}
	if newLen < oldLen {
		trigger(l.id, l, kindList, OpSet, lengthKey, newLen, oldLen)
	}

	if !l.variant.shallow() {
		for i, v := range removed {
			removed[i] = wrapNested(v, l.variant)
		}
	}
	return removed
}

// RemoveAt removes and returns the element at index i, or nil when out
// of range.
func (l *List) RemoveAt(i int) any {
	removed := l.Splice(i, 1)
	if len(removed) == 0 {
		return nil
	}
	return removed[0]
}

// InsertAt inserts v at index i, shifting the tail up.
func (l *List) InsertAt(i int, v any) {
	l.Splice(i, 0, v)
}

// Clear empties the list.
func (l *List) Clear() {
	l.SetLen(0)
}

// searchSnapshot subscribes to the length and every index, then returns
// a raw copy to search against.
func (l *List) searchSnapshot() []any {
	if l.inner != nil {
		return l.inner.searchSnapshot()
	}
	dataMu.RLock()
	snap := make([]any, len(*l.target))
	copy(snap, *l.target)
	dataMu.RUnlock()
	if !l.variant.readonly() {
		track(l.id, l, lengthKey)
		for i := range snap {
			track(l.id, l, i)
		}
	}
	return snap
}

// IndexOf returns the index of the first element identical to v, or -1.
// Elements are compared by identity against v as given and, when v is a
// wrapper that found nothing, once more against its raw target.
func (l *List) IndexOf(v any) int {
	snap := l.searchSnapshot()
	for i, item := range snap {
		if identityEquals(item, v) {
			return i
		}
	}
	if IsWrapper(v) {
		raw := Raw(v)
		for i, item := range snap {
			if identityEquals(item, raw) {
				return i
			}
		}
	}
	return -1
}

// LastIndexOf returns the index of the last element identical to v, or -1.
func (l *List) LastIndexOf(v any) int {
	snap := l.searchSnapshot()
	for i := len(snap) - 1; i >= 0; i-- {
		if identityEquals(snap[i], v) {
			return i
		}
	}
	if IsWrapper(v) {
		raw := Raw(v)
		for i := len(snap) - 1; i >= 0; i-- {
			if identityEquals(snap[i], raw) {
				return i
			}
		}
	}
	return -1
}

// Contains reports whether the list holds an element identical to v.
func (l *List) Contains(v any) bool {
	return l.IndexOf(v) >= 0
}

// Values returns a copy of the elements, each passed through this view's
// read policy. Subscribes to the length and every index.
func (l *List) Values() []any {
	if l.inner != nil {
		vals := l.inner.Values()
		if !l.variant.shallow() {
			for i, v := range vals {
				vals[i] = wrapNested(v, l.variant)
			}
		}
		return vals
	}

	if !l.variant.readonly() {
		track(l.id, l, lengthKey)
	}
	dataMu.RLock()
	snap := make([]any, len(*l.target))
	copy(snap, *l.target)
	dataMu.RUnlock()
	if !l.variant.readonly() {
		for i := range snap {
			track(l.id, l, i)
		}
	}
	if !l.variant.shallow() {
		for i, v := range snap {
			snap[i] = wrapNested(v, l.variant)
		}
	}
	return snap
}

// Range calls fn for each element in order until fn returns false.
func (l *List) Range(fn func(i int, v any) bool) {
	for i, v := range l.Values() {
		if !fn(i, v) {
			return
		}
	}
}

func (l *List) String() string {
	return fmt.Sprintf("%s list view (%d elements)", l.variant, l.rawLen())
}
