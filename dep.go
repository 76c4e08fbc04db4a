package loom

// dep is one dependency set: the effects subscribed to a single
// (target, key) pair, in subscription order. Effects run in the order they
// first subscribed, so membership changes preserve ordering.
//
// All access is guarded by the graph mutex.
type dep struct {
	effects []*Effect
}

// add appends the effect if it is not already a member.
// Returns true when the effect was newly added.
func (d *dep) add(e *Effect) bool {
	for _, existing := range d.effects {
		if existing == e {
			return false
		}
	}
	d.effects = append(d.effects, e)
	return true
}

// remove deletes the effect, keeping the remaining subscription order.
func (d *dep) remove(e *Effect) {
	for i, existing := range d.effects {
		if existing == e {
			d.effects = append(d.effects[:i], d.effects[i+1:]...)
			return
		}
	}
}

// keyDeps holds the dependency sets of one target, keyed by property key
// or iteration token, in first-track order. Tracking order matters when a
// trigger rule spans several keys (array truncation, clear): effects from
// earlier-tracked keys run first.
type keyDeps struct {
	order []any
	deps  map[any]*dep
}

func newKeyDeps() *keyDeps {
	return &keyDeps{deps: make(map[any]*dep)}
}

// ensure returns the dependency set for key, creating it on first use.
func (k *keyDeps) ensure(key any) *dep {
	if d, ok := k.deps[key]; ok {
		return d
	}
	d := &dep{}
	k.deps[key] = d
	k.order = append(k.order, key)
	return d
}

// get returns the dependency set for key, or nil if never tracked.
func (k *keyDeps) get(key any) *dep {
	return k.deps[key]
}
