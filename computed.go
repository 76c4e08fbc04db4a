package loom

import "sync"

// Computed is a derived value. Its getter runs lazily inside an effect,
// so the sources it reads subscribe it; when a source changes the cached
// value is marked stale and subscribers of the computed are notified,
// without running the getter. The next Get recomputes.
type Computed struct {
	refBase
	getter func() any
	setter func(v any)

	mu    sync.Mutex
	value any
	dirty bool
	// gen advances on every invalidation so a recompute that raced with
	// one keeps the value stale.
	gen uint64

	effect *Effect
}

var _ Ref = (*Computed)(nil)

// NewComputed returns a derived value recomputed from getter on demand.
// Writing to it is rejected with a DevMode warning.
func NewComputed(getter func() any) *Computed {
	return newComputed(getter, nil)
}

// NewWritableComputed is NewComputed with a setter; Set forwards to it.
// The setter usually writes back to the sources the getter reads.
func NewWritableComputed(get func() any, set func(v any)) *Computed {
	return newComputed(get, set)
}

func newComputed(getter func() any, setter func(v any)) *Computed {
	c := &Computed{getter: getter, setter: setter, dirty: true}
	c.init()
	c.effect = NewEffect(getter, Lazy(), WithScheduler(func(*Effect) {
		c.mu.Lock()
		c.gen++
		wasDirty := c.dirty
		c.dirty = true
		c.mu.Unlock()
		if !wasDirty {
			c.triggerValue(c, nil, nil)
		}
	}))
	armCleanup(c, c.depID)
	return c
}

// resolve returns the cached value, recomputing it first when stale.
func (c *Computed) resolve() any {
	c.mu.Lock()
	if c.dirty {
		gen := c.gen
		c.mu.Unlock()
		v := c.effect.Run()
		c.mu.Lock()
		c.value = v
		if c.gen == gen {
			c.dirty = false
		}
	}
	v := c.value
	c.mu.Unlock()
	return v
}

// Get returns the derived value, recomputing it when a source changed
// since the last read, and subscribes the running effect to the
// computed.
func (c *Computed) Get() any {
	v := c.resolve()
	c.trackValue(c)
	return v
}

// Set forwards to the writable computed's setter.
func (c *Computed) Set(v any) {
	if c.setter == nil {
		warn("computed value is read-only")
		return
	}
	c.setter(v)
}

// Peek returns the derived value without subscribing.
func (c *Computed) Peek() any {
	return c.resolve()
}

// Stop detaches the computed from its sources. Subsequent Gets return
// the last cached value; stale recomputes still work but no longer
// subscribe. Scopes stop their computeds automatically.
func (c *Computed) Stop() {
	c.effect.Stop()
}
