package observe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Registry is a subscription hub for engine events. The engine checks
// Active before building an Event so that emission costs nothing when no
// observer is attached.
type Registry struct {
	mu        sync.RWMutex
	nextKey   uint64
	observers map[uint64]Observer
	active    atomic.Int32
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{observers: make(map[uint64]Observer)}
}

// Register attaches an observer and returns a function that detaches it
// again. Registering a nil observer returns a no-op detach.
func (r *Registry) Register(obs Observer) func() {
	if obs == nil {
		return func() {}
	}

	r.mu.Lock()
	r.nextKey++
	key := r.nextKey
	r.observers[key] = obs
	r.mu.Unlock()
	r.active.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.observers, key)
			r.mu.Unlock()
			r.active.Add(-1)
		})
	}
}

// Active reports whether at least one observer is attached. Lock-free.
func (r *Registry) Active() bool {
	return r.active.Load() > 0
}

// Emit delivers the event to every attached observer. The observer set is
// copied under the read lock before delivery so observers may detach
// themselves from inside OnEvent.
func (r *Registry) Emit(ctx context.Context, event Event) {
	if !r.Active() {
		return
	}

	r.mu.RLock()
	snapshot := make([]Observer, 0, len(r.observers))
	for _, obs := range r.observers {
		snapshot = append(snapshot, obs)
	}
	r.mu.RUnlock()

	for _, obs := range snapshot {
		obs.OnEvent(ctx, event)
	}
}
