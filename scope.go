package loom

import (
	"sync"
	"sync/atomic"
)

// Scope collects the effects and computeds created while it is current
// so they can be stopped together. Scopes nest; stopping a parent stops
// its children first.
type Scope struct {
	mu       sync.Mutex
	parent   *Scope
	children []*Scope
	effects  []*Effect
	cleanups []func()
	stopped  atomic.Bool
}

// NewScope returns a scope attached to parent, or a root scope when
// parent is nil. A scope created under an already-stopped parent is
// usable but will not be stopped with it.
func NewScope(parent *Scope) *Scope {
	s := &Scope{parent: parent}
	if parent != nil {
		parent.mu.Lock()
		stopped := parent.stopped.Load()
		if !stopped {
			parent.children = append(parent.children, s)
		}
		parent.mu.Unlock()
		if stopped {
			warn("scope created under a stopped parent will not be stopped with it")
		}
	}
	return s
}

// Run makes the scope current for this goroutine while fn executes, so
// effects and computeds created inside register with it. Nested Run
// calls save and restore the previous scope. Running a stopped scope is
// a DevMode warning no-op.
func (s *Scope) Run(fn func()) {
	if !s.Active() {
		warn("run on a stopped scope skipped")
		return
	}
	prev := setCurrentScope(s)
	defer setCurrentScope(prev)
	fn()
}

// Active reports whether the scope has not been stopped.
func (s *Scope) Active() bool {
	return !s.stopped.Load()
}

func (s *Scope) addEffect(e *Effect) {
	s.mu.Lock()
	if !s.stopped.Load() {
		s.effects = append(s.effects, e)
	}
	s.mu.Unlock()
}

// OnCleanup registers fn to run when the current scope stops. Outside a
// scope it is a DevMode warning no-op.
func OnCleanup(fn func()) {
	s := currentScope()
	if s == nil {
		warn("cleanup registered outside a scope")
		return
	}
	s.onCleanup(fn)
}

func (s *Scope) onCleanup(fn func()) {
	s.mu.Lock()
	stopped := s.stopped.Load()
	if !stopped {
		s.cleanups = append(s.cleanups, fn)
	}
	s.mu.Unlock()
	if stopped {
		warn("cleanup registered on a stopped scope")
	}
}

// Stop stops child scopes newest first, then this scope's effects, then
// runs cleanups newest first, and detaches from the parent. Idempotent.
func (s *Scope) Stop() {
	if !s.stopped.CompareAndSwap(false, true) {
		return
	}

	s.mu.Lock()
	children := s.children
	effects := s.effects
	cleanups := s.cleanups
	parent := s.parent
	s.children, s.effects, s.cleanups, s.parent = nil, nil, nil, nil
	s.mu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Stop()
	}
	for _, e := range effects {
		e.Stop()
	}
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}

	if parent != nil {
		parent.removeChild(s)
	}

	emitScopeStopped(len(effects))
}

func (s *Scope) removeChild(child *Scope) {
	s.mu.Lock()
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
}
