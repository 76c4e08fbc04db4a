package loom

import "testing"

func TestScopeStopsEffects(t *testing.T) {
	m := Reactive(map[string]any{"n": 1}).(*Map)
	s := NewScope(nil)

	runs := 0
	s.Run(func() {
		NewEffect(func() any {
			runs++
			m.Get("n")
			return nil
		})
	})

	m.Set("n", 2)
	if runs != 2 {
		t.Fatalf("expected the scoped effect to run, got %d runs", runs)
	}

	s.Stop()
	m.Set("n", 3)
	if runs != 2 {
		t.Errorf("expected no runs after the scope stopped, got %d", runs)
	}
	if s.Active() {
		t.Error("expected the scope to report inactive")
	}
}

func TestScopeStopsComputeds(t *testing.T) {
	r := NewRef(1)
	s := NewScope(nil)

	var c *Computed
	s.Run(func() {
		c = NewComputed(func() any { return r.Get() })
	})
	if got := c.Get(); got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}

	s.Stop()
	r.Set(2)
	if got := c.Get(); got != 1 {
		t.Errorf("expected the computed to be severed from its source, got %v", got)
	}
}

func TestNestedScopes(t *testing.T) {
	m := Reactive(map[string]any{"n": 1}).(*Map)
	parent := NewScope(nil)

	outerRuns, innerRuns := 0, 0
	parent.Run(func() {
		NewEffect(func() any {
			outerRuns++
			m.Get("n")
			return nil
		})
		child := NewScope(parent)
		child.Run(func() {
			NewEffect(func() any {
				innerRuns++
				m.Get("n")
				return nil
			})
		})
	})

	parent.Stop()
	m.Set("n", 2)
	if outerRuns != 1 || innerRuns != 1 {
		t.Errorf("expected stopping the parent to stop both levels, got %d and %d runs", outerRuns, innerRuns)
	}
}

func TestChildScopeStopsAlone(t *testing.T) {
	m := Reactive(map[string]any{"n": 1}).(*Map)
	parent := NewScope(nil)
	child := NewScope(parent)

	parentRuns, childRuns := 0, 0
	parent.Run(func() {
		NewEffect(func() any {
			parentRuns++
			m.Get("n")
			return nil
		})
	})
	child.Run(func() {
		NewEffect(func() any {
			childRuns++
			m.Get("n")
			return nil
		})
	})

	child.Stop()
	m.Set("n", 2)
	if childRuns != 1 {
		t.Errorf("expected the child's effect to be stopped, got %d runs", childRuns)
	}
	if parentRuns != 2 {
		t.Errorf("expected the parent's effect to keep running, got %d runs", parentRuns)
	}

	parent.Stop()
	m.Set("n", 3)
	if parentRuns != 2 {
		t.Errorf("expected the parent stop to take effect, got %d runs", parentRuns)
	}
}

func TestScopeCleanupOrder(t *testing.T) {
	s := NewScope(nil)
	var order []string
	s.Run(func() {
		OnCleanup(func() { order = append(order, "first") })
		OnCleanup(func() { order = append(order, "second") })
		OnCleanup(func() { order = append(order, "third") })
	})

	s.Stop()
	if len(order) != 3 || order[0] != "third" || order[1] != "second" || order[2] != "first" {
		t.Errorf("expected cleanups to run newest first, got %v", order)
	}

	s.Stop()
	if len(order) != 3 {
		t.Errorf("expected a second stop to do nothing, got %v", order)
	}
}

func TestScopeRunRestoresPrevious(t *testing.T) {
	m := Reactive(map[string]any{"n": 1}).(*Map)
	outer := NewScope(nil)
	inner := NewScope(nil)

	outerRuns := 0
	outer.Run(func() {
		inner.Run(func() {})
		NewEffect(func() any {
			outerRuns++
			m.Get("n")
			return nil
		})
	})

	inner.Stop()
	m.Set("n", 2)
	if outerRuns != 2 {
		t.Errorf("expected the effect to belong to the outer scope, got %d runs", outerRuns)
	}
	outer.Stop()
}

func TestStoppedScopeRun(t *testing.T) {
	s := NewScope(nil)
	s.Stop()

	ran := false
	s.Run(func() { ran = true })
	if ran {
		t.Error("expected a stopped scope not to run its function")
	}
}

func TestOnCleanupOutsideScope(t *testing.T) {
	called := false
	OnCleanup(func() { called = true })
	if called {
		t.Error("expected a cleanup registered outside a scope to be dropped")
	}
}

func TestUnscopedEffectOutlivesScope(t *testing.T) {
	m := Reactive(map[string]any{"n": 1}).(*Map)
	s := NewScope(nil)
	s.Run(func() {})

	runs := 0
	e := NewEffect(func() any {
		runs++
		m.Get("n")
		return nil
	})
	defer e.Stop()

	s.Stop()
	m.Set("n", 2)
	if runs != 2 {
		t.Errorf("expected the unscoped effect to keep running, got %d runs", runs)
	}
}
