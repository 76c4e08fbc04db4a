package loom

import (
	"fmt"
	"testing"
)

func TestComputedLazyAndCached(t *testing.T) {
	m := Reactive(map[string]any{"n": 2}).(*Map)
	computes := 0
	c := NewComputed(func() any {
		computes++
		n, _ := m.Get("n").(int)
		return n * 2
	})

	if computes != 0 {
		t.Fatalf("expected no compute before the first read, got %d", computes)
	}

	if got := c.Get(); got != 4 {
		t.Fatalf("expected 4, got %v", got)
	}
	c.Get()
	c.Get()
	if computes != 1 {
		t.Errorf("expected repeated reads to hit the cache, got %d computes", computes)
	}

	m.Set("n", 3)
	if computes != 1 {
		t.Errorf("expected invalidation without a read not to recompute, got %d computes", computes)
	}
	if got := c.Get(); got != 6 {
		t.Errorf("expected 6 after the source changed, got %v", got)
	}
	if computes != 2 {
		t.Errorf("expected exactly one recompute, got %d", computes)
	}
}

func TestComputedCoalescesInvalidations(t *testing.T) {
	m := Reactive(map[string]any{"n": 1}).(*Map)
	computes := 0
	c := NewComputed(func() any {
		computes++
		return m.Get("n")
	})
	c.Get()

	m.Set("n", 2)
	m.Set("n", 3)
	m.Set("n", 4)

	if got := c.Get(); got != 4 {
		t.Fatalf("expected 4, got %v", got)
	}
	if computes != 2 {
		t.Errorf("expected the writes to coalesce into one recompute, got %d", computes)
	}
}

func TestComputedNotifiesSubscribers(t *testing.T) {
	m := Reactive(map[string]any{"n": 1}).(*Map)
	c := NewComputed(func() any {
		n, _ := m.Get("n").(int)
		return n + 10
	})

	var seen any
	runs := 0
	NewEffect(func() any {
		runs++
		seen = c.Get()
		return nil
	})

	if runs != 1 || seen != 11 {
		t.Fatalf("expected the initial read to see 11, got %d runs and %v", runs, seen)
	}

	m.Set("n", 5)
	if runs != 2 || seen != 15 {
		t.Errorf("expected the source write to reach the subscriber, got %d runs and %v", runs, seen)
	}
}

func TestComputedChain(t *testing.T) {
	m := Reactive(map[string]any{"first": "Ada", "last": "Lovelace"}).(*Map)
	full := NewComputed(func() any {
		return fmt.Sprintf("%v %v", m.Get("first"), m.Get("last"))
	})
	shout := NewComputed(func() any {
		s, _ := full.Get().(string)
		return s + "!"
	})

	var seen any
	NewEffect(func() any {
		seen = shout.Get()
		return nil
	})

	if seen != "Ada Lovelace!" {
		t.Fatalf("expected the chain to resolve, got %v", seen)
	}

	m.Set("first", "Augusta")
	if seen != "Augusta Lovelace!" {
		t.Errorf("expected the source write to ripple through the chain, got %v", seen)
	}
}

func TestWritableComputed(t *testing.T) {
	celsius := NewRef(0)
	fahrenheit := NewWritableComputed(
		func() any {
			c, _ := celsius.Get().(int)
			return c*9/5 + 32
		},
		func(v any) {
			f, _ := v.(int)
			celsius.Set((f - 32) * 5 / 9)
		},
	)

	if got := fahrenheit.Get(); got != 32 {
		t.Fatalf("expected 32, got %v", got)
	}

	fahrenheit.Set(212)
	if got := celsius.Get(); got != 100 {
		t.Errorf("expected the setter to write back, got %v", got)
	}
	if got := fahrenheit.Get(); got != 212 {
		t.Errorf("expected the getter to follow, got %v", got)
	}
}

func TestReadonlyComputedIgnoresWrites(t *testing.T) {
	c := NewComputed(func() any { return 7 })
	c.Set(9)
	if got := c.Get(); got != 7 {
		t.Errorf("expected the read-only computed to ignore the write, got %v", got)
	}
}

func TestComputedPeekDoesNotSubscribe(t *testing.T) {
	r := NewRef(1)
	c := NewComputed(func() any { return r.Get() })

	runs := 0
	NewEffect(func() any {
		runs++
		c.Peek()
		return nil
	})

	r.Set(2)
	c.Get()
	if runs != 1 {
		t.Errorf("expected the peeking effect not to subscribe, got %d runs", runs)
	}
	if got := c.Peek(); got != 2 {
		t.Errorf("expected peek to resolve the fresh value, got %v", got)
	}
}

func TestComputedStop(t *testing.T) {
	r := NewRef(1)
	c := NewComputed(func() any { return r.Get() })
	if got := c.Get(); got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}

	c.Stop()
	r.Set(2)

	if got := c.Get(); got != 1 {
		t.Errorf("expected the stopped computed to keep its last value, got %v", got)
	}
}

func TestComputedIsARef(t *testing.T) {
	c := NewComputed(func() any { return 1 })
	if !IsRef(c) {
		t.Error("expected a computed to probe as a ref")
	}
	if got := Unref(c); got != 1 {
		t.Errorf("expected Unref to resolve the computed, got %v", got)
	}
}
