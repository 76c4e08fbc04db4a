package loom

import "testing"

func TestBatchCoalescesRuns(t *testing.T) {
	m := Reactive(map[string]any{"a": 1, "b": 2}).(*Map)

	runs := 0
	var sum int
	NewEffect(func() any {
		runs++
		a, _ := m.Get("a").(int)
		b, _ := m.Get("b").(int)
		sum = a + b
		return nil
	})

	Batch(func() {
		m.Set("a", 10)
		m.Set("b", 20)
		if runs != 1 {
			t.Errorf("expected re-runs to be deferred inside the batch, got %d", runs)
		}
	})

	if runs != 2 {
		t.Errorf("expected a single deferred run, got %d", runs)
	}
	if sum != 30 {
		t.Errorf("expected the deferred run to see the final values, got %d", sum)
	}
}

func TestBatchDedupesRepeatedWrites(t *testing.T) {
	m := Reactive(map[string]any{"n": 0}).(*Map)

	runs := 0
	NewEffect(func() any {
		runs++
		m.Get("n")
		return nil
	})

	Batch(func() {
		for i := 1; i <= 5; i++ {
			m.Set("n", i)
		}
	})

	if runs != 2 {
		t.Errorf("expected five writes to coalesce into one run, got %d runs", runs)
	}
}

func TestNestedBatchFlushesOnce(t *testing.T) {
	m := Reactive(map[string]any{"n": 0}).(*Map)

	runs := 0
	NewEffect(func() any {
		runs++
		m.Get("n")
		return nil
	})

	Batch(func() {
		m.Set("n", 1)
		Batch(func() {
			m.Set("n", 2)
		})
		if runs != 1 {
			t.Errorf("expected the inner batch exit not to flush, got %d runs", runs)
		}
	})

	if runs != 2 {
		t.Errorf("expected one flush at the outermost exit, got %d runs", runs)
	}
}

func TestBatchNotifiesSchedulersImmediately(t *testing.T) {
	m := Reactive(map[string]any{"n": 0}).(*Map)

	scheduled := 0
	e := NewEffect(func() any {
		m.Get("n")
		return nil
	}, WithScheduler(func(*Effect) { scheduled++ }))
	defer e.Stop()

	Batch(func() {
		m.Set("n", 1)
		if scheduled != 1 {
			t.Errorf("expected the scheduler to fire inside the batch, got %d", scheduled)
		}
		m.Set("n", 2)
	})

	if scheduled != 2 {
		t.Errorf("expected one scheduler call per write, got %d", scheduled)
	}
}

func TestBatchKeepsComputedsFresh(t *testing.T) {
	m := Reactive(map[string]any{"n": 1}).(*Map)
	c := NewComputed(func() any { return m.Get("n") })
	c.Get()

	Batch(func() {
		m.Set("n", 2)
		if got := c.Get(); got != 2 {
			t.Errorf("expected the computed to be fresh inside the batch, got %v", got)
		}
	})
}

func TestBatchRunOrder(t *testing.T) {
	m := Reactive(map[string]any{"n": 0}).(*Map)

	var order []string
	NewEffect(func() any {
		m.Get("n")
		order = append(order, "first")
		return nil
	})
	NewEffect(func() any {
		m.Get("n")
		order = append(order, "second")
		return nil
	})
	order = nil

	Batch(func() {
		m.Set("n", 1)
	})

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("expected subscription order to hold, got %v", order)
	}
}

func TestBatchCascade(t *testing.T) {
	m := Reactive(map[string]any{"a": 0, "b": 0}).(*Map)

	aRuns, bRuns := 0, 0
	NewEffect(func() any {
		aRuns++
		a, _ := m.Get("a").(int)
		m.Set("b", a*10)
		return nil
	})
	NewEffect(func() any {
		bRuns++
		m.Get("b")
		return nil
	})

	Batch(func() {
		m.Set("a", 1)
	})

	if aRuns != 2 {
		t.Errorf("expected the writer effect to run once more, got %d runs", aRuns)
	}
	if bRuns != 2 {
		t.Errorf("expected the reader to follow the cascaded write, got %d runs", bRuns)
	}
	if got := m.Get("b"); got != 10 {
		t.Errorf("expected the cascade to land, got %v", got)
	}
}

func TestEmptyBatch(t *testing.T) {
	Batch(func() {})
}
