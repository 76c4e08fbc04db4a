package loom

import "testing"

func TestRefTracksAndTriggers(t *testing.T) {
	r := NewRef(1)

	var seen any
	runs := 0
	NewEffect(func() any {
		runs++
		seen = r.Get()
		return nil
	})

	r.Set(2)
	if runs != 2 || seen != 2 {
		t.Fatalf("expected the ref write to re-run the reader, got %d runs and %v", runs, seen)
	}

	r.Set(2)
	if runs != 2 {
		t.Errorf("expected an equal write to be silent, got %d runs", runs)
	}
}

func TestRefsNeverNest(t *testing.T) {
	inner := NewRef(1)
	if got := NewRef(inner); got != inner {
		t.Error("expected boxing a ref to return it unchanged")
	}
	if got := NewShallowRef(inner); got != inner {
		t.Error("expected shallow-boxing a ref to return it unchanged")
	}
}

func TestRefWrapsComposites(t *testing.T) {
	r := NewRef(map[string]any{"x": 1})

	m, ok := r.Get().(*Map)
	if !ok {
		t.Fatal("expected the boxed record to come back reactive")
	}

	var seen any
	NewEffect(func() any {
		seen = r.Get().(*Map).Get("x")
		return nil
	})

	m.Set("x", 2)
	if seen != 2 {
		t.Errorf("expected the nested write to reach the reader, got %v", seen)
	}
}

func TestShallowRefAndTriggerRef(t *testing.T) {
	contents := map[string]any{"x": 1}
	r := NewShallowRef(contents)

	if IsWrapper(r.Get()) {
		t.Fatal("expected the shallow ref to hand out the stored value untouched")
	}

	runs := 0
	NewEffect(func() any {
		runs++
		r.Get()
		return nil
	})

	contents["x"] = 2
	if runs != 1 {
		t.Fatalf("expected an in-place mutation to be invisible, got %d runs", runs)
	}

	TriggerRef(r)
	if runs != 2 {
		t.Errorf("expected TriggerRef to force a re-run, got %d runs", runs)
	}

	r.Set(map[string]any{"x": 3})
	if runs != 3 {
		t.Errorf("expected replacing the value to re-run, got %d runs", runs)
	}
}

func TestRefPeekDoesNotSubscribe(t *testing.T) {
	r := NewRef(1)
	runs := 0
	NewEffect(func() any {
		runs++
		r.Peek()
		return nil
	})

	r.Set(2)
	if runs != 1 {
		t.Errorf("expected a peeked ref not to subscribe, got %d runs", runs)
	}
	if got := r.Peek(); got != 2 {
		t.Errorf("expected peek to see the current value, got %v", got)
	}
}

func TestCustomRef(t *testing.T) {
	var store any = 1
	sets := 0
	r := NewCustomRef(func(track, trig func()) (func() any, func(any)) {
		get := func() any {
			track()
			return store
		}
		set := func(v any) {
			sets++
			store = v
			trig()
		}
		return get, set
	})

	var seen any
	runs := 0
	NewEffect(func() any {
		runs++
		seen = r.Get()
		return nil
	})

	r.Set(2)
	if runs != 2 || seen != 2 {
		t.Fatalf("expected the custom trigger to re-run the reader, got %d runs and %v", runs, seen)
	}
	if sets != 1 {
		t.Errorf("expected one setter call, got %d", sets)
	}
	if got := r.Peek(); got != 2 {
		t.Errorf("expected peek to run the custom getter, got %v", got)
	}
}

func TestToRefThroughView(t *testing.T) {
	m := Reactive(map[string]any{"count": 1}).(*Map)
	r := ToRef(m, "count")

	var seen any
	NewEffect(func() any {
		seen = r.Get()
		return nil
	})

	m.Set("count", 2)
	if seen != 2 {
		t.Errorf("expected the property ref to observe the record write, got %v", seen)
	}

	r.Set(3)
	if got := m.Get("count"); got != 3 {
		t.Errorf("expected the ref write to reach the record, got %v", got)
	}
	if got := r.Peek(); got != 3 {
		t.Errorf("expected peek to read the slot, got %v", got)
	}
}

func TestToRefOverPlainRecord(t *testing.T) {
	stored := NewRef(5)
	raw := map[string]any{"boxed": stored, "plain": 1}

	if got := ToRef(raw, "boxed"); got != stored {
		t.Error("expected an already-boxed property to return the stored ref")
	}

	r := ToRef(raw, "plain")
	runs := 0
	NewEffect(func() any {
		runs++
		r.Get()
		return nil
	})
	r.Set(2)
	if runs != 1 {
		t.Errorf("expected a plain-record ref to carry no reactivity, got %d runs", runs)
	}
	if raw["plain"] != 2 {
		t.Errorf("expected the write to land in the record, got %v", raw["plain"])
	}
}

func TestToRefs(t *testing.T) {
	m := Reactive(map[string]any{"a": 1, "b": 2}).(*Map)
	refs := ToRefs(m)

	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(refs))
	}

	refs["a"].Set(10)
	if got := m.Get("a"); got != 10 {
		t.Errorf("expected the converted ref to write through, got %v", got)
	}

	m.Set("b", 20)
	if got := refs["b"].Get(); got != 20 {
		t.Errorf("expected the converted ref to read through, got %v", got)
	}

	if got := ToRefs(42); got != nil {
		t.Errorf("expected a non-record source to produce nil, got %v", got)
	}
}

func TestIsRefAndUnref(t *testing.T) {
	r := NewRef(1)
	if !IsRef(r) {
		t.Error("expected a ref to probe as one")
	}
	if IsRef(1) || IsRef(map[string]any{}) {
		t.Error("expected plain values not to probe as refs")
	}
	if got := Unref(r); got != 1 {
		t.Errorf("expected Unref to read the ref, got %v", got)
	}
	if got := Unref("plain"); got != "plain" {
		t.Errorf("expected Unref to pass a plain value through, got %v", got)
	}
}

func TestProxyRefsView(t *testing.T) {
	count := NewRef(1)
	raw := map[string]any{"count": count, "plain": "x"}

	view, ok := ProxyRefs(raw).(*RefView)
	if !ok {
		t.Fatal("expected a ref view over the plain record")
	}

	if got := view.Get("count"); got != 1 {
		t.Errorf("expected the view read to unwrap the ref, got %v", got)
	}
	if got := view.Get("plain"); got != "x" {
		t.Errorf("expected the view to pass plain values through, got %v", got)
	}

	view.Set("count", 5)
	if got := count.Peek(); got != 5 {
		t.Errorf("expected the view write to route through the ref, got %v", got)
	}
	if raw["count"] != count {
		t.Error("expected the ref to stay in its slot")
	}

	view.Set("plain", "y")
	if raw["plain"] != "y" {
		t.Errorf("expected a plain slot write to land directly, got %v", raw["plain"])
	}

	var seen any
	NewEffect(func() any {
		seen = view.Get("count")
		return nil
	})
	count.Set(9)
	if seen != 9 {
		t.Errorf("expected the unwrapped ref read to subscribe, got %v", seen)
	}

	m := Reactive(map[string]any{}).(*Map)
	if got := ProxyRefs(m); got != any(m) {
		t.Error("expected a record view to pass through unchanged")
	}
}
