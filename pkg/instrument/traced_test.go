package instrument

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"

	"github.com/loomkit/loom"
)

func TestTracedReturnsResult(t *testing.T) {
	wrapped := Traced("calc", func() any { return 42 })
	if got := wrapped(); got != 42 {
		t.Errorf("expected 42, got %v", got)
	}
}

func TestTracedRepanics(t *testing.T) {
	wrapped := Traced("boom", func() any { panic("kaboom") })

	defer func() {
		if r := recover(); r != "kaboom" {
			t.Errorf("expected the panic to re-raise, got %v", r)
		}
	}()
	wrapped()
}

func TestTracedOptions(t *testing.T) {
	wrapped := Traced("calc", func() any { return "ok" },
		WithTracerName("my-tracer"),
		WithAttributes(attribute.String("component", "test")),
	)
	if got := wrapped(); got != "ok" {
		t.Errorf("expected ok, got %v", got)
	}
}

func TestTracedComputedGetter(t *testing.T) {
	r := loom.NewRef(2)
	c := loom.NewComputed(Traced("double", func() any {
		n, _ := r.Get().(int)
		return n * 2
	}))

	if got := c.Get(); got != 4 {
		t.Fatalf("expected 4, got %v", got)
	}

	r.Set(5)
	if got := c.Get(); got != 10 {
		t.Errorf("expected the traced getter to stay reactive, got %v", got)
	}
}
