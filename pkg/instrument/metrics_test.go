package instrument

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/loomkit/loom"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetricsTrackEngineActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(WithRegistry(reg))
	detach := loom.Events.Register(metrics)
	defer detach()

	runsBefore := counterValue(t, metrics.effectRuns)
	setsBefore := counterValue(t, metrics.triggers.WithLabelValues("set"))
	liveBefore := gaugeValue(t, metrics.effectsLive)

	m := loom.Reactive(map[string]any{"n": 1}).(*loom.Map)
	e := loom.NewEffect(func() any {
		m.Get("n")
		return nil
	})
	m.Set("n", 2)

	if got := counterValue(t, metrics.effectRuns) - runsBefore; got != 2 {
		t.Errorf("expected 2 effect runs, got %v", got)
	}
	if got := counterValue(t, metrics.triggers.WithLabelValues("set")) - setsBefore; got != 1 {
		t.Errorf("expected 1 set trigger, got %v", got)
	}
	if got := gaugeValue(t, metrics.effectsLive) - liveBefore; got != 1 {
		t.Errorf("expected the live gauge to rise by 1, got %v", got)
	}
	if got := histogramCount(t, metrics.runSeconds); got < 2 {
		t.Errorf("expected run duration samples, got %d", got)
	}

	e.Stop()
	if got := gaugeValue(t, metrics.effectsLive) - liveBefore; got != 0 {
		t.Errorf("expected the live gauge to fall back, got %v", got)
	}
}

func TestMetricsTriggerOps(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(WithRegistry(reg))
	detach := loom.Events.Register(metrics)
	defer detach()

	m := loom.Reactive(map[string]any{}).(*loom.Map)
	e := loom.NewEffect(func() any {
		m.Len()
		return nil
	})
	defer e.Stop()

	m.Set("a", 1)
	m.Delete("a")

	if got := counterValue(t, metrics.triggers.WithLabelValues("add")); got != 1 {
		t.Errorf("expected 1 add trigger, got %v", got)
	}
	if got := counterValue(t, metrics.triggers.WithLabelValues("delete")); got != 1 {
		t.Errorf("expected 1 delete trigger, got %v", got)
	}
}

func TestMetricsNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(WithRegistry(reg), WithNamespace("myapp"), WithSubsystem("reactive"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	found := false
	for _, fam := range families {
		if fam.GetName() == "myapp_reactive_effect_runs_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected namespaced metric family to be registered")
	}
}
