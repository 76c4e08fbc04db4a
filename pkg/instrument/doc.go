// Package instrument exports engine activity to Prometheus and OpenTelemetry.
//
// Metrics is an event observer that translates engine events into
// Prometheus collectors:
//
//   - loom_effect_runs_total: Counter of effect executions
//   - loom_triggers_total{op}: Counter of triggers by operation
//   - loom_effects_live: Gauge of currently subscribed effects
//   - loom_effect_run_seconds: Histogram of effect run duration
//
// Attach it to the engine registry:
//
//	metrics := instrument.NewMetrics(instrument.WithNamespace("myapp"))
//	detach := loom.Events.Register(metrics)
//	defer detach()
//
//	http.Handle("/metrics", promhttp.Handler())
//
// Traced wraps a computation in an OpenTelemetry span, for use as an
// effect or computed function:
//
//	c := loom.NewComputed(instrument.Traced("total", func() any {
//	    return cart.Get("subtotal")
//	}))
//
// The tracer comes from the global OpenTelemetry tracer provider; configure
// it in main() before creating traced computations.
package instrument
