package instrument

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/loomkit/loom"
	"github.com/loomkit/loom/pkg/observe"
)

// Config controls the collectors built by NewMetrics.
type Config struct {
	// Namespace prefixes every metric name. Defaults to "loom".
	Namespace string

	// Subsystem is an optional second prefix between the namespace
	// and the metric name. Empty by default.
	Subsystem string

	// ConstLabels are attached to every collector.
	ConstLabels prometheus.Labels

	// Buckets for the effect run duration histogram.
	// Defaults to prometheus.DefBuckets.
	Buckets []float64

	// Registry the collectors are registered with.
	// Defaults to prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// Option adjusts a Config.
type Option func(*Config)

// WithNamespace overrides the default "loom" metric namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem adds a subsystem prefix to every metric name.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels attaches labels to every collector.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets overrides the run duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry registers the collectors somewhere other than the
// default registerer.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace:   "loom",
		Subsystem:   "",
		ConstLabels: nil,
		Buckets:     prometheus.DefBuckets,
		Registry:    prometheus.DefaultRegisterer,
	}
}

// Metrics translates engine events into Prometheus metrics. It implements
// observe.Observer; register it on the engine's event registry.
type Metrics struct {
	effectRuns  prometheus.Counter
	triggers    *prometheus.CounterVec
	effectsLive prometheus.Gauge
	runSeconds  prometheus.Histogram
}

// NewMetrics builds the collectors and registers them with the configured
// registry. Building two Metrics against the same registry panics with a
// duplicate registration error, as promauto always does.
func NewMetrics(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		effectRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_runs_total",
			Help:        "Total number of effect executions",
			ConstLabels: config.ConstLabels,
		}),

		triggers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "triggers_total",
			Help:        "Total number of change notifications by operation",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		effectsLive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effects_live",
			Help:        "Number of effects currently subscribed",
			ConstLabels: config.ConstLabels,
		}),

		runSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_run_seconds",
			Help:        "Effect run duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
	}
}

// OnEvent implements observe.Observer.
func (m *Metrics) OnEvent(_ context.Context, event observe.Event) {
	switch event.Type {
	case loom.EventEffectCreated:
		m.effectsLive.Inc()

	case loom.EventEffectStopped:
		m.effectsLive.Dec()

	case loom.EventEffectRun:
		m.effectRuns.Inc()
		if d, ok := event.Data["duration"].(time.Duration); ok {
			m.runSeconds.Observe(d.Seconds())
		}

	case loom.EventTrigger:
		op, _ := event.Data["op"].(string)
		if op == "" {
			op = "unknown"
		}
		m.triggers.WithLabelValues(op).Inc()
	}
}
