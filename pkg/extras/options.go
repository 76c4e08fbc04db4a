package extras

import (
	"log/slog"

	"github.com/zoobzio/clockz"
)

// config holds configuration options for the wrappers.
type config struct {
	clock   clockz.Clock
	onError func(error)
}

// Option configures a wrapper.
type Option func(*config)

// WithClock sets a custom clock for time operations. Use this with
// clockz.FakeClock for deterministic debounce testing.
func WithClock(clock clockz.Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithErrorHandler sets the callback invoked when a wrapper hits an IO
// error, such as a failed file write or a watcher fault. The default
// logs the error.
func WithErrorHandler(fn func(error)) Option {
	return func(c *config) {
		c.onError = fn
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{
		clock: clockz.RealClock,
		onError: func(err error) {
			slog.Default().With("component", "extras").Warn("wrapper error", "error", err)
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
