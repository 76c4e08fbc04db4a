package loom

import "log/slog"

// DevMode enables development-time diagnostics. When true, silently-ignored
// operations (mutating a readonly wrapper, observing an unobservable value,
// converting a non-reactive source to refs) emit advisory warnings through
// slog. These warnings never change behavior or return values.
//
// Set this at application startup:
//
//	func main() {
//	    loom.DevMode = os.Getenv("LOOM_DEV") == "1"
//	    // ...
//	}
var DevMode = false

// DebugConfig controls debugging features for development.
// These settings affect logging only, never semantics.
type DebugConfig struct {
	// LogEffectRuns logs each effect run with timing information.
	// Useful for debugging performance issues.
	// Default: false.
	LogEffectRuns bool

	// LogTriggers logs each trigger with the operation and key.
	// Useful for tracing why an effect re-ran.
	// Default: false.
	LogTriggers bool
}

// DefaultDebugConfig returns a DebugConfig with all debugging disabled.
// Enable individual options as needed for development.
func DefaultDebugConfig() DebugConfig {
	return DebugConfig{
		LogEffectRuns: false,
		LogTriggers:   false,
	}
}

// Debug is the global debug configuration.
// Modify this at application startup to enable debugging features.
var Debug = DefaultDebugConfig()

// TriggerDepthLimit bounds how deeply synchronous trigger cascades may nest
// on one goroutine before the engine warns about a likely runaway cycle
// (an effect writing state that re-triggers itself through another key).
// The cascade still runs; only a warning is emitted. Zero disables the check.
var TriggerDepthLimit = 256

// warn emits a DevMode advisory through slog. No-op in production mode.
func warn(msg string, args ...any) {
	if !DevMode {
		return
	}
	slog.Default().Warn("loom: "+msg, args...)
}
