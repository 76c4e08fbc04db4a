// Package devtools provides a live inspector for the reactivity engine.
//
// The inspector is an HTTP server that streams engine events to connected
// clients and exposes counter snapshots:
//
//   - GET /ws       WebSocket stream of engine events as JSON
//   - GET /stats    point-in-time engine counters
//   - GET /healthz  liveness probe
//
// # Usage
//
//	srv := devtools.New(devtools.WithAddr(":9990"))
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Start registers the server as an observer on the engine's event registry,
// so every effect run, trigger, and scope teardown is forwarded to connected
// inspector clients. With no clients connected, broadcasting is skipped.
//
// # Event Protocol
//
// Clients connect to /ws and receive one JSON object per event:
//
//	{"type": "effect.run", "level": "DEBUG", "data": {"id": 42, ...}}
//
// The stream is one-directional; anything a client sends is discarded.
package devtools
