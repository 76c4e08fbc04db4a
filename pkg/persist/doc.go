// Package persist saves and restores reactive state as JSON snapshots.
//
// A Registry associates string keys with refs and reactive records. Save
// serializes the current raw values through a Store; Restore loads them
// and writes back through the reactive setters so subscribers see the
// restored values.
//
//	reg := persist.NewRegistry("myapp")
//	reg.Register("count", count)
//	reg.RegisterMap("settings", settings)
//
//	store := persist.NewFileStore("/var/lib/myapp/state")
//	if err := reg.Save(ctx, store); err != nil { ... }
//
// Store implementations ship for memory, the filesystem (atomic temp-file
// rename), and S3. All take a context and return wrapped sentinel errors.
//
// Snapshot values pass through encoding/json, so registered state must be
// plain JSON-marshalable data; numbers come back as float64 the way
// encoding/json always delivers them.
//
// Lifecycle signals (persist.SnapshotSaved and friends) are emitted via
// capitan at save and restore boundaries for external monitoring.
package persist
