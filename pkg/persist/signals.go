package persist

import "github.com/zoobzio/capitan"

// Snapshot lifecycle signals.
var (
	// SnapshotSaved is emitted after a registry snapshot is written to a store.
	SnapshotSaved = capitan.NewSignal(
		"loom.snapshot.saved",
		"Registry snapshot saved",
	)

	// SnapshotRestored is emitted after a registry snapshot is applied.
	SnapshotRestored = capitan.NewSignal(
		"loom.snapshot.restored",
		"Registry snapshot restored",
	)

	// SnapshotSaveFailed is emitted when writing a snapshot fails.
	SnapshotSaveFailed = capitan.NewSignal(
		"loom.snapshot.save.failed",
		"Registry snapshot save failed",
	)

	// SnapshotRestoreFailed is emitted when applying a snapshot fails.
	SnapshotRestoreFailed = capitan.NewSignal(
		"loom.snapshot.restore.failed",
		"Registry snapshot restore failed",
	)
)

// Field keys for snapshot events.
var (
	// KeyName is the registry name the snapshot belongs to.
	KeyName = capitan.NewStringKey("name")

	// KeyEntries is the number of top-level entries in the snapshot.
	KeyEntries = capitan.NewIntKey("entries")

	// KeyBytes is the encoded snapshot size.
	KeyBytes = capitan.NewIntKey("bytes")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")
)
