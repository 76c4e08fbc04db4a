package persist

import "errors"

// Sentinel errors for store operations.
var (
	ErrNotFound    = errors.New("loom: snapshot not found")
	ErrStoreClosed = errors.New("loom: store closed")
	ErrSaveFailed  = errors.New("loom: snapshot save failed")
	ErrLoadFailed  = errors.New("loom: snapshot load failed")
)
