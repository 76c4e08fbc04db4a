package persist

import "context"

// Store is a keyed blob store for snapshots. Implementations are
// stateless between calls; Load returns ErrNotFound (wrapped) for keys
// that were never saved.
type Store interface {
	// Save persists data under key, creating or overwriting as needed.
	Save(ctx context.Context, key string, data []byte) error
	// Load retrieves the data saved under key.
	Load(ctx context.Context, key string) ([]byte, error)
	// List returns all saved keys.
	List(ctx context.Context) ([]string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
