package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/zoobzio/capitan"

	"github.com/loomkit/loom"
)

// entry is one registered piece of state. Exactly one field is set.
type entry struct {
	ref loom.Ref
	rec *loom.Map
}

// Registry names the refs and records that make up an application's
// durable state and moves them to and from a Store as JSON.
type Registry struct {
	name   string
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates a registry. The name prefixes store keys, so two
// registries with different names can share one Store.
func NewRegistry(name string) *Registry {
	return &Registry{
		name:    name,
		logger:  slog.Default().With("component", "persist"),
		entries: make(map[string]entry),
	}
}

// Register adds a ref under key. Registering an existing key replaces
// the earlier registration.
func (g *Registry) Register(key string, r loom.Ref) {
	g.mu.Lock()
	if _, ok := g.entries[key]; ok {
		g.logger.Warn("replacing registered state", "registry", g.name, "key", key)
	}
	g.entries[key] = entry{ref: r}
	g.mu.Unlock()
}

// RegisterMap adds a record view under key. Registering an existing key
// replaces the earlier registration.
func (g *Registry) RegisterMap(key string, m *loom.Map) {
	g.mu.Lock()
	if _, ok := g.entries[key]; ok {
		g.logger.Warn("replacing registered state", "registry", g.name, "key", key)
	}
	g.entries[key] = entry{rec: m}
	g.mu.Unlock()
}

// Keys returns the registered keys in sorted order.
func (g *Registry) Keys() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sortedKeys()
}

// Save writes every registered value to the store, one object per key.
// Values are read through the reactive views, so calling Save inside an
// Effect subscribes that effect to all registered state and turns it
// into an auto-save loop.
func (g *Registry) Save(ctx context.Context, store Store) error {
	entries, keys := g.snapshot()

	var total int
	for _, key := range keys {
		e := entries[key]

		var value any
		if e.rec != nil {
			value = plainRecord(e.rec)
		} else {
			value = loom.Raw(e.ref.Peek())
		}

		data, err := json.Marshal(value)
		if err != nil {
			capitan.Emit(ctx, SnapshotSaveFailed,
				KeyName.Field(g.name),
				KeyError.Field(err.Error()),
			)
			return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key, err)
		}

		if err := store.Save(ctx, g.storeKey(key), data); err != nil {
			capitan.Emit(ctx, SnapshotSaveFailed,
				KeyName.Field(g.name),
				KeyError.Field(err.Error()),
			)
			return err
		}
		total += len(data)
	}

	capitan.Emit(ctx, SnapshotSaved,
		KeyName.Field(g.name),
		KeyEntries.Field(len(keys)),
		KeyBytes.Field(total),
	)
	return nil
}

// Restore loads every registered key from the store and applies the
// values back through the reactive views in a single batch, so effects
// observing several restored values run once. Keys the store does not
// have are skipped; registered state keeps its current value for them.
//
// JSON shapes the restored values: numbers come back as float64 and
// nested objects as map[string]any, whatever type was saved.
func (g *Registry) Restore(ctx context.Context, store Store) error {
	entries, keys := g.snapshot()

	// Decode everything before touching the graph so a broken store
	// cannot leave it half restored.
	type loaded struct {
		key    string
		value  any
		record map[string]any
	}
	var pending []loaded

	for _, key := range keys {
		data, err := store.Load(ctx, g.storeKey(key))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			capitan.Emit(ctx, SnapshotRestoreFailed,
				KeyName.Field(g.name),
				KeyError.Field(err.Error()),
			)
			return err
		}

		e := entries[key]
		if e.rec != nil {
			var rec map[string]any
			if err := json.Unmarshal(data, &rec); err != nil {
				capitan.Emit(ctx, SnapshotRestoreFailed,
					KeyName.Field(g.name),
					KeyError.Field(err.Error()),
				)
				return fmt.Errorf("%w: %s: %v", ErrLoadFailed, key, err)
			}
			pending = append(pending, loaded{key: key, record: rec})
		} else {
			var v any
			if err := json.Unmarshal(data, &v); err != nil {
				capitan.Emit(ctx, SnapshotRestoreFailed,
					KeyName.Field(g.name),
					KeyError.Field(err.Error()),
				)
				return fmt.Errorf("%w: %s: %v", ErrLoadFailed, key, err)
			}
			pending = append(pending, loaded{key: key, value: v})
		}
	}

	loom.Batch(func() {
		for _, l := range pending {
			e := entries[l.key]
			if e.rec != nil {
				applyRecord(e.rec, l.record)
			} else {
				e.ref.Set(l.value)
			}
		}
	})

	capitan.Emit(ctx, SnapshotRestored,
		KeyName.Field(g.name),
		KeyEntries.Field(len(pending)),
	)
	return nil
}

// snapshot copies the registration table so Save and Restore do not
// hold the lock while talking to a store.
func (g *Registry) snapshot() (map[string]entry, []string) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	entries := make(map[string]entry, len(g.entries))
	for k, e := range g.entries {
		entries[k] = e
	}
	return entries, g.sortedKeys()
}

func (g *Registry) sortedKeys() []string {
	keys := make([]string, 0, len(g.entries))
	for k := range g.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (g *Registry) storeKey(key string) string {
	if g.name == "" {
		return key
	}
	return g.name + "/" + key
}

// plainRecord reads a record view into a plain map. Stored refs and
// nested views are resolved to their raw values.
func plainRecord(m *loom.Map) map[string]any {
	keys := m.Keys()
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		out[k] = loom.Raw(m.Get(k))
	}
	return out
}

// applyRecord reconciles a record view against a decoded snapshot:
// keys missing from the snapshot are deleted, the rest are set.
func applyRecord(m *loom.Map, rec map[string]any) {
	for _, k := range m.Keys() {
		if _, ok := rec[k]; !ok {
			m.Delete(k)
		}
	}
	for k, v := range rec {
		m.Set(k, v)
	}
}
