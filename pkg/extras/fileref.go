package extras

import (
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/loomkit/loom"
)

// FileRef returns a ref bound to the file at path. Its value is the
// file's bytes: external writes to the file show up as new values, and
// setting the ref writes the file back. Sets accept []byte or string.
//
// The watcher goroutine runs until ctx is cancelled. A write the
// watcher cannot re-read, a failed write-through and watcher faults go
// to the WithErrorHandler callback; the ref then keeps its last good
// value.
func FileRef(ctx context.Context, path string, opts ...Option) (loom.Ref, error) {
	cfg := newConfig(opts)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch file %s: %w", path, err)
	}

	// inner carries the bytes; the returned ref decorates its writes
	// with the write-through.
	inner := loom.NewShallowRef(data)

	out := loom.NewCustomRef(func(_, _ func()) (func() any, func(any)) {
		get := func() any { return inner.Get() }
		set := func(v any) {
			var b []byte
			switch t := v.(type) {
			case []byte:
				b = t
			case string:
				b = []byte(t)
			default:
				cfg.onError(fmt.Errorf("file ref for %s takes []byte or string, got %T", path, v))
				return
			}
			if err := os.WriteFile(path, b, 0o644); err != nil {
				cfg.onError(fmt.Errorf("write %s: %w", path, err))
				return
			}
			inner.Set(b)
		}
		return get, set
	})

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				data, err := os.ReadFile(path)
				if err != nil {
					cfg.onError(fmt.Errorf("re-read %s: %w", path, err))
					continue
				}
				inner.Set(data)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				cfg.onError(err)
			}
		}
	}()

	return out, nil
}
