package extras

import (
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/loomkit/loom"
)

// Debounced wraps r with a write gate: sets on the returned ref are
// buffered and only the last one commits to r after d of quiet. Reads
// pass straight through, so they subscribe to r and always see the
// committed value.
//
// The stop function tears down the timer goroutine; a buffered write
// still pending at that point is committed immediately. Sets after stop
// are dropped.
func Debounced(r loom.Ref, d time.Duration, opts ...Option) (loom.Ref, func()) {
	cfg := newConfig(opts)

	// Latest-wins handoff from writers to the timer goroutine.
	ch := make(chan any, 1)
	done := make(chan struct{})

	out := loom.NewCustomRef(func(_, _ func()) (func() any, func(any)) {
		get := func() any { return r.Get() }
		set := func(v any) { push(ch, v) }
		return get, set
	})

	go func() {
		var (
			timer      clockz.Timer
			pending    any
			hasPending bool
		)
		for {
			var timerC <-chan time.Time
			if timer != nil {
				timerC = timer.C()
			}

			select {
			case <-done:
				if timer != nil {
					timer.Stop()
				}
				// A write that reached the channel but not us yet
				// still counts as pending.
				select {
				case v := <-ch:
					pending = v
					hasPending = true
				default:
				}
				if hasPending {
					r.Set(pending)
				}
				return

			case v := <-ch:
				pending = v
				hasPending = true

				if timer == nil {
					timer = cfg.clock.NewTimer(d)
				} else {
					if !timer.Stop() {
						select {
						case <-timer.C():
						default:
						}
					}
					timer.Reset(d)
				}

			case <-timerC:
				if hasPending {
					r.Set(pending)
					hasPending = false
				}
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() { close(done) })
	}
	return out, stop
}

// push replaces the channel's buffered value with v without blocking.
func push(ch chan any, v any) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
