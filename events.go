package loom

import (
	"context"
	"fmt"
	"time"

	"github.com/loomkit/loom/pkg/observe"
)

// Event types published through Events. Observers filter on these.
const (
	EventEffectCreated  observe.EventType = "effect.created"
	EventEffectRun      observe.EventType = "effect.run"
	EventEffectStopped  observe.EventType = "effect.stopped"
	EventTrigger        observe.EventType = "trigger"
	EventWrapperCreated observe.EventType = "wrapper.created"
	EventScopeStopped   observe.EventType = "scope.stopped"
)

// Events is the engine's observer registry. Attach an observer to receive
// lifecycle events (effect runs, triggers, wrapper construction, scope
// teardown):
//
//	detach := loom.Events.Register(observe.NewSlogObserver(nil))
//	defer detach()
//
// Emission is skipped entirely while no observer is attached.
var Events = observe.NewRegistry()

const eventSource = "loom"

func emitEvent(t observe.EventType, level observe.Level, data map[string]any) {
	Events.Emit(context.Background(), observe.Event{
		Type:      t,
		Level:     level,
		Timestamp: time.Now(),
		Source:    eventSource,
		Data:      data,
	})
}

func emitEffectCreated(e *Effect) {
	if !Events.Active() {
		return
	}
	emitEvent(EventEffectCreated, observe.LevelVerbose, map[string]any{
		"id":   e.id,
		"lazy": e.lazy,
	})
}

func emitEffectRun(e *Effect, d time.Duration) {
	if !Events.Active() {
		return
	}
	emitEvent(EventEffectRun, observe.LevelVerbose, map[string]any{
		"id":       e.id,
		"duration": d,
	})
}

func emitEffectStopped(e *Effect) {
	if !Events.Active() {
		return
	}
	emitEvent(EventEffectStopped, observe.LevelVerbose, map[string]any{
		"id": e.id,
	})
}

func emitTrigger(op Op, key any, effects int) {
	if !Events.Active() {
		return
	}
	emitEvent(EventTrigger, observe.LevelVerbose, map[string]any{
		"op":      string(op),
		"key":     keyLabel(key),
		"effects": effects,
	})
}

func emitWrapperCreated(kind targetKind, v variant) {
	if !Events.Active() {
		return
	}
	emitEvent(EventWrapperCreated, observe.LevelVerbose, map[string]any{
		"kind":    kindLabel(kind),
		"variant": v.String(),
	})
}

func emitScopeStopped(effects int) {
	if !Events.Active() {
		return
	}
	emitEvent(EventScopeStopped, observe.LevelInfo, map[string]any{
		"effects": effects,
	})
}

// keyLabel renders a dependency key for event payloads.
func keyLabel(key any) string {
	switch k := key.(type) {
	case nil:
		return ""
	case string:
		return k
	case iterationToken:
		return "<" + string(k) + ">"
	default:
		return fmt.Sprintf("%v", k)
	}
}

func kindLabel(k targetKind) string {
	switch k {
	case kindRecord:
		return "record"
	case kindList:
		return "list"
	case kindDict:
		return "dict"
	default:
		return "ref"
	}
}
