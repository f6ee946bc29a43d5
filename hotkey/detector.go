// Package hotkey detects the global dictation shortcuts.
//
// The trigger gesture is a double press of a designated key (Ctrl by
// default): two presses within the configured threshold count as one toggle
// event. A separate cancel key aborts the current operation. What a toggle or
// cancel means in the current state is the controller's decision, not this
// package's.
package hotkey

import (
	"log/slog"
	"sync"
	"time"

	hook "github.com/robotn/gohook"
)

// Detector listens for global key presses for the process lifetime.
type Detector struct {
	triggers  map[string]struct{}
	cancelKey string
	threshold time.Duration

	onDoublePress func()
	onCancel      func()

	mu        sync.Mutex
	lastPress time.Time
	running   bool
}

// New creates a detector for the given trigger keys. Key names follow gohook
// conventions ("ctrl", "alt", "esc", ...). onDoublePress fires when two
// trigger presses land within threshold; onCancel fires on every cancel-key
// press regardless of application state.
func New(keys []string, threshold time.Duration, onDoublePress, onCancel func()) *Detector {
	if len(keys) == 0 {
		keys = []string{"ctrl"}
	}
	if threshold <= 0 {
		threshold = 400 * time.Millisecond
	}
	triggers := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		triggers[k] = struct{}{}
	}
	return &Detector{
		triggers:      triggers,
		cancelKey:     "esc",
		threshold:     threshold,
		onDoublePress: onDoublePress,
		onCancel:      onCancel,
	}
}

// Start attaches the OS-level keyboard hook. Idempotent.
func (d *Detector) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = true
	d.mu.Unlock()

	for key := range d.triggers {
		key := key
		hook.Register(hook.KeyDown, []string{key}, func(e hook.Event) {
			d.handlePress(key, time.Now())
		})
	}
	hook.Register(hook.KeyDown, []string{d.cancelKey}, func(e hook.Event) {
		d.handlePress(d.cancelKey, time.Now())
	})

	go func() {
		events := hook.Start()
		<-hook.Process(events)
		slog.Info("hotkey listener stopped")
	}()

	slog.Info("hotkey listener started",
		"triggers", keyNames(d.triggers), "cancel", d.cancelKey, "threshold", d.threshold)
	return nil
}

// Stop detaches the keyboard hook. Idempotent.
func (d *Detector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	d.running = false
	hook.End()
}

// handlePress implements double-press detection. The last-press timestamp is
// updated on every trigger press, successful or not, so a triple press yields
// at most one event per adjacent pair.
func (d *Detector) handlePress(key string, at time.Time) {
	if key == d.cancelKey {
		if d.onCancel != nil {
			d.onCancel()
		}
		return
	}
	if _, ok := d.triggers[key]; !ok {
		return
	}

	d.mu.Lock()
	diff := at.Sub(d.lastPress)
	d.lastPress = at
	d.mu.Unlock()

	if diff < d.threshold {
		if d.onDoublePress != nil {
			d.onDoublePress()
		}
	}
}

func keyNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for k := range set {
		names = append(names, k)
	}
	return names
}
