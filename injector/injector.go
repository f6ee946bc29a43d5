// Package injector places transcribed text at the cursor of the focused
// application. Text goes through the system clipboard, then a synthetic
// paste chord delivers it. Clipboard contents are overwritten and not
// restored.
package injector

import "time"

// Injector delivers text to the focused application.
type Injector interface {
	// Inject copies text to the clipboard and sends a paste keystroke.
	// It reports whether delivery succeeded and never retries.
	Inject(text string) bool

	// Name identifies the injection mechanism for logging.
	Name() string
}

// settleDelay gives the clipboard manager time to take ownership before
// the paste chord fires.
const settleDelay = 50 * time.Millisecond

// commandTimeout bounds each external tool invocation.
const commandTimeout = 2 * time.Second
