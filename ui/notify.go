package ui

import (
	"context"
	"log/slog"
	"os/exec"
	"time"
)

const notifyTimeout = 2 * time.Second

// Notifier sends desktop notifications through notify-send. Each send runs
// on its own goroutine so callers never block on the desktop environment.
type Notifier struct {
	enabled bool
	run     func(ctx context.Context, title, message string) error
}

// NewNotifier returns a notifier. When disabled, or when notify-send is
// missing, Notify becomes a no-op.
func NewNotifier(enabled bool) *Notifier {
	if enabled {
		if _, err := exec.LookPath("notify-send"); err != nil {
			slog.Warn("notify-send not found, notifications disabled")
			enabled = false
		}
	}
	return &Notifier{enabled: enabled, run: runNotifySend}
}

// Notify sends a notification and returns immediately.
func (n *Notifier) Notify(title, message string) {
	if !n.enabled {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := n.run(ctx, title, message); err != nil {
			slog.Warn("send notification", "title", title, "error", err)
		}
	}()
}

func runNotifySend(ctx context.Context, title, message string) error {
	return exec.CommandContext(ctx, "notify-send", "--app-name", "whisper-ctrl", title, message).Run()
}
