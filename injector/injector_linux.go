//go:build linux

package injector

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// New selects the injection mechanism for the current session. Wayland
// sessions use wl-copy and wtype, X11 sessions use xclip and xdotool.
func New() Injector {
	if isWayland() {
		return newCommandInjector("wayland",
			command{name: "wl-copy", stdin: true},
			command{name: "wtype", args: []string{"-M", "shift", "-P", "insert", "-m", "shift"}},
		)
	}
	return newCommandInjector("x11",
		command{name: "xclip", args: []string{"-selection", "clipboard"}, stdin: true},
		command{name: "xdotool", args: []string{"key", "--clearmodifiers", "ctrl+v"}},
	)
}

func isWayland() bool {
	if os.Getenv("XDG_SESSION_TYPE") == "wayland" {
		return true
	}
	return os.Getenv("WAYLAND_DISPLAY") != ""
}

// command describes one external tool invocation. When stdin is set the
// injected text is piped to the process.
type command struct {
	name  string
	args  []string
	stdin bool
}

// runFunc executes an external command. Swappable in tests.
type runFunc func(ctx context.Context, cmd command, text string) error

// commandInjector copies text with one tool and pastes with another.
type commandInjector struct {
	name  string
	copy  command
	paste command
	run   runFunc
}

func newCommandInjector(name string, copyCmd, pasteCmd command) *commandInjector {
	for _, c := range []command{copyCmd, pasteCmd} {
		if _, err := exec.LookPath(c.name); err != nil {
			slog.Warn("injection tool not found, injection will fail",
				"tool", c.name, "session", name)
		}
	}
	return &commandInjector{name: name, copy: copyCmd, paste: pasteCmd, run: runCommand}
}

func (c *commandInjector) Name() string { return c.name }

func (c *commandInjector) Inject(text string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := c.run(ctx, c.copy, text); err != nil {
		slog.Error("copy to clipboard failed", "tool", c.copy.name, "error", err)
		return false
	}

	time.Sleep(settleDelay)

	ctx, cancel = context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := c.run(ctx, c.paste, text); err != nil {
		slog.Error("paste keystroke failed", "tool", c.paste.name, "error", err)
		return false
	}
	return true
}

func runCommand(ctx context.Context, cmd command, text string) error {
	ec := exec.CommandContext(ctx, cmd.name, cmd.args...)
	if cmd.stdin {
		ec.Stdin = strings.NewReader(text)
	}
	return ec.Run()
}
