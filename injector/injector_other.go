//go:build !linux

package injector

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/atotto/clipboard"
	"github.com/go-vgo/robotgo"
)

// New returns the clipboard-and-keytap injector used outside Linux.
func New() Injector {
	return &nativeInjector{}
}

// nativeInjector writes the clipboard through the OS API and synthesizes
// the platform paste chord.
type nativeInjector struct{}

func (n *nativeInjector) Name() string { return runtime.GOOS }

func (n *nativeInjector) Inject(text string) bool {
	if err := clipboard.WriteAll(text); err != nil {
		slog.Error("copy to clipboard failed", "error", err)
		return false
	}

	time.Sleep(settleDelay)

	modifier := "ctrl"
	if runtime.GOOS == "darwin" {
		modifier = "cmd"
	}
	if err := robotgo.KeyTap("v", modifier); err != nil {
		slog.Error("paste keystroke failed", "error", err)
		return false
	}
	return true
}
