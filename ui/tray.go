// Package ui provides the system tray presence and desktop notifications.
package ui

import (
	"github.com/getlantern/systray"

	"github.com/adamdelezuch89/whisper-ctrl/internal/types"
)

// Tray shows the dictation state in the system tray.
type Tray struct {
	quit    chan struct{}
	enabled bool
}

// NewTray starts the tray loop on its own goroutine. onQuit runs when the
// user picks Quit from the menu.
func NewTray(enabled bool, onQuit func()) *Tray {
	t := &Tray{quit: make(chan struct{}), enabled: enabled}
	if !enabled {
		return t
	}
	go systray.Run(func() {
		systray.SetTitle("Dictation")
		systray.SetTooltip("Idle, double-press the hotkey to dictate")
		mQuit := systray.AddMenuItem("Quit", "Quit dictation")
		go func() {
			select {
			case <-mQuit.ClickedCh:
				onQuit()
				systray.Quit()
			case <-t.quit:
				systray.Quit()
			}
		}()
	}, nil)
	return t
}

// StateChanged updates the tray title and tooltip. Safe to call from the
// controller goroutine.
func (t *Tray) StateChanged(state types.State, _ types.StateReason) {
	if !t.enabled {
		return
	}
	switch state {
	case types.StateRecording:
		systray.SetTitle("● Recording")
		systray.SetTooltip("Recording, press the hotkey again to stop")
	case types.StateProcessing:
		systray.SetTitle("… Processing")
		systray.SetTooltip("Transcribing the recording")
	default:
		systray.SetTitle("Dictation")
		systray.SetTooltip("Idle, double-press the hotkey to dictate")
	}
}

// Close tears the tray down.
func (t *Tray) Close() {
	if t.enabled {
		close(t.quit)
	}
}
