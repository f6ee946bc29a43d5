// Package app wires recording, transcription and injection into the
// dictation lifecycle.
package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/adamdelezuch89/whisper-ctrl/history"
	"github.com/adamdelezuch89/whisper-ctrl/internal/types"
	"github.com/adamdelezuch89/whisper-ctrl/transcriber"
)

// Recorder captures microphone audio between Start and Stop.
type Recorder interface {
	Start(onError func(error)) error
	Stop() []float32
	Cancel()
	Active() bool
}

// Injector delivers text to the focused application.
type Injector interface {
	Inject(text string) bool
	Name() string
}

// Notifier surfaces short user-facing messages. Implementations must not
// block.
type Notifier interface {
	Notify(title, message string)
}

// Historian records completed dictations.
type Historian interface {
	Add(e history.Entry) (history.Entry, error)
}

// Config holds the controller's collaborators and settings.
type Config struct {
	Recorder Recorder
	Backend  transcriber.Transcriber
	Injector Injector
	Notifier Notifier
	History  Historian // optional
	Language string

	// OnState observes every transition, for the tray icon. Called from
	// the controller goroutine.
	OnState func(state types.State, reason types.StateReason)
}

type eventKind int

const (
	evToggle eventKind = iota
	evCancel
	evDone
	evCaptureErr
)

// event is one unit of work for the controller loop. Completion events
// carry the generation of the recording cycle that produced them.
type event struct {
	kind   eventKind
	gen    uint64
	result *transcriber.Result
	err    error
}

// Controller owns the dictation state machine. All transitions happen on
// the Run goroutine; hotkey callbacks and workers only enqueue events, so
// a double press can never race a finishing transcription.
type Controller struct {
	cfg    Config
	events chan event

	mu    sync.Mutex
	state types.State

	gen uint64 // current recording cycle, loop goroutine only
}

func New(cfg Config) *Controller {
	return &Controller{
		cfg:    cfg,
		events: make(chan event, 16),
		state:  types.StateIdle,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() types.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Toggle requests a start or stop of dictation. Safe to call from any
// goroutine; never blocks.
func (c *Controller) Toggle() {
	c.enqueue(event{kind: evToggle})
}

// RequestCancel discards the current recording or pending result. Safe to
// call from any goroutine; never blocks.
func (c *Controller) RequestCancel() {
	c.enqueue(event{kind: evCancel})
}

func (c *Controller) enqueue(e event) {
	select {
	case c.events <- e:
	default:
		slog.Warn("event queue full, dropping event", "kind", e.kind)
	}
}

// Run processes events until ctx is cancelled. An in-flight recording is
// discarded on shutdown; an in-flight transcription is abandoned.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if c.State() == types.StateRecording {
				c.cfg.Recorder.Cancel()
			}
			return
		case e := <-c.events:
			c.handle(e)
		}
	}
}

func (c *Controller) handle(e event) {
	switch e.kind {
	case evToggle:
		c.handleToggle()
	case evCancel:
		c.handleCancel()
	case evDone:
		c.handleDone(e)
	case evCaptureErr:
		c.handleCaptureErr(e)
	}
}

func (c *Controller) handleToggle() {
	switch c.State() {
	case types.StateIdle:
		c.startRecording()
	case types.StateRecording:
		c.stopAndTranscribe()
	case types.StateProcessing:
		// A toggle during processing is a no-op; the pending result
		// still lands.
		slog.Info("toggle ignored, transcription in progress")
		c.cfg.Notifier.Notify("Busy", "Still transcribing the previous recording")
	}
}

func (c *Controller) startRecording() {
	gen := c.gen + 1
	err := c.cfg.Recorder.Start(func(captureErr error) {
		c.enqueue(event{kind: evCaptureErr, gen: gen, err: captureErr})
	})
	if err != nil {
		slog.Error("start recording", "error", err)
		c.cfg.Notifier.Notify("Recording failed", err.Error())
		return
	}
	c.gen = gen
	c.setState(types.StateRecording, types.ReasonRecordingStarted)
	c.cfg.Notifier.Notify("Recording", "Listening... press again to stop")
}

func (c *Controller) stopAndTranscribe() {
	samples := c.cfg.Recorder.Stop()
	if len(samples) == 0 {
		slog.Warn("capture produced no audio")
		c.setState(types.StateIdle, types.ReasonCaptureFailed)
		c.cfg.Notifier.Notify("No audio", "Nothing was captured")
		return
	}

	c.setState(types.StateProcessing, types.ReasonTranscribing)

	gen := c.gen
	go func() {
		res, err := c.cfg.Backend.Transcribe(samples, c.cfg.Language)
		c.enqueue(event{kind: evDone, gen: gen, result: res, err: err})
	}()
}

func (c *Controller) handleCancel() {
	switch c.State() {
	case types.StateIdle:
		// Nothing to cancel.
	case types.StateRecording:
		c.cfg.Recorder.Cancel()
		c.setState(types.StateIdle, types.ReasonRecordingCancelled)
		c.cfg.Notifier.Notify("Cancelled", "Recording discarded")
	case types.StateProcessing:
		// Inference is not interruptible; leaving Processing means the
		// completion will be discarded when it arrives.
		c.setState(types.StateIdle, types.ReasonProcessingCancelled)
		c.cfg.Notifier.Notify("Cancelled", "Result will be discarded")
	}
}

func (c *Controller) handleDone(e event) {
	if c.State() != types.StateProcessing || e.gen != c.gen {
		slog.Info("discarding stale transcription result", "gen", e.gen)
		return
	}

	if e.err != nil {
		slog.Error("transcription failed", "error", e.err)
		c.setState(types.StateIdle, types.ReasonTranscriptionFailed)
		c.cfg.Notifier.Notify("Transcription failed", e.err.Error())
		return
	}

	text := strings.TrimSpace(e.result.Text)
	if text == "" {
		c.setState(types.StateIdle, types.ReasonEmptyTranscript)
		c.cfg.Notifier.Notify("No speech", "The recording contained no speech")
		return
	}

	c.record(text, e.result)

	if !c.cfg.Injector.Inject(text) {
		c.setState(types.StateIdle, types.ReasonInjectionFailed)
		c.cfg.Notifier.Notify("Injection failed", "Text was saved to history")
		return
	}

	slog.Info("text injected",
		"chars", len(text),
		"language", e.result.Language,
		"elapsed", e.result.Elapsed)
	c.setState(types.StateIdle, types.ReasonTextInjected)
}

func (c *Controller) handleCaptureErr(e event) {
	if c.State() != types.StateRecording || e.gen != c.gen {
		return
	}
	slog.Error("audio capture failed", "error", e.err)
	c.cfg.Recorder.Cancel()
	c.setState(types.StateIdle, types.ReasonCaptureFailed)
	c.cfg.Notifier.Notify("Recording failed", e.err.Error())
}

// record stores the dictation in history. Failures are logged, never
// surfaced; history is a convenience.
func (c *Controller) record(text string, res *transcriber.Result) {
	if c.cfg.History == nil {
		return
	}
	_, err := c.cfg.History.Add(history.Entry{
		Text:     text,
		Language: res.Language,
		Backend:  c.cfg.Backend.Name(),
		Duration: res.Elapsed,
	})
	if err != nil {
		slog.Warn("record history entry", "error", err)
	}
}

func (c *Controller) setState(state types.State, reason types.StateReason) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()

	slog.Info("state changed", "state", state, "reason", reason)
	if c.cfg.OnState != nil {
		c.cfg.OnState(state, reason)
	}
}
