// Package transcriber provides speech-to-text backends behind one interface.
//
// Two implementations exist: Local runs a whisper.cpp model in-process, API
// uploads audio to an OpenAI-compatible or Azure-flavored HTTP endpoint. The
// controller selects one at startup based on configuration and never switches
// at runtime.
package transcriber

import (
	"errors"
	"fmt"
	"time"
)

// Result is the outcome of one transcription. Immutable once produced.
type Result struct {
	// Text is the transcribed text with surrounding whitespace trimmed.
	// May be empty when no speech was recognized.
	Text string

	// Language is the detected or requested language code, if known.
	Language string

	// Confidence is the recognition confidence in [0, 1], 0 if unknown.
	Confidence float64

	// Elapsed is the wall time the backend spent on this request.
	Elapsed time.Duration
}

// Transcriber converts captured audio to text.
type Transcriber interface {
	// Transcribe converts mono float32 PCM samples at 16 kHz to text.
	// language is an ISO-639-1 hint; "" or "auto" means auto-detect.
	Transcribe(samples []float32, language string) (*Result, error)

	// Available reports whether the backend is ready to serve requests.
	Available() bool

	// Name returns a human-readable backend description for logs and the UI.
	Name() string
}

// ErrNoAudio is returned when Transcribe is called with an empty buffer.
var ErrNoAudio = errors.New("no audio data provided")

// ErrUnavailable is returned when the backend is not ready.
var ErrUnavailable = errors.New("backend not available")

// Error wraps any failure produced by a transcription backend.
type Error struct {
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transcribe via %s: %v", e.Backend, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// failed wraps err into a backend-tagged *Error.
func failed(backend string, err error) *Error {
	return &Error{Backend: backend, Err: err}
}
