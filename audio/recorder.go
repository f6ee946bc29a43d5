// Package audio provides microphone capture for transcription.
//
// A Recorder accumulates fixed-size chunks of mono float32 samples on a
// dedicated worker goroutine until it is stopped or cancelled. Whisper
// expects 16 kHz input, so recording happens directly at the target rate and
// no resampling is needed.
package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// ErrRunning is returned when trying to start a capture while one is active.
var ErrRunning = errors.New("audio: capture already running")

const (
	// chunkFrames is the number of frames read from the device per loop
	// iteration. Small enough that a stop request is observed promptly.
	chunkFrames = 1024

	// stopTimeout bounds how long Stop waits for the worker to exit. The
	// join is best-effort; a wedged device read must not hang the caller.
	stopTimeout = 2 * time.Second
)

// chunkReader yields successive chunks of captured samples.
type chunkReader interface {
	ReadChunk() ([]float32, error)
	Close() error
}

// openFunc opens the capture device. Swapped out in tests.
type openFunc func(sampleRate, frames int) (chunkReader, error)

// Recorder captures microphone input on a worker goroutine. At most one
// capture is active at a time; enforcing that across operations is the
// controller's job, Start merely refuses to double-start.
type Recorder struct {
	sampleRate int
	open       openFunc

	mu        sync.Mutex
	stop      chan struct{}
	stopOnce  *sync.Once
	done      chan struct{}
	cancelled bool
	samples   []float32
}

// NewRecorder creates a recorder capturing at sampleRate Hz.
func NewRecorder(sampleRate int) *Recorder {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &Recorder{sampleRate: sampleRate, open: openDefaultInput}
}

// SampleRate returns the configured capture rate.
func (r *Recorder) SampleRate() int {
	return r.sampleRate
}

// Start begins capturing on a worker goroutine and returns immediately.
// Device and read failures are reported through onError; no buffer is
// produced for a failed capture.
func (r *Recorder) Start(onError func(error)) error {
	r.mu.Lock()
	if r.done != nil {
		done := r.done
		r.mu.Unlock()
		// A cancelled worker may still be draining; give it a moment.
		select {
		case <-done:
		case <-time.After(stopTimeout):
			return ErrRunning
		}
		r.mu.Lock()
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	r.stop = stop
	r.stopOnce = new(sync.Once)
	r.done = done
	r.cancelled = false
	r.samples = nil
	r.mu.Unlock()

	go r.capture(stop, done, onError)
	return nil
}

// Stop signals the worker to finish and returns the concatenated buffer.
// Returns nil if the capture was cancelled, failed, or produced no samples.
// The wait for the worker is bounded by stopTimeout.
func (r *Recorder) Stop() []float32 {
	r.mu.Lock()
	stopOnce, done := r.stopOnce, r.done
	r.mu.Unlock()
	if done == nil {
		return nil
	}

	stopOnce.Do(func() { close(r.stop) })
	select {
	case <-done:
	case <-time.After(stopTimeout):
		slog.Warn("capture worker did not exit in time, proceeding without it")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	samples := r.samples
	r.samples = nil
	r.stop = nil
	r.stopOnce = nil
	r.done = nil
	return samples
}

// Cancel signals the worker to stop without producing a buffer. It does not
// wait for the worker to exit.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		return
	}
	r.cancelled = true
	r.stopOnce.Do(func() { close(r.stop) })
}

// Active reports whether a capture worker is currently running.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

func (r *Recorder) capture(stop, done chan struct{}, onError func(error)) {
	defer close(done)

	src, err := r.open(r.sampleRate, chunkFrames)
	if err != nil {
		slog.Error("open input device", "error", err)
		if onError != nil {
			onError(err)
		}
		return
	}
	defer src.Close()

	slog.Info("microphone active", "sample_rate", r.sampleRate)

	var frames [][]float32
	total := 0
	for {
		select {
		case <-stop:
			r.finish(frames, total)
			return
		default:
		}

		chunk, err := src.ReadChunk()
		if err != nil {
			slog.Error("read input stream", "error", err)
			if onError != nil {
				onError(err)
			}
			return
		}
		frames = append(frames, chunk)
		total += len(chunk)
	}
}

// finish concatenates the captured chunks into the result buffer unless the
// capture was cancelled.
func (r *Recorder) finish(frames [][]float32, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelled || total == 0 {
		return
	}
	buf := make([]float32, 0, total)
	for _, chunk := range frames {
		buf = append(buf, chunk...)
	}
	r.samples = buf
	slog.Info("recording finished", "samples", total,
		"duration", time.Duration(total)*time.Second/time.Duration(r.sampleRate))
}

// portaudioReader is the real device implementation.
type portaudioReader struct {
	stream *portaudio.Stream
	buf    []float32
}

func openDefaultInput(sampleRate, frames int) (chunkReader, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	buf := make([]float32, frames)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), frames, buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	return &portaudioReader{stream: stream, buf: buf}, nil
}

func (p *portaudioReader) ReadChunk() ([]float32, error) {
	if err := p.stream.Read(); err != nil {
		return nil, err
	}
	out := make([]float32, len(p.buf))
	copy(out, p.buf)
	return out, nil
}

func (p *portaudioReader) Close() error {
	err := p.stream.Stop()
	p.stream.Close()
	portaudio.Terminate()
	return err
}
