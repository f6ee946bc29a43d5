package transcriber

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// Model sizes mapped to their ggml download URLs and approximate sizes.
var modelSizes = map[string]struct {
	URL  string
	Size int64
}{
	"tiny":     {"https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin", 75 * 1024 * 1024},
	"base":     {"https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin", 150 * 1024 * 1024},
	"small":    {"https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.bin", 500 * 1024 * 1024},
	"medium":   {"https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.bin", 1500 * 1024 * 1024},
	"large-v3": {"https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3.bin", 3000 * 1024 * 1024},
}

// LocalConfig holds configuration for the local whisper.cpp backend.
type LocalConfig struct {
	ModelSize string // "tiny", "base", "small", "medium", "large-v3"
	ModelDir  string // Directory to store models
	ModelPath string // Explicit model path, overrides ModelSize/ModelDir
	Threads   int
	BeamSize  int

	// Device and ComputeType mirror the configuration schema. GPU
	// offload and quantization are decided when whisper.cpp is built,
	// so they are recorded for logging only.
	Device      string
	ComputeType string

	VADEnabled bool
	VAD        VAD
}

// Local transcribes audio with an in-process whisper.cpp model.
type Local struct {
	cfg       LocalConfig
	modelPath string
	model     whisper.Model
}

// NewLocal resolves the model file, downloading it when missing, and loads
// it into memory. Loading happens once at construction so the first
// dictation does not pay the cold-start cost.
func NewLocal(cfg LocalConfig) (*Local, error) {
	if cfg.ModelSize == "" {
		cfg.ModelSize = "base"
	}
	if cfg.ModelSize == "large" {
		cfg.ModelSize = "large-v3"
	}

	modelPath := cfg.ModelPath
	if modelPath == "" {
		info, ok := modelSizes[cfg.ModelSize]
		if !ok {
			return nil, fmt.Errorf("invalid model size: %s", cfg.ModelSize)
		}
		dir := cfg.ModelDir
		if dir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("get home dir: %w", err)
			}
			dir = filepath.Join(homeDir, ".whisper-ctrl", "models")
		}
		modelPath = filepath.Join(dir, fmt.Sprintf("ggml-%s.bin", cfg.ModelSize))

		if _, err := os.Stat(modelPath); os.IsNotExist(err) {
			slog.Info("downloading whisper model", "size", cfg.ModelSize, "url", info.URL)
			if err := downloadModel(info.URL, info.Size, modelPath); err != nil {
				return nil, fmt.Errorf("download model: %w", err)
			}
		}
	} else if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	slog.Info("loading whisper model",
		"path", modelPath, "device", cfg.Device, "compute_type", cfg.ComputeType)
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model: %w", err)
	}

	return &Local{cfg: cfg, modelPath: modelPath, model: model}, nil
}

func (l *Local) Name() string {
	return fmt.Sprintf("whisper.cpp (%s)", l.cfg.ModelSize)
}

func (l *Local) Available() bool { return l.model != nil }

// Transcribe runs inference over the capture. When VAD is enabled the
// capture is reduced to its speech segments first; a capture with no speech
// yields an empty result without touching the model.
func (l *Local) Transcribe(samples []float32, language string) (*Result, error) {
	if !l.Available() {
		return nil, failed(l.Name(), ErrUnavailable)
	}
	if len(samples) == 0 {
		return nil, failed(l.Name(), ErrNoAudio)
	}

	start := time.Now()

	if l.cfg.VADEnabled {
		filtered := l.cfg.VAD.Filter(samples, whisper.SampleRate)
		if filtered == nil {
			slog.Debug("no speech detected in capture", "samples", len(samples))
			return &Result{Elapsed: time.Since(start)}, nil
		}
		slog.Debug("voice activity filter applied",
			"in", len(samples), "out", len(filtered))
		samples = filtered
	}

	ctx, err := l.model.NewContext()
	if err != nil {
		return nil, failed(l.Name(), fmt.Errorf("create context: %w", err))
	}

	autodetect := language == "" || language == "auto"
	if !autodetect {
		if err := ctx.SetLanguage(language); err != nil {
			slog.Warn("unsupported language, falling back to autodetect",
				"language", language, "error", err)
			autodetect = true
		}
	}
	if l.cfg.Threads > 0 {
		ctx.SetThreads(uint(l.cfg.Threads))
	}
	if l.cfg.BeamSize > 0 {
		ctx.SetBeamSize(l.cfg.BeamSize)
	}

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return nil, failed(l.Name(), fmt.Errorf("process audio: %w", err))
	}

	var sb strings.Builder
	for {
		seg, err := ctx.NextSegment()
		if err != nil {
			break
		}
		sb.WriteString(seg.Text)
		sb.WriteString(" ")
	}

	detected := language
	if autodetect {
		detected = ctx.DetectedLanguage()
	}

	return &Result{
		Text:     strings.TrimSpace(sb.String()),
		Language: detected,
		Elapsed:  time.Since(start),
	}, nil
}

// Close releases the loaded model.
func (l *Local) Close() error {
	if l.model != nil {
		l.model.Close()
		l.model = nil
	}
	return nil
}

// downloadModel fetches url into path via a sibling temp file, logging
// progress at 10% steps.
func downloadModel(url string, expectedSize int64, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http status: %d", resp.StatusCode)
	}
	if resp.ContentLength > 0 {
		expectedSize = resp.ContentLength
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // Clean up on failure
	}()

	var downloaded int64
	buf := make([]byte, 32*1024)
	lastLogged := 0

	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write file: %w", werr)
			}
			downloaded += int64(n)

			if expectedSize > 0 {
				pct := int(downloaded * 100 / expectedSize)
				if pct >= lastLogged+10 {
					lastLogged = pct - pct%10
					slog.Info("model download progress", "percent", lastLogged)
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}
