package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/adamdelezuch89/whisper-ctrl/audio"
	"github.com/adamdelezuch89/whisper-ctrl/config"
	"github.com/adamdelezuch89/whisper-ctrl/history"
	"github.com/adamdelezuch89/whisper-ctrl/hotkey"
	"github.com/adamdelezuch89/whisper-ctrl/injector"
	"github.com/adamdelezuch89/whisper-ctrl/internal/app"
	"github.com/adamdelezuch89/whisper-ctrl/transcriber"
	"github.com/adamdelezuch89/whisper-ctrl/ui"
)

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	})))

	cfg, err := config.Load("")
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	slog.Info("configuration loaded", "path", cfg.Path())

	backend, err := buildBackend(cfg)
	if err != nil {
		slog.Error("initialize transcription backend", "error", err)
		os.Exit(1)
	}
	slog.Info("transcription backend ready", "backend", backend.Name())

	notifier := ui.NewNotifier(cfg.GetBool("ui.show_notifications", true))
	recorder := audio.NewRecorder(cfg.GetInt("audio.sample_rate", 16000))
	inj := injector.New()
	slog.Info("injection method selected", "method", inj.Name())

	store := openHistory()
	if store != nil {
		defer store.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tray := ui.NewTray(true, cancel)
	defer tray.Close()

	controller := app.New(app.Config{
		Recorder: recorder,
		Backend:  backend,
		Injector: inj,
		Notifier: notifier,
		History:  historian(store),
		Language: cfg.Language(),
		OnState:  tray.StateChanged,
	})

	detector := hotkey.New(
		hotkeyKeys(cfg),
		time.Duration(cfg.GetFloat("hotkey.threshold", 0.4)*float64(time.Second)),
		controller.Toggle,
		controller.RequestCancel,
	)
	if err := detector.Start(); err != nil {
		slog.Error("start hotkey listener", "error", err)
		os.Exit(1)
	}
	defer detector.Stop()

	if cfg.GetBool("first_run", false) {
		notifier.Notify("Dictation ready",
			"Double-press the hotkey to start dictating, press Esc to cancel")
		cfg.Set("first_run", false)
		if err := cfg.Save(); err != nil {
			slog.Warn("persist first run flag", "error", err)
		}
	}

	go controller.Run(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig)
	case <-ctx.Done():
		slog.Info("shutting down", "reason", "quit from tray")
	}
	cancel()

	if closer, ok := backend.(interface{ Close() error }); ok {
		closer.Close()
	}
}

// buildBackend constructs the transcriber named by the configuration.
// Errors here are fatal: a dictation tool with no working backend has
// nothing to offer.
func buildBackend(cfg *config.Config) (transcriber.Transcriber, error) {
	switch name := cfg.GetString("backend", "local"); name {
	case "local":
		return transcriber.NewLocal(transcriber.LocalConfig{
			ModelSize:   cfg.GetString("local.model_size", "large-v3"),
			Device:      cfg.GetString("local.device", "cuda"),
			ComputeType: cfg.GetString("local.compute_type", "float16"),
			Threads:     cfg.GetInt("local.threads", 0),
			BeamSize:    cfg.GetInt("local.beam_size", 5),
			VADEnabled:  cfg.GetBool("audio.vad_enabled", true),
			VAD:         buildVAD(cfg),
		})
	case "api":
		return transcriber.NewAPI(transcriber.APIConfig{
			Type:       cfg.GetString("api.type", "openai"),
			APIKey:     cfg.GetString("api.api_key", ""),
			APIURL:     cfg.GetString("api.api_url", ""),
			Model:      cfg.GetString("api.model", "whisper-1"),
			APIVersion: cfg.GetString("api.api_version", "2024-10-21"),
			SampleRate: cfg.GetInt("audio.sample_rate", 16000),
		})
	default:
		return nil, &unknownBackendError{name: name}
	}
}

type unknownBackendError struct{ name string }

func (e *unknownBackendError) Error() string {
	return "unknown backend \"" + e.name + "\", expected \"local\" or \"api\""
}

func buildVAD(cfg *config.Config) transcriber.VAD {
	// The configured threshold follows the 0 to 1 probability convention
	// of common VAD implementations. The energy detector works on RMS
	// amplitude, so scale it down.
	return transcriber.VAD{
		Threshold:  float32(cfg.GetFloat("audio.vad_parameters.threshold", 0.5) * 0.04),
		MinSpeech:  time.Duration(cfg.GetInt("audio.vad_parameters.min_speech_duration_ms", 250)) * time.Millisecond,
		MinSilence: time.Duration(cfg.GetInt("audio.vad_parameters.min_silence_duration_ms", 700)) * time.Millisecond,
	}
}

// hotkeyKeys maps the configured hotkey type onto trigger key names.
func hotkeyKeys(cfg *config.Config) []string {
	switch cfg.GetString("hotkey.type", "double_ctrl") {
	case "double_ctrl":
		return []string{"ctrl"}
	case "double_alt":
		return []string{"alt"}
	case "custom":
		return cfg.GetStrings("hotkey.keys")
	default:
		return []string{"ctrl"}
	}
}

// openHistory opens the dictation history store. History is optional; any
// failure leaves it disabled.
func openHistory() *history.Store {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Warn("history disabled", "error", err)
		return nil
	}
	store, err := history.Open(filepath.Join(home, ".whisper-ctrl", "history"))
	if err != nil {
		slog.Warn("history disabled", "error", err)
		return nil
	}
	return store
}

// historian adapts a possibly-nil store to the controller's interface. A
// typed nil inside a non-nil interface would dodge the controller's nil
// check.
func historian(store *history.Store) app.Historian {
	if store == nil {
		return nil
	}
	return store
}
