// Package config handles application configuration.
//
// Settings live in a single JSON document. The document is kept as a nested
// map tree rather than a typed struct so that keys written by newer versions
// survive a round trip through an older one, and so the settings UI can
// address any value by a dotted path.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

const (
	appName        = "whisper-ctrl"
	configFileName = "config.json"
)

// Config is the application configuration document.
type Config struct {
	path string

	mu   sync.RWMutex
	data map[string]any
}

// Defaults returns the default configuration tree. A fresh copy is returned
// on every call; callers may mutate it freely.
func Defaults() map[string]any {
	return map[string]any{
		"backend": "local",
		"local": map[string]any{
			"model_size":   "large-v3",
			"compute_type": "float16",
			"device":       "cuda",
		},
		"api": map[string]any{
			"type":        "openai",
			"api_key":     "",
			"api_url":     "",
			"model":       "whisper-1",
			"api_version": "2024-10-21",
		},
		"hotkey": map[string]any{
			"type":      "double_ctrl",
			"keys":      []any{"ctrl"},
			"threshold": 0.4,
		},
		"audio": map[string]any{
			"sample_rate": 16000,
			"language":    "auto",
			"vad_enabled": true,
			"vad_parameters": map[string]any{
				"threshold":               0.5,
				"min_speech_duration_ms":  250,
				"min_silence_duration_ms": 700,
			},
		},
		"ui": map[string]any{
			"show_notifications":       true,
			"feedback_widget_offset_x": 2,
			"feedback_widget_offset_y": 2,
		},
		"first_run": true,
	}
}

// Load reads the configuration from path, or from the default per-user
// location when path is empty. A missing or unreadable file never fails
// startup: defaults are used and persisted instead.
func Load(path string) (*Config, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("get user config dir: %w", err)
		}
		path = filepath.Join(dir, appName, configFileName)
	}

	c := &Config{path: path, data: Defaults()}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("no config found, creating default", "path", path)
			return c, c.Save()
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var loaded map[string]any
	if err := json.Unmarshal(raw, &loaded); err != nil {
		slog.Warn("config file is malformed, falling back to defaults", "path", path, "error", err)
		return c, c.Save()
	}

	migrateLegacy(loaded)
	c.data = merge(Defaults(), loaded)
	return c, nil
}

// Save persists the configuration to disk.
func (c *Config) Save() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.data, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Path returns the location of the backing file.
func (c *Config) Path() string {
	return c.path
}

// Get returns the value at a dotted path such as "audio.vad_parameters.threshold".
// If any segment is absent, or an intermediate value is not a map, def is
// returned.
func (c *Config) Get(key string, def any) any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cur := any(c.data)
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return def
		}
		cur, ok = m[part]
		if !ok {
			return def
		}
	}
	return cur
}

// Set writes value at a dotted path, creating intermediate maps as needed.
// An intermediate segment holding a non-map value is replaced by a map.
func (c *Config) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	parts := strings.Split(key, ".")
	m := c.data
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// GetString returns the string at key, or def when absent or not a string.
func (c *Config) GetString(key, def string) string {
	if s, ok := c.Get(key, def).(string); ok {
		return s
	}
	return def
}

// GetBool returns the bool at key, or def when absent or not a bool.
func (c *Config) GetBool(key string, def bool) bool {
	if b, ok := c.Get(key, def).(bool); ok {
		return b
	}
	return def
}

// GetFloat returns the numeric value at key as a float64. JSON numbers load
// as float64, but values written through Set may be int.
func (c *Config) GetFloat(key string, def float64) float64 {
	switch v := c.Get(key, def).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// GetInt returns the numeric value at key truncated to int.
func (c *Config) GetInt(key string, def int) int {
	return int(c.GetFloat(key, float64(def)))
}

// GetStrings returns the value at key as a slice of strings. Non-string
// elements are skipped.
func (c *Config) GetStrings(key string) []string {
	raw, ok := c.Get(key, nil).([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Language returns the configured transcription language. Invalid codes are
// treated as "auto" so a typo in the settings file degrades to detection
// instead of failing every request.
func (c *Config) Language() string {
	code := c.GetString("audio.language", "auto")
	if code == "" || code == "auto" {
		return "auto"
	}
	if _, err := language.Parse(code); err != nil {
		slog.Warn("invalid language code, using auto-detect", "language", code)
		return "auto"
	}
	return code
}

// migrateLegacy rewrites configuration shapes from earlier releases in place.
// The old single-provider "openai" section becomes the current "api" section.
func migrateLegacy(loaded map[string]any) {
	old, ok := loaded["openai"].(map[string]any)
	if !ok {
		return
	}
	if _, exists := loaded["api"]; !exists {
		api := map[string]any{
			"type":        "openai",
			"api_key":     "",
			"api_url":     "",
			"model":       "whisper-1",
			"api_version": "2024-10-21",
		}
		if key, ok := old["api_key"].(string); ok {
			api["api_key"] = key
		}
		if model, ok := old["model"].(string); ok {
			api["model"] = model
		}
		loaded["api"] = api
		if loaded["backend"] == "openai" {
			loaded["backend"] = "api"
		}
		slog.Info("migrated legacy 'openai' config section to 'api'")
	}
	delete(loaded, "openai")
}

// merge deep-merges loaded onto base and returns base. Map values merge
// recursively; anything else from loaded replaces the default.
func merge(base, loaded map[string]any) map[string]any {
	for key, value := range loaded {
		if sub, ok := value.(map[string]any); ok {
			if baseSub, ok := base[key].(map[string]any); ok {
				base[key] = merge(baseSub, sub)
				continue
			}
		}
		base[key] = value
	}
	return base
}
