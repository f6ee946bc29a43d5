package transcriber

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultOpenAIURL = "https://api.openai.com/v1/audio/transcriptions"

// APIConfig holds configuration for the hosted transcription backend.
type APIConfig struct {
	Type       string // "openai" or "azure"
	APIKey     string
	APIURL     string // OpenAI-compatible endpoint, or the Azure resource endpoint
	Model      string // Model name, or the Azure deployment name
	APIVersion string // Azure only
	SampleRate int
}

// API transcribes audio through an OpenAI-compatible or Azure OpenAI
// transcription endpoint.
type API struct {
	cfg  APIConfig
	url  string
	http *http.Client
}

// NewAPI validates credentials and builds the request endpoint. Validation
// happens here so a misconfigured backend fails at startup rather than on
// the first dictation.
func NewAPI(cfg APIConfig) (*API, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api_key is required for the %s backend", cfg.Type)
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}

	var url string
	switch cfg.Type {
	case "", "openai":
		cfg.Type = "openai"
		url = cfg.APIURL
		if url == "" {
			url = defaultOpenAIURL
		}
	case "azure":
		if cfg.APIURL == "" {
			return nil, fmt.Errorf("api_url is required for the azure backend")
		}
		if cfg.APIVersion == "" {
			return nil, fmt.Errorf("api_version is required for the azure backend")
		}
		url = fmt.Sprintf("%s/openai/deployments/%s/audio/transcriptions?api-version=%s",
			strings.TrimSuffix(cfg.APIURL, "/"), cfg.Model, cfg.APIVersion)
	default:
		return nil, fmt.Errorf("unknown api type: %s", cfg.Type)
	}

	return &API{
		cfg:  cfg,
		url:  url,
		http: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (a *API) Name() string    { return fmt.Sprintf("%s api", a.cfg.Type) }
func (a *API) Available() bool { return a.cfg.APIKey != "" }

// Transcribe serializes the capture to a temporary WAV file and uploads it.
// The temp file is removed before returning.
func (a *API) Transcribe(samples []float32, language string) (*Result, error) {
	if !a.Available() {
		return nil, failed(a.Name(), ErrUnavailable)
	}
	if len(samples) == 0 {
		return nil, failed(a.Name(), ErrNoAudio)
	}

	start := time.Now()

	wavPath, err := writeTempWAV(samples, a.cfg.SampleRate)
	if err != nil {
		return nil, failed(a.Name(), err)
	}
	defer func() {
		if err := os.Remove(wavPath); err != nil {
			slog.Warn("remove temp wav", "path", wavPath, "error", err)
		}
	}()

	req, err := a.buildRequest(wavPath, language)
	if err != nil {
		return nil, failed(a.Name(), err)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, failed(a.Name(), fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failed(a.Name(), fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, failed(a.Name(), fmt.Errorf("api error %d: %s", resp.StatusCode, string(body)))
	}

	var apiResp struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, failed(a.Name(), fmt.Errorf("parse response: %w", err))
	}

	detected := apiResp.Language
	if detected == "" && language != "" && language != "auto" {
		detected = language
	}

	return &Result{
		Text:     strings.TrimSpace(apiResp.Text),
		Language: detected,
		Elapsed:  time.Since(start),
	}, nil
}

func (a *API) buildRequest(wavPath, language string) (*http.Request, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}

	if err := writer.WriteField("model", a.cfg.Model); err != nil {
		return nil, fmt.Errorf("write model field: %w", err)
	}

	// The API does not accept "auto"; omitting the field means auto-detect.
	if language != "" && language != "auto" {
		if err := writer.WriteField("language", language); err != nil {
			return nil, fmt.Errorf("write language field: %w", err)
		}
	}

	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, fmt.Errorf("write response_format field: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, a.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	if a.cfg.Type == "azure" {
		req.Header.Set("api-key", a.cfg.APIKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}
	return req, nil
}
