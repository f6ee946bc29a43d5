package transcriber

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-audio/wav"
)

func TestNewAPIValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     APIConfig
		wantErr bool
	}{
		{"openai ok", APIConfig{Type: "openai", APIKey: "k"}, false},
		{"default type", APIConfig{APIKey: "k"}, false},
		{"missing key", APIConfig{Type: "openai"}, true},
		{"azure ok", APIConfig{Type: "azure", APIKey: "k", APIURL: "https://r.openai.azure.com", APIVersion: "2024-10-21"}, false},
		{"azure missing endpoint", APIConfig{Type: "azure", APIKey: "k", APIVersion: "2024-10-21"}, true},
		{"azure missing version", APIConfig{Type: "azure", APIKey: "k", APIURL: "https://r.openai.azure.com"}, true},
		{"unknown type", APIConfig{Type: "groq", APIKey: "k"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAPI(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewAPI() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAPITranscribeOpenAI(t *testing.T) {
	var gotAuth, gotModel, gotLanguage, gotFormat string
	var gotFile []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")
		gotFormat = r.FormValue("response_format")
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		buf := make([]byte, 4)
		f.Read(buf)
		gotFile = buf
		json.NewEncoder(w).Encode(map[string]string{"text": " hello world \n", "language": "en"})
	}))
	defer srv.Close()

	api, err := NewAPI(APIConfig{Type: "openai", APIKey: "secret", APIURL: srv.URL, Model: "whisper-1"})
	if err != nil {
		t.Fatal(err)
	}

	res, err := api.Transcribe(make([]float32, 16000), "en")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if res.Text != "hello world" {
		t.Fatalf("Text = %q, want trimmed %q", res.Text, "hello world")
	}
	if res.Language != "en" {
		t.Fatalf("Language = %q, want en", res.Language)
	}
	if res.Elapsed <= 0 {
		t.Fatal("Elapsed not recorded")
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotModel != "whisper-1" || gotLanguage != "en" || gotFormat != "verbose_json" {
		t.Fatalf("form fields = %q %q %q", gotModel, gotLanguage, gotFormat)
	}
	if string(gotFile) != "RIFF" {
		t.Fatalf("uploaded file does not start with RIFF header: %q", gotFile)
	}
}

func TestAPITranscribeAzure(t *testing.T) {
	var gotPath, gotQuery, gotKey, gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("api-key")
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]string{"text": "ok"})
	}))
	defer srv.Close()

	api, err := NewAPI(APIConfig{
		Type:       "azure",
		APIKey:     "azkey",
		APIURL:     srv.URL + "/",
		Model:      "my-whisper",
		APIVersion: "2024-10-21",
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := api.Transcribe(make([]float32, 16000), "auto"); err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if gotPath != "/openai/deployments/my-whisper/audio/transcriptions" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotQuery != "api-version=2024-10-21" {
		t.Fatalf("query = %q", gotQuery)
	}
	if gotKey != "azkey" {
		t.Fatalf("api-key = %q", gotKey)
	}
	if gotAuth != "" {
		t.Fatalf("unexpected Authorization header %q", gotAuth)
	}
}

func TestAPITranscribeOmitsAutoLanguage(t *testing.T) {
	var hasLanguage bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(32 << 20)
		_, hasLanguage = r.MultipartForm.Value["language"]
		json.NewEncoder(w).Encode(map[string]string{"text": "ok"})
	}))
	defer srv.Close()

	api, err := NewAPI(APIConfig{APIKey: "k", APIURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := api.Transcribe(make([]float32, 100), "auto"); err != nil {
		t.Fatal(err)
	}
	if hasLanguage {
		t.Fatal("language field sent for auto-detect")
	}
}

func TestAPITranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	api, err := NewAPI(APIConfig{APIKey: "k", APIURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	_, err = api.Transcribe(make([]float32, 100), "")
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	var terr *Error
	if !errors.As(err, &terr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if terr.Backend != "openai api" {
		t.Fatalf("Backend = %q", terr.Backend)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error %q does not mention status", err)
	}
}

func TestAPITranscribeEmptyAudio(t *testing.T) {
	api, err := NewAPI(APIConfig{APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = api.Transcribe(nil, "")
	if !errors.Is(err, ErrNoAudio) {
		t.Fatalf("error = %v, want ErrNoAudio", err)
	}
}

func TestWriteTempWAV(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1.5, -1.5} // last two clamp
	path, err := writeTempWAV(samples, 16000)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode wav: %v", err)
	}
	if dec.SampleRate != 16000 || dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Fatalf("format = %d Hz %d ch %d bit", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(samples))
	}
	if buf.Data[1] != 16383 {
		t.Fatalf("sample 1 = %d, want 16383", buf.Data[1])
	}
	if buf.Data[3] != 32767 {
		t.Fatalf("clamped sample = %d, want 32767", buf.Data[3])
	}
	if buf.Data[4] != -32767 {
		t.Fatalf("clamped sample = %d, want -32767", buf.Data[4])
	}
}
