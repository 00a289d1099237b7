package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Server.EventWakeInterval != time.Second {
		t.Errorf("event_wake_interval = %v", cfg.Server.EventWakeInterval)
	}
	if cfg.MaxUploadBytes() != 2<<30 {
		t.Errorf("max upload = %d", cfg.MaxUploadBytes())
	}
	if cfg.Paths.Uploads != filepath.Join("output", "uploads") {
		t.Errorf("uploads = %q", cfg.Paths.Uploads)
	}
	if cfg.Whisper.Model != "turbo" || !cfg.Whisper.Captions {
		t.Errorf("whisper = %+v", cfg.Whisper)
	}
	if cfg.Summarize.Model != "qwen3:30b-a3b" || cfg.Summarize.MaxChunkChars != 0 {
		t.Errorf("summarize = %+v", cfg.Summarize)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "toml",
			file: "config.toml",
			content: `
[server]
port = 9000
max_upload = "512M"

[summarize]
model = "llama3"

[summarize.ollama]
host = "http://gpu:11434"
`,
		},
		{
			name: "yaml",
			file: "config.yaml",
			content: `
server:
  port: 9000
  max_upload: 512M
summarize:
  model: llama3
  ollama:
    host: http://gpu:11434
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			t.Setenv("MS_SUMMARIZE_MAX_CHUNK_CHARS", "1000")
			t.Setenv("MS_WHISPER_LANGUAGE", "zh")
			t.Setenv("MS_LOGGING_LEVEL", "")

			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Server.Port != 9000 || cfg.MaxUploadBytes() != 512<<20 {
				t.Errorf("server = %+v", cfg.Server)
			}
			if cfg.Summarize.Model != "llama3" || cfg.Summarize.Ollama.Host != "http://gpu:11434" {
				t.Errorf("summarize = %+v", cfg.Summarize)
			}
			if cfg.Summarize.MaxChunkChars != 1000 {
				t.Errorf("max_chunk_chars = %d, want env override", cfg.Summarize.MaxChunkChars)
			}
			if cfg.Whisper.Language != "zh" {
				t.Errorf("language = %q", cfg.Whisper.Language)
			}
			if cfg.Logging.Level != "info" {
				t.Errorf("empty env should not override: level = %q", cfg.Logging.Level)
			}
		})
	}
}

func TestLoadGeminiKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "secret")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Summarize.Gemini.APIKey != "secret" {
		t.Fatalf("api key = %q", cfg.Summarize.Gemini.APIKey)
	}
}

func TestLoadRejects(t *testing.T) {
	dir := t.TempDir()

	ini := filepath.Join(dir, "config.ini")
	if err := os.WriteFile(ini, []byte("x=1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(ini); err == nil {
		t.Error("expected error for unsupported format")
	}

	t.Setenv("MS_LOGGING_FORMAT", "xml")
	if _, err := Load(""); err == nil {
		t.Error("expected error for bad logging format")
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "512", want: 512},
		{in: "10K", want: 10 << 10},
		{in: "2G", want: 2 << 30},
		{in: "2gb", want: 2 << 30},
		{in: "1.5M", want: 3 << 19},
		{in: "4GiB", want: 4 << 30},
		{in: "", wantErr: true},
		{in: "12X", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSize(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSetOutput(t *testing.T) {
	cfg := &Config{Paths: PathsConfig{Output: "out", Uploads: filepath.Join("out", "uploads")}}
	cfg.SetOutput("elsewhere")
	if cfg.Paths.Output != "elsewhere" || cfg.Paths.Uploads != filepath.Join("elsewhere", "uploads") {
		t.Fatalf("paths = %+v", cfg.Paths)
	}

	cfg = &Config{Paths: PathsConfig{Output: "out", Uploads: "/srv/incoming"}}
	cfg.SetOutput("elsewhere")
	if cfg.Paths.Uploads != "/srv/incoming" {
		t.Fatalf("explicit uploads dir moved: %q", cfg.Paths.Uploads)
	}
}
