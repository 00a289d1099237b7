package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "MS_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Paths     PathsConfig     `koanf:"paths"`
	Media     MediaConfig     `koanf:"media"`
	Whisper   WhisperConfig   `koanf:"whisper"`
	Summarize SummarizeConfig `koanf:"summarize"`
	Watch     WatchConfig     `koanf:"watch"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	MaxUpload         string        `koanf:"max_upload"`
	EventWakeInterval time.Duration `koanf:"event_wake_interval"`
}

type PathsConfig struct {
	Output  string `koanf:"output"`
	Uploads string `koanf:"uploads"`
}

type MediaConfig struct {
	FFmpegBinary string `koanf:"ffmpeg_binary"`
	SampleRate   int    `koanf:"sample_rate"`
}

type WhisperConfig struct {
	Binary         string `koanf:"binary"`
	ModelDir       string `koanf:"model_dir"`
	Model          string `koanf:"model"`
	Language       string `koanf:"language"`
	Threads        int    `koanf:"threads"`
	Captions       bool   `koanf:"captions"`
	SimpleTime     bool   `koanf:"simple_time"`
	AutoConvertWAV bool   `koanf:"auto_convert_wav"`
}

type SummarizeConfig struct {
	Backend           string       `koanf:"backend"`
	Model             string       `koanf:"model"`
	MaxChunkChars     int          `koanf:"max_chunk_chars"`
	ExtraInstructions string       `koanf:"extra_instructions"`
	Docx              bool         `koanf:"docx"`
	Ollama            OllamaConfig `koanf:"ollama"`
	Gemini            GeminiConfig `koanf:"gemini"`
}

type OllamaConfig struct {
	Host   string `koanf:"host"`
	Manage bool   `koanf:"manage"`
	Binary string `koanf:"binary"`
}

type GeminiConfig struct {
	APIKey string `koanf:"api_key"`
}

type WatchConfig struct {
	MaxConcurrent int           `koanf:"max_concurrent"`
	SettleDelay   time.Duration `koanf:"settle_delay"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Load reads defaults, then the config file (TOML or YAML, by extension) if
// provided, then MS_* environment variables.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// 1. Load defaults
	if err := loadDefaults(k); err != nil {
		return nil, err
	}

	// 2. Load config file if provided
	if configPath != "" {
		parser, err := parserFor(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(configPath), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", configPath, err)
		}
	}

	// 3. Load env vars: MS_SERVER_MAX_UPLOAD -> server.max_upload
	// Only non-empty values are applied so they don't blank out the file.
	keys := envKeys(k)
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		if value == "" {
			return "", nil
		}
		name := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if mapped, ok := keys[name]; ok {
			return mapped, value
		}
		return strings.ReplaceAll(name, "_", "."), value
	}), nil); err != nil {
		return nil, err
	}

	// 4. Handle top-level convenience env vars
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && k.String("summarize.gemini.api_key") == "" {
		_ = k.Set("summarize.gemini.api_key", v)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if cfg.Paths.Uploads == "" {
		cfg.Paths.Uploads = filepath.Join(cfg.Paths.Output, "uploads")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if _, err := ParseSize(c.Server.MaxUpload); err != nil {
		return fmt.Errorf("server.max_upload: %w", err)
	}
	if c.Paths.Output == "" {
		return fmt.Errorf("paths.output must not be empty")
	}
	if c.Media.SampleRate <= 0 {
		return fmt.Errorf("media.sample_rate must be positive")
	}
	switch c.Logging.Format {
	case "pretty", "json":
	default:
		return fmt.Errorf("logging.format must be pretty or json, got %q", c.Logging.Format)
	}
	return nil
}

// MaxUploadBytes is server.max_upload in bytes.
func (c *Config) MaxUploadBytes() int64 {
	n, _ := ParseSize(c.Server.MaxUpload)
	return n
}

// SetOutput points the output directory elsewhere. An uploads directory that
// was derived from the old output directory moves with it.
func (c *Config) SetOutput(dir string) {
	if c.Paths.Uploads == filepath.Join(c.Paths.Output, "uploads") {
		c.Paths.Uploads = filepath.Join(dir, "uploads")
	}
	c.Paths.Output = dir
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format %q (want .toml, .yaml or .yml)", filepath.Ext(path))
	}
}

// envKeys maps the underscore form of every known key back to its dotted
// path, so multi-word keys like server.max_upload survive the env mapping.
func envKeys(k *koanf.Koanf) map[string]string {
	keys := make(map[string]string)
	for _, key := range k.Keys() {
		keys[strings.ReplaceAll(key, ".", "_")] = key
	}
	return keys
}
