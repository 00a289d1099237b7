package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/knadh/koanf/v2"
)

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"server.host":                "0.0.0.0",
		"server.port":                8000,
		"server.max_upload":          "2G",
		"server.event_wake_interval": "1s",

		"paths.output":  "output",
		"paths.uploads": "",

		"media.ffmpeg_binary": "ffmpeg",
		"media.sample_rate":   16000,

		"whisper.binary":           "whisper-cli",
		"whisper.model_dir":        "models",
		"whisper.model":            "turbo",
		"whisper.language":         "",
		"whisper.threads":          0,
		"whisper.captions":         true,
		"whisper.simple_time":      false,
		"whisper.auto_convert_wav": false,

		"summarize.backend":            "ollama",
		"summarize.model":              "qwen3:30b-a3b",
		"summarize.max_chunk_chars":    0,
		"summarize.extra_instructions": "",
		"summarize.docx":               false,
		"summarize.ollama.host":        "",
		"summarize.ollama.manage":      false,
		"summarize.ollama.binary":      "ollama",
		"summarize.gemini.api_key":     "",

		"watch.max_concurrent": 2,
		"watch.settle_delay":   "2s",

		"logging.level":  "info",
		"logging.format": "pretty",
	}

	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return err
		}
	}
	return nil
}

var sizeUnits = map[string]int64{
	"":  1,
	"K": 1 << 10,
	"M": 1 << 20,
	"G": 1 << 30,
	"T": 1 << 40,
}

// ParseSize parses sizes like "512", "10M", "2G" or "1.5GB" into bytes.
// Units are binary multiples.
func ParseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimSuffix(strings.TrimSuffix(s, "B"), "I")
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	unit := ""
	if last := s[len(s)-1:]; last >= "A" && last <= "Z" {
		unit, s = last, s[:len(s)-1]
	}
	mult, ok := sizeUnits[unit]
	if !ok {
		return 0, fmt.Errorf("unknown size unit %q", unit)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return int64(n * float64(mult)), nil
}
