package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/viperadnan-git/meeting-summary/internal/core/errdefs"
	"github.com/viperadnan-git/meeting-summary/internal/core/process"
)

// DefaultSampleRate is the rate whisper models expect.
const DefaultSampleRate = 16000

// VideoExtensions lists the containers accepted for audio extraction.
var VideoExtensions = []string{
	".mp4", ".mov", ".mkv", ".avi", ".webm", ".m4v", ".flv", ".3gp",
	".ts", ".vob", ".wmv", ".mpeg", ".mpg", ".m2ts", ".ogv",
}

// AudioExtensions lists the formats accepted by the transcription stage.
var AudioExtensions = []string{
	".wav", ".mp3", ".aac", ".ogg", ".flac", ".m4a", ".wma", ".webm", ".opus",
}

// Ext returns the lowercased extension of path, including the dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func IsVideo(path string) bool { return slices.Contains(VideoExtensions, Ext(path)) }
func IsAudio(path string) bool { return slices.Contains(AudioExtensions, Ext(path)) }

// Stem is the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// RequireExt fails with a ValidationError when path's extension is not in allowed.
func RequireExt(path string, allowed []string, kind string) error {
	ext := Ext(path)
	if !slices.Contains(allowed, ext) {
		return errdefs.Validation("Unsupported %s extension: %s", kind, ext)
	}
	return nil
}

// Stager turns input media into mono WAV files with ffmpeg. Outputs are cached
// by file name: an existing <stem>.wav in the output directory is trusted as-is.
type Stager struct {
	ffmpeg      string
	runner      process.Runner
	defaultRate int
}

func NewStager(ffmpeg string, runner process.Runner, defaultRate int) *Stager {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if defaultRate <= 0 {
		defaultRate = DefaultSampleRate
	}
	return &Stager{ffmpeg: ffmpeg, runner: runner, defaultRate: defaultRate}
}

// Stage extracts the audio track of a video into outputDir/<stem>.wav.
func (s *Stager) Stage(ctx context.Context, inputPath, outputDir string, sampleRate int) (string, error) {
	if err := RequireExt(inputPath, VideoExtensions, "video"); err != nil {
		return "", err
	}
	return s.convert(ctx, inputPath, outputDir, sampleRate, true)
}

// ConvertToWAV re-encodes an audio file into a mono WAV. WAV input is returned
// unchanged.
func (s *Stager) ConvertToWAV(ctx context.Context, audioPath, outputDir string, sampleRate int) (string, error) {
	if err := RequireExt(audioPath, AudioExtensions, "audio"); err != nil {
		return "", err
	}
	if Ext(audioPath) == ".wav" {
		return audioPath, nil
	}
	return s.convert(ctx, audioPath, outputDir, sampleRate, false)
}

func (s *Stager) convert(ctx context.Context, inputPath, outputDir string, sampleRate int, dropVideo bool) (string, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return "", errdefs.Validation("Input not found: %s", inputPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	out := filepath.Join(outputDir, Stem(inputPath)+".wav")
	if _, err := os.Stat(out); err == nil {
		log.Info().Str("path", out).Msg("reusing existing audio")
		return out, nil
	}

	if sampleRate <= 0 {
		sampleRate = s.defaultRate
	}
	args := []string{"-y", "-i", inputPath, "-ar", strconv.Itoa(sampleRate), "-ac", "1"}
	if dropVideo {
		args = append(args, "-vn")
	}
	args = append(args, out)

	log.Info().Str("input", inputPath).Int("sample_rate", sampleRate).Msg("extracting audio")
	if _, err := s.runner.Run(ctx, s.ffmpeg, args...); err != nil {
		return "", err
	}
	if _, err := os.Stat(out); err != nil {
		return "", &errdefs.ExternalToolError{
			Command: s.ffmpeg,
			Args:    args,
			Stderr:  "output file missing after conversion",
		}
	}

	log.Info().Str("path", out).Msg("audio ready")
	return out, nil
}
