package storage

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/viperadnan-git/meeting-summary/internal/core/errdefs"
	"github.com/viperadnan-git/meeting-summary/internal/core/media"
	"github.com/viperadnan-git/meeting-summary/internal/core/util"
)

var textTypes = map[string]string{
	".txt": "text/plain; charset=utf-8",
	".srt": "text/plain; charset=utf-8",
	".md":  "text/markdown; charset=utf-8",
}

// Store lays artifacts out on the local filesystem. Derived files live flat in
// the output directory; uploads go to their own directory under random names.
type Store struct {
	outputDir string
	uploadDir string
}

func New(outputDir, uploadDir string) (*Store, error) {
	out, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}
	if uploadDir == "" {
		uploadDir = filepath.Join(out, "uploads")
	}
	up, err := filepath.Abs(uploadDir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	for _, dir := range []string{out, up} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Store{outputDir: out, uploadDir: up}, nil
}

func (s *Store) OutputDir() string { return s.outputDir }
func (s *Store) UploadDir() string { return s.uploadDir }

// SaveUpload writes r to a fresh file in the upload directory, keeping the
// extension of filename. Extensions outside allowed are rejected.
func (s *Store) SaveUpload(filename string, r io.Reader, allowed []string) (string, error) {
	ext := media.Ext(filepath.Base(filename))
	if len(allowed) > 0 && !slices.Contains(allowed, ext) {
		return "", errdefs.Validation("Unsupported extension: %s", ext)
	}

	dest := filepath.Join(s.uploadDir, util.NewHexID()+ext)
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("write upload: %w", err)
	}

	log.Debug().Str("path", dest).Int64("bytes", n).Str("filename", filename).Msg("upload saved")
	return dest, nil
}

// ResolveAudio finds the audio file called id in the output directory or,
// failing that, in the upload directory.
func (s *Store) ResolveAudio(id string) (string, error) {
	if id == "" || id == "." || id == ".." || id != filepath.Base(id) || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("audio %q: %w", id, errdefs.ErrNotFound)
	}

	var found string
	for _, dir := range []string{s.outputDir, s.uploadDir} {
		candidate := filepath.Join(dir, id)
		if filepath.Dir(candidate) != dir {
			continue
		}
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			found = candidate
			break
		}
	}
	if found == "" {
		return "", fmt.Errorf("audio %q: %w", id, errdefs.ErrNotFound)
	}
	if !media.IsAudio(found) {
		return "", errdefs.Validation("Unsupported audio extension")
	}
	return found, nil
}

// Artifact maps an audio id to a derived file, <stem><suffix>, in the output
// directory. Any lookup failure is reported as ErrNotFound.
func (s *Store) Artifact(audioID, suffix string) (string, error) {
	audio, err := s.ResolveAudio(audioID)
	if err != nil {
		return "", fmt.Errorf("audio %q: %w", audioID, errdefs.ErrNotFound)
	}
	path := filepath.Join(s.outputDir, media.Stem(audio)+suffix)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), errdefs.ErrNotFound)
	}
	return path, nil
}

// Has reports whether the artifact for audioID exists.
func (s *Store) Has(audioID, suffix string) bool {
	_, err := s.Artifact(audioID, suffix)
	return err == nil
}

// Open returns the file at path with its metadata. The caller closes it.
func (s *Store) Open(path string) (*os.File, FileMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, FileMetadata{}, fmt.Errorf("open %s: %w", filepath.Base(path), errdefs.ErrNotFound)
		}
		return nil, FileMetadata{}, fmt.Errorf("open file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, FileMetadata{}, fmt.Errorf("stat file: %w", err)
	}

	return f, FileMetadata{
		Name:        stat.Name(),
		Size:        stat.Size(),
		ContentType: contentType(path),
		ModTime:     stat.ModTime(),
	}, nil
}

// Remove deletes an uploaded file. Paths outside the upload directory are
// refused.
func (s *Store) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if filepath.Dir(abs) != s.uploadDir {
		return fmt.Errorf("refusing to remove %s outside upload dir", path)
	}
	return os.Remove(abs)
}

func (s *Store) DiskUsage() (DiskStats, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(s.outputDir, &stat); err != nil {
		return DiskStats{}, err
	}

	total := int64(stat.Blocks) * int64(stat.Bsize)
	available := int64(stat.Bavail) * int64(stat.Bsize)

	return DiskStats{
		Total:     total,
		Used:      total - available,
		Available: available,
	}, nil
}

func contentType(path string) string {
	ext := media.Ext(path)
	if ct, ok := textTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	if media.IsAudio(path) {
		return "audio/wav"
	}
	return "application/octet-stream"
}
