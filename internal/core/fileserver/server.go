package fileserver

import (
	"mime"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/viperadnan-git/meeting-summary/internal/core/storage"
)

type Opener interface {
	Open(path string) (*os.File, storage.FileMetadata, error)
}

// ServeAttachment streams the file at path as a download. Nothing is written
// to w when opening fails, so the caller can still render its own error.
func ServeAttachment(w http.ResponseWriter, r *http.Request, files Opener, path string) error {
	f, meta, err := files.Open(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("file not available")
		return err
	}
	defer func() { _ = f.Close() }()

	log.Debug().Str("path", path).Int64("size", meta.Size).Msg("serving file")

	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": meta.Name}))

	// ServeContent handles Range requests automatically
	http.ServeContent(w, r, meta.Name, meta.ModTime, f)
	return nil
}
