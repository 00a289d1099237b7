package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/viperadnan-git/meeting-summary/internal/core/errdefs"
	"github.com/viperadnan-git/meeting-summary/internal/core/fileserver"
	"github.com/viperadnan-git/meeting-summary/internal/core/pipeline"
	"github.com/viperadnan-git/meeting-summary/internal/core/storage"
	"github.com/viperadnan-git/meeting-summary/internal/core/transcribe"
	"github.com/viperadnan-git/meeting-summary/internal/server/api/response"
)

type artifactKind struct {
	suffix   string
	notFound string
}

// Artifacts derived from an audio id, keyed by the download route segment.
var artifactKinds = map[string]artifactKind{
	"transcript": {suffix: transcribe.TranscriptSuffix, notFound: "Transcript not found"},
	"srt":        {suffix: transcribe.CaptionSuffix, notFound: "SRT not found"},
	"summary":    {suffix: pipeline.SummarySuffix, notFound: "Summary not found"},
	"docx":       {suffix: pipeline.DocxSuffix, notFound: "Document not found"},
}

type DownloadsHandler struct {
	store *storage.Store
}

func NewDownloadsHandler(store *storage.Store) *DownloadsHandler {
	return &DownloadsHandler{store: store}
}

func (h *DownloadsHandler) Audio(c echo.Context) error {
	path, err := h.store.ResolveAudio(c.Param("id"))
	if errors.Is(err, errdefs.ErrNotFound) {
		return response.Error(c, http.StatusNotFound, "Audio file not found")
	}
	if err != nil {
		return response.Err(c, err, "")
	}
	return h.serve(c, path, "Audio file not found")
}

func (h *DownloadsHandler) Artifact(c echo.Context) error {
	kind, ok := artifactKinds[c.Param("kind")]
	if !ok {
		return response.Error(c, http.StatusNotFound, "Unknown artifact")
	}
	path, err := h.store.Artifact(c.Param("id"), kind.suffix)
	if err != nil {
		return response.Error(c, http.StatusNotFound, kind.notFound)
	}
	return h.serve(c, path, kind.notFound)
}

func (h *DownloadsHandler) serve(c echo.Context, path, notFound string) error {
	err := fileserver.ServeAttachment(c.Response(), c.Request(), h.store, path)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errdefs.ErrNotFound):
		return response.Error(c, http.StatusNotFound, notFound)
	default:
		log.Error().Err(err).Str("path", path).Msg("download failed")
		return response.Error(c, http.StatusInternalServerError, "Download failed")
	}
}
