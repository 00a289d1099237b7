package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/viperadnan-git/meeting-summary/internal/core/media"
	"github.com/viperadnan-git/meeting-summary/internal/core/transcribe"
	"github.com/viperadnan-git/meeting-summary/internal/server/api/response"
)

// TranscribeHandler is a plain echo handler: the request is either a
// multipart upload or a reference to staged audio, as JSON or form fields.
type TranscribeHandler struct {
	deps Deps
}

func NewTranscribeHandler(deps Deps) *TranscribeHandler {
	return &TranscribeHandler{deps: deps}
}

type transcribeRequest struct {
	AudioID      string `json:"audio_id" form:"audio_id"`
	WhisperModel string `json:"whisper_model" form:"whisper_model"`
	Language     string `json:"language" form:"language"`
}

type TranscribeResponse struct {
	Transcript            string  `json:"transcript"`
	AudioID               string  `json:"audio_id"`
	DownloadTranscriptURL *string `json:"download_transcript_url"`
	DownloadSRTURL        *string `json:"download_srt_url"`
}

func (h *TranscribeHandler) Transcribe(c echo.Context) error {
	var req transcribeRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "Invalid request body")
	}

	store := h.deps.Store
	var audio string
	if fh, err := c.FormFile("audio"); err == nil && fh.Filename != "" {
		f, err := fh.Open()
		if err != nil {
			return response.Error(c, http.StatusBadRequest, "Unreadable upload")
		}
		audio, err = store.SaveUpload(filepath.Base(fh.Filename), f, media.AudioExtensions)
		_ = f.Close()
		if err != nil {
			return response.Err(c, err, "Upload failed: ")
		}
	} else {
		if req.AudioID == "" {
			return response.Error(c, http.StatusBadRequest, "Provide audio file or audio_id")
		}
		audio, err = store.ResolveAudio(req.AudioID)
		if err != nil {
			return response.Err(c, err, "")
		}
	}

	d := h.deps.Defaults
	res, err := h.deps.Transcriber.Transcribe(c.Request().Context(), transcribe.Request{
		AudioPath: audio,
		OutputDir: store.OutputDir(),
		Model:     firstNonEmpty(req.WhisperModel, d.WhisperModel),
		Language:  firstNonEmpty(req.Language, d.Language),
	})
	if err != nil {
		return response.Err(c, err, "Transcription failed: ")
	}

	id := filepath.Base(audio)
	return response.JSON(c, http.StatusOK, TranscribeResponse{
		Transcript:            res.Text,
		AudioID:               id,
		DownloadTranscriptURL: artifactURL(store, "transcript", id, transcribe.TranscriptSuffix),
		DownloadSRTURL:        artifactURL(store, "srt", id, transcribe.CaptionSuffix),
	})
}
