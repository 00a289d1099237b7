package handlers

import (
	"github.com/viperadnan-git/meeting-summary/internal/core/pipeline"
	"github.com/viperadnan-git/meeting-summary/internal/core/storage"
	"github.com/viperadnan-git/meeting-summary/internal/core/transcribe"
)

const downloadBase = "/api/download/"

// PipelineResult is what clients see for a finished pipeline run. Download
// URLs for artifacts that were not produced are null.
type PipelineResult struct {
	AudioID               string  `json:"audio_id" doc:"Staged audio reference"`
	DownloadURL           string  `json:"download_url" doc:"Audio download URL"`
	DownloadTranscriptURL *string `json:"download_transcript_url" doc:"Transcript download URL"`
	DownloadSRTURL        *string `json:"download_srt_url" doc:"SRT caption download URL"`
	DownloadSummaryURL    *string `json:"download_summary_url" doc:"Markdown summary download URL"`
	DownloadDocxURL       *string `json:"download_docx_url" doc:"Word summary download URL, when docx export is enabled"`
	Transcript            string  `json:"transcript"`
	Summary               string  `json:"summary"`
}

func downloadURL(kind, audioID string) string {
	return downloadBase + kind + "/" + audioID
}

// artifactURL links to kind only if the artifact exists on disk.
func artifactURL(store *storage.Store, kind, audioID, suffix string) *string {
	if !store.Has(audioID, suffix) {
		return nil
	}
	u := downloadURL(kind, audioID)
	return &u
}

// NewPipelineView renders pipeline results for API clients. It is used as the
// job runner's view so asynchronous results match the synchronous endpoint.
func NewPipelineView(store *storage.Store) func(*pipeline.Result) any {
	return func(res *pipeline.Result) any {
		return newPipelineResult(store, res)
	}
}

func newPipelineResult(store *storage.Store, res *pipeline.Result) *PipelineResult {
	id := res.AudioID()
	return &PipelineResult{
		AudioID:               id,
		DownloadURL:           downloadURL("audio", id),
		DownloadTranscriptURL: artifactURL(store, "transcript", id, transcribe.TranscriptSuffix),
		DownloadSRTURL:        artifactURL(store, "srt", id, transcribe.CaptionSuffix),
		DownloadSummaryURL:    artifactURL(store, "summary", id, pipeline.SummarySuffix),
		DownloadDocxURL:       artifactURL(store, "docx", id, pipeline.DocxSuffix),
		Transcript:            res.Transcript,
		Summary:               res.Summary,
	}
}

// fields flattens the result next to other keys, as the result endpoint does.
func (r *PipelineResult) fields(into map[string]any) {
	into["audio_id"] = r.AudioID
	into["download_url"] = r.DownloadURL
	into["download_transcript_url"] = r.DownloadTranscriptURL
	into["download_srt_url"] = r.DownloadSRTURL
	into["download_summary_url"] = r.DownloadSummaryURL
	into["download_docx_url"] = r.DownloadDocxURL
	into["transcript"] = r.Transcript
	into["summary"] = r.Summary
}
