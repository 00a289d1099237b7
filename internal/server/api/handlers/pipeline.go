package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"
	"github.com/viperadnan-git/meeting-summary/internal/core/job"
	"github.com/viperadnan-git/meeting-summary/internal/core/media"
	"github.com/viperadnan-git/meeting-summary/internal/core/pipeline"
)

var stageFailures = []string{
	"Audio extraction failed: ",
	"Transcription failed: ",
	"Summary generation failed: ",
}

type PipelineHandler struct {
	deps Deps
}

func NewPipelineHandler(deps Deps) *PipelineHandler {
	return &PipelineHandler{deps: deps}
}

type UploadInput struct {
	RawBody multipart.Form
}

type StageAudioBody struct {
	AudioID     string `json:"audio_id" doc:"Staged audio reference"`
	DownloadURL string `json:"download_url" doc:"Audio download URL"`
}

type StageAudioOutput struct {
	Body StageAudioBody
}

type PipelineOutput struct {
	Body *PipelineResult
}

type StartBody struct {
	JobID string `json:"job_id" doc:"Job ID"`
}

type StartOutput struct {
	Body StartBody
}

type JobIDInput struct {
	JobID string `path:"job_id" doc:"Job ID"`
}

type EventsInput struct {
	JobID       string `path:"job_id" doc:"Job ID"`
	From        int    `query:"from" minimum:"0" doc:"Skip this many events"`
	LastEventID string `header:"Last-Event-ID" doc:"Resume after this event"`
}

type ResultOutput struct {
	Status int
	Body   map[string]any
}

// StageAudio extracts the audio track of an uploaded video.
func (h *PipelineHandler) StageAudio(ctx context.Context, input *UploadInput) (*StageAudioOutput, error) {
	store := h.deps.Store
	video, err := saveFormFile(store, &input.RawBody, "video", media.VideoExtensions, "Missing file field: video")
	if err != nil {
		return nil, err
	}
	defer discardUpload(store, video)

	audio, err := h.deps.Stager.Stage(ctx, video, store.OutputDir(), h.deps.Defaults.SampleRate)
	if err != nil {
		return nil, statusError(err, stageFailures[0])
	}
	id := filepath.Base(audio)
	return &StageAudioOutput{Body: StageAudioBody{AudioID: id, DownloadURL: downloadURL("audio", id)}}, nil
}

// Run executes the whole pipeline within the request.
func (h *PipelineHandler) Run(ctx context.Context, input *UploadInput) (*PipelineOutput, error) {
	req, err := h.request(&input.RawBody)
	if err != nil {
		return nil, err
	}
	store := h.deps.Store
	req.VideoPath, err = saveFormFile(store, &input.RawBody, "video", media.VideoExtensions, "Missing video file")
	if err != nil {
		return nil, err
	}
	defer discardUpload(store, req.VideoPath)

	stage := 0
	res, err := h.deps.Pipeline.Run(ctx, req, pipeline.Hooks{
		OnStep: func(string) { stage++ },
	})
	if err != nil {
		return nil, statusError(err, stageFailures[min(max(stage-1, 0), len(stageFailures)-1)])
	}
	return &PipelineOutput{Body: newPipelineResult(store, res)}, nil
}

// Start queues the pipeline on a background job and returns its id.
func (h *PipelineHandler) Start(ctx context.Context, input *UploadInput) (*StartOutput, error) {
	req, err := h.request(&input.RawBody)
	if err != nil {
		return nil, err
	}
	req.VideoPath, err = saveFormFile(h.deps.Store, &input.RawBody, "video", media.VideoExtensions, "Missing video file")
	if err != nil {
		return nil, err
	}

	j := h.deps.Runner.Start(ctx, job.StartRequest{Request: req, Cleanup: req.VideoPath})
	log.Info().Str("job_id", j.ID).Str("video", req.VideoPath).Msg("pipeline job started")
	return &StartOutput{Body: StartBody{JobID: j.ID}}, nil
}

// Events streams a job's progress as server-sent events, replaying what the
// client has not seen yet.
func (h *PipelineHandler) Events(_ context.Context, input *EventsInput) (*huma.StreamResponse, error) {
	j, err := h.deps.Jobs.Get(input.JobID)
	if err != nil {
		return nil, huma.Error404NotFound("Job not found")
	}

	from := input.From
	if id, err := strconv.Atoi(input.LastEventID); err == nil && id > from {
		from = id
	}

	return &huma.StreamResponse{Body: func(hctx huma.Context) {
		hctx.SetHeader("Content-Type", "text/event-stream; charset=utf-8")
		hctx.SetHeader("Cache-Control", "no-cache")
		hctx.SetHeader("Connection", "keep-alive")
		hctx.SetHeader("X-Accel-Buffering", "no")
		hctx.SetStatus(http.StatusOK)

		w := hctx.BodyWriter()
		flusher, _ := w.(http.Flusher)
		for e := range j.Events(hctx.Context(), from) {
			data, err := json.Marshal(e)
			if err != nil {
				log.Error().Err(err).Str("job_id", j.ID).Msg("encode event")
				return
			}
			if _, err := fmt.Fprintf(w, "id: %d\ndata: %s\n\n", e.Seq, data); err != nil {
				log.Debug().Err(err).Str("job_id", j.ID).Msg("event stream closed")
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}}, nil
}

// Result reports whether a job is still running, and its outcome if not.
func (h *PipelineHandler) Result(_ context.Context, input *JobIDInput) (*ResultOutput, error) {
	j, err := h.deps.Jobs.Get(input.JobID)
	if err != nil {
		return nil, huma.Error404NotFound("Job not found")
	}

	st := j.Status()
	body := map[string]any{}
	switch {
	case !st.Done:
		body["status"] = "pending"
		return &ResultOutput{Status: http.StatusOK, Body: body}, nil
	case st.Error != "":
		body["status"] = "error"
		body["error"] = st.Error
	default:
		body["status"] = "done"
		if res, ok := st.Result.(*PipelineResult); ok {
			res.fields(body)
		} else {
			body["result"] = st.Result
		}
	}
	if st.CleanupError != "" {
		body["cleanup_error"] = st.CleanupError
	}

	status := http.StatusOK
	if st.Error != "" {
		status = http.StatusBadGateway
	}
	return &ResultOutput{Status: status, Body: body}, nil
}

// request reads the optional pipeline settings from a multipart form. The
// names used by earlier clients (ollama_model, context_length, extra_prompt)
// are accepted as well.
func (h *PipelineHandler) request(form *multipart.Form) (pipeline.Request, error) {
	d := h.deps.Defaults
	req := pipeline.Request{
		WhisperModel:      d.WhisperModel,
		Language:          d.Language,
		SummaryModel:      d.SummaryModel,
		MaxChunkChars:     d.MaxChunkChars,
		ExtraInstructions: d.ExtraInstructions,
		RequireSummary:    true,
	}
	if v := formValue(form, "whisper_model"); v != "" {
		req.WhisperModel = v
	}
	if v := formValue(form, "language"); v != "" {
		req.Language = v
	}
	if v := formValue(form, "model", "ollama_model"); v != "" {
		req.SummaryModel = v
	}
	if v := formValue(form, "max_chunk_chars", "context_length"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return req, huma.Error400BadRequest(fmt.Sprintf("Invalid max_chunk_chars: %s", v))
		}
		req.MaxChunkChars = n
	}
	if v := formValue(form, "extra_instructions", "extra_prompt"); v != "" {
		req.ExtraInstructions = v
	}
	return req, nil
}
