package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/viperadnan-git/meeting-summary/internal/core/job"
	"github.com/viperadnan-git/meeting-summary/internal/core/pipeline"
	"github.com/viperadnan-git/meeting-summary/internal/core/storage"
	"github.com/viperadnan-git/meeting-summary/internal/core/summarize"
)

type stubSummarizer struct {
	summary string
	err     error
}

func (s stubSummarizer) Summarize(context.Context, summarize.Request) (string, error) {
	return s.summary, s.err
}

func (s stubSummarizer) Backends() []string { return []string{"stub"} }

type stubPipeline struct {
	res *pipeline.Result
	err error
}

func (s stubPipeline) Run(context.Context, pipeline.Request, pipeline.Hooks) (*pipeline.Result, error) {
	return s.res, s.err
}

func TestSummarizeOperation(t *testing.T) {
	InitErrors()
	_, api := humatest.New(t)

	h := NewSummarizeHandler(Deps{Summarizer: stubSummarizer{summary: "# Notes"}})
	huma.Register(api, huma.Operation{
		OperationID: "summarize",
		Method:      http.MethodPost,
		Path:        "/summarize",
	}, h.Summarize)

	resp := api.Post("/summarize", map[string]any{"transcript": "hello"})
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", resp.Code, resp.Body.String())
	}
	var body SummarizeBody
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil || body.Summary != "# Notes" {
		t.Fatalf("body = %s", resp.Body.String())
	}

	resp = api.Post("/summarize", map[string]any{"transcript": ""})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", resp.Code)
	}
	var apiErr APIError
	if err := json.Unmarshal(resp.Body.Bytes(), &apiErr); err != nil || apiErr.Err != "Transcript cannot be empty" || apiErr.Success {
		t.Fatalf("body = %s", resp.Body.String())
	}
}

func TestResultOperation(t *testing.T) {
	InitErrors()
	_, api := humatest.New(t)

	store, err := storage.New(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	jobs := job.NewManager(nil, 10*time.Millisecond)
	runner := job.NewRunner(jobs, stubPipeline{res: &pipeline.Result{
		AudioPath:  filepath.Join(store.OutputDir(), "call.wav"),
		Transcript: "hi",
		Summary:    "# Notes",
	}}, nil, job.RunnerOptions{View: NewPipelineView(store)})

	h := NewPipelineHandler(Deps{Store: store, Jobs: jobs, Runner: runner})
	huma.Register(api, huma.Operation{
		OperationID: "pipeline-result",
		Method:      http.MethodGet,
		Path:        "/pipeline/result/{job_id}",
	}, h.Result)

	j := runner.Start(context.Background(), job.StartRequest{})
	runner.Wait()

	resp := api.Get("/pipeline/result/" + j.ID)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", resp.Code, resp.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "done" || body["audio_id"] != "call.wav" || body["summary"] != "# Notes" {
		t.Fatalf("body = %v", body)
	}
	if v, ok := body["download_transcript_url"]; !ok || v != nil {
		t.Fatalf("missing transcript should give a null url, got %v", v)
	}
}

func TestPipelineResultLinksDocx(t *testing.T) {
	store, err := storage.New(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	audio := filepath.Join(store.OutputDir(), "call.wav")
	for _, name := range []string{"call.wav", "call" + pipeline.SummarySuffix, "call" + pipeline.DocxSuffix} {
		if err := os.WriteFile(filepath.Join(store.OutputDir(), name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	res := newPipelineResult(store, &pipeline.Result{AudioPath: audio})
	if res.DownloadDocxURL == nil || *res.DownloadDocxURL != "/api/download/docx/call.wav" {
		t.Fatalf("docx url = %v", res.DownloadDocxURL)
	}
	if res.DownloadSummaryURL == nil || res.DownloadTranscriptURL != nil {
		t.Fatalf("result = %+v", res)
	}

	fields := map[string]any{}
	res.fields(fields)
	if fields["download_docx_url"] != res.DownloadDocxURL {
		t.Fatalf("fields = %v", fields)
	}
}
