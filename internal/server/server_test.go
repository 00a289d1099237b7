package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/viperadnan-git/meeting-summary/internal/config"
	"github.com/viperadnan-git/meeting-summary/internal/core/job"
	"github.com/viperadnan-git/meeting-summary/internal/core/setup"
)

func TestShutdownEndsEventStreams(t *testing.T) {
	t.Setenv("MS_PATHS_OUTPUT", filepath.Join(t.TempDir(), "output"))
	t.Setenv("MS_SUMMARIZE_OLLAMA_HOST", "127.0.0.1:1")
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	svc, err := setup.Build(context.Background(), cfg, setup.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Shutdown(context.Background())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	e := New(svc)
	e.Listener = ln
	served := make(chan error, 1)
	go func() { served <- e.Start("") }()

	// A job that never finishes keeps its event stream open.
	j := svc.Jobs.Create(context.Background())
	j.Push(job.KindStep, "Extracting audio...")

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/pipeline/events/" + j.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil || !strings.HasPrefix(line, "id: 1") {
		t.Fatalf("first line = %q, %v", line, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	start := time.Now()
	if err := e.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if took := time.Since(start); took > 5*time.Second {
		t.Fatalf("shutdown waited %s for an open stream", took)
	}
	if err := <-served; err != nil && !errors.Is(err, http.ErrServerClosed) {
		t.Fatalf("Start() error = %v", err)
	}
}
