package summarize

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/viperadnan-git/meeting-summary/internal/core/process"
)

// Ollama talks to a local Ollama server through its official API client.
type Ollama struct {
	client *api.Client
}

// NewOllama connects to host, or to OLLAMA_HOST / the default address when
// host is empty.
func NewOllama(host string) (*Ollama, error) {
	if host == "" {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client: %w", err)
		}
		return &Ollama{client: client}, nil
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}
	return &Ollama{client: api.NewClient(u, http.DefaultClient)}, nil
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: make([]api.Message, 0, len(messages)),
		Stream:   &stream,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, api.Message{Role: string(m.Role), Content: m.Content})
	}

	var out strings.Builder
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return out.String(), nil
}

// Heartbeat reports whether the server answers.
func (o *Ollama) Heartbeat(ctx context.Context) error {
	return o.client.Heartbeat(ctx)
}

// Daemon returns a process.Daemon that runs `ollama serve` and probes it
// through this client.
func (o *Ollama) Daemon(binary string) process.Daemon {
	if binary == "" {
		binary = "ollama"
	}
	return &ollamaDaemon{binary: binary, backend: o}
}

type ollamaDaemon struct {
	binary  string
	backend *Ollama
}

func (d *ollamaDaemon) Name() string { return "ollama" }

func (d *ollamaDaemon) Command() (string, []string) {
	return d.binary, []string{"serve"}
}

func (d *ollamaDaemon) ReadyCheck() process.ReadyProbe {
	return process.ReadyProbe{
		Check: func(ctx context.Context) bool {
			return d.backend.Heartbeat(ctx) == nil
		},
		Interval: 250 * time.Millisecond,
		Timeout:  30 * time.Second,
	}
}

func (d *ollamaDaemon) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return d.backend.Heartbeat(ctx) == nil
}
