package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// Ollama implements Provider against a local Ollama server.
type Ollama struct {
	client *ollama.Client
}

// OllamaConfig holds configuration for the Ollama client.
type OllamaConfig struct {
	Host    string
	Timeout time.Duration
}

// NewOllama creates an Ollama provider for the given host.
func NewOllama(cfg OllamaConfig) (*Ollama, error) {
	host := cfg.Host
	if host == "" {
		host = "http://localhost:11434"
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 300 * time.Second
	}

	return &Ollama{
		client: ollama.NewClient(base, &http.Client{Timeout: timeout}),
	}, nil
}

// Name implements Provider.
func (o *Ollama) Name() string { return "ollama" }

// Complete runs a non-streaming chat request.
func (o *Ollama) Complete(ctx context.Context, req Request) (string, error) {
	var msgs []ollama.Message
	if req.System != "" {
		msgs = append(msgs, ollama.Message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, ollama.Message{Role: "user", Content: req.User})

	stream := false
	chatReq := &ollama.ChatRequest{
		Model:    req.Model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]interface{}{},
	}
	if req.Temperature > 0 {
		chatReq.Options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		chatReq.Options["num_predict"] = req.MaxTokens
	}

	var content strings.Builder
	err := o.client.Chat(ctx, chatReq, func(res ollama.ChatResponse) error {
		content.WriteString(res.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}
	if content.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return content.String(), nil
}

// ListModels returns the models pulled on the local server.
func (o *Ollama) ListModels(ctx context.Context) ([]string, error) {
	resp, err := o.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list local models: %w", err)
	}

	models := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, m.Name)
	}
	return models, nil
}
