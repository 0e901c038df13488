// Package llm talks to hosted and local language models.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse is returned when a provider answers without text.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrNoProviders is returned by a Chain with no routes.
	ErrNoProviders = errors.New("no providers configured")
	// ErrAllProvidersFailed is returned when every route in a Chain failed.
	ErrAllProvidersFailed = errors.New("all providers failed")
)

// Request is a single-turn completion request.
type Request struct {
	Model       string
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Provider is a model host that can complete prompts and list its models.
type Provider interface {
	// Name returns the provider key ("gemini", "openai", ...).
	Name() string

	// Complete sends a completion request and returns the text answer.
	Complete(ctx context.Context, req Request) (string, error)

	// ListModels returns the model identifiers usable for text generation.
	ListModels(ctx context.Context) ([]string, error)
}
