// Package llm extracts wallet intents and conversational replies from a hosted language model.
package llm

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no API key is set
var ErrNotConfigured = errors.New("API key not configured")

// Options tune a single completion
type Options struct {
	JSON        bool // ask the provider for a JSON object response
	Temperature float32
	MaxTokens   int
}

// Provider is a hosted chat-completion model
type Provider interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error)
}
