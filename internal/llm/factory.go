package llm

import (
	"context"
	"fmt"

	"github.com/lucra-chat/internal/circuitbreaker"
	"github.com/lucra-chat/internal/config"
)

// NewProvider builds the provider selected in config. It returns
// ErrNotConfigured when no API key is set.
func NewProvider(ctx context.Context, cfg *config.LLMConfig) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil
	case "gemini":
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}

// NewExtractorFromConfig wires a provider and its circuit breaker
func NewExtractorFromConfig(ctx context.Context, cfg *config.LLMConfig) (*Extractor, error) {
	provider, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	breakerCfg := circuitbreaker.DefaultConfig("llm-" + provider.Name())
	breakerCfg.MaxFailures = cfg.BreakerMaxFailures
	breakerCfg.Timeout = cfg.BreakerTimeout

	return NewExtractor(provider, circuitbreaker.NewCircuitBreaker(breakerCfg), cfg.Timeout), nil
}
