package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lucra-chat/internal/circuitbreaker"
	"github.com/lucra-chat/internal/intent"
)

const intentSystemPrompt = `You classify messages sent to a crypto wallet assistant.
Reply with a single JSON object and nothing else:
{"intent": one of "send","split","check_balance","transaction_history","chat_history","history","conversation","unknown",
 "amount": number or null,
 "token": token symbol, "ETH" when not stated,
 "recipients": array of handles without "@",
 "split_type": "equal","percentage","custom" or null,
 "note": string or null,
 "isConversational": true only for greetings, questions and small talk}
Use "conversation" for greetings and general questions, "send" for payments to one or more recipients,
"split" for dividing an amount among recipients, "check_balance" for balance questions and
"transaction_history" for past payments.`

const replySystemPrompt = `You are Lucra, a friendly assistant inside a crypto wallet app.
Answer briefly in plain text (no markdown). You can explain how to send or split payments,
check balances and view history, but you never move funds yourself and never ask for seed phrases or private keys.`

// ErrInvalidResponse is returned when the model output is not a usable intent
var ErrInvalidResponse = errors.New("invalid model response")

// Extractor classifies messages with a Provider behind a circuit breaker
type Extractor struct {
	provider Provider
	breaker  *circuitbreaker.CircuitBreaker
	timeout  time.Duration
}

// NewExtractor creates an extractor. A nil breaker disables breaking.
func NewExtractor(provider Provider, breaker *circuitbreaker.CircuitBreaker, timeout time.Duration) *Extractor {
	return &Extractor{provider: provider, breaker: breaker, timeout: timeout}
}

// Provider returns the underlying provider name
func (e *Extractor) Provider() string {
	return e.provider.Name()
}

// ExtractIntent asks the model for a structured intent. Any error means the
// caller should use the fallback parser.
func (e *Extractor) ExtractIntent(ctx context.Context, text string) (*intent.Intent, error) {
	raw, err := e.complete(ctx, intentSystemPrompt, text, Options{JSON: true, Temperature: 0, MaxTokens: 300})
	if err != nil {
		return nil, err
	}

	result, err := ParseIntentJSON(raw)
	if err != nil {
		return nil, err
	}
	if result.Kind == intent.KindConversation && result.Query == nil {
		query := strings.TrimSpace(text)
		result.Query = &query
	}
	return result, nil
}

// Reply writes a conversational answer to text
func (e *Extractor) Reply(ctx context.Context, text string) (string, error) {
	reply, err := e.complete(ctx, replySystemPrompt, text, Options{Temperature: 0.7, MaxTokens: 400})
	if err != nil {
		return "", err
	}
	if reply == "" {
		return "", fmt.Errorf("%w: empty reply", ErrInvalidResponse)
	}
	return reply, nil
}

func (e *Extractor) complete(ctx context.Context, system, user string, opts Options) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var out string
	call := func() error {
		var err error
		out, err = e.provider.Complete(ctx, system, user, opts)
		return err
	}

	if e.breaker == nil {
		return out, call()
	}
	if err := e.breaker.Execute(ctx, call); err != nil {
		return "", err
	}
	return out, nil
}

// ParseIntentJSON decodes a model response into a normalized intent. Code
// fences and prose around the object are ignored; an unrecognized intent
// value is an error rather than "unknown".
func ParseIntentJSON(raw string) (*intent.Intent, error) {
	body := extractJSONObject(raw)
	if body == "" {
		return nil, fmt.Errorf("%w: no JSON object", ErrInvalidResponse)
	}

	var result intent.Intent
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	kind := intent.Kind(strings.ToLower(strings.TrimSpace(string(result.Kind))))
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown intent %q", ErrInvalidResponse, result.Kind)
	}

	result.Normalize()
	return &result, nil
}

func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
