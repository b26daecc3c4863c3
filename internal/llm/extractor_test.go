package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucra-chat/internal/circuitbreaker"
	"github.com/lucra-chat/internal/config"
	"github.com/lucra-chat/internal/intent"
)

type stubProvider struct {
	out   string
	err   error
	calls int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error) {
	s.calls++
	return s.out, s.err
}

func TestParseIntentJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    intent.Kind
		wantErr bool
	}{
		{name: "plain", raw: `{"intent":"send","amount":0.5,"token":"eth","recipients":["@alice"]}`, want: intent.KindSend},
		{name: "code fence", raw: "```json\n{\"intent\":\"check_balance\"}\n```", want: intent.KindCheckBalance},
		{name: "prose around", raw: `Sure! {"intent":"split","split_type":"equal"} hope that helps`, want: intent.KindSplit},
		{name: "upper-case kind", raw: `{"intent":"SEND"}`, want: intent.KindSend},
		{name: "unknown kind", raw: `{"intent":"stake"}`, wantErr: true},
		{name: "not json", raw: `I can't do that`, wantErr: true},
		{name: "broken json", raw: `{"intent":"send",}`, wantErr: true},
		{name: "amount as string", raw: `{"intent":"send","amount":"12.5"}`, want: intent.KindSend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIntentJSON(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Kind)
			assert.NotNil(t, got.Recipients)
			assert.NotEmpty(t, got.Token)
		})
	}
}

func TestParseIntentJSON_Normalizes(t *testing.T) {
	got, err := ParseIntentJSON(`{"intent":"send","amount":0.5,"token":"usdc","recipients":["@alice"," "]}`)
	require.NoError(t, err)

	assert.Equal(t, "USDC", got.Token)
	assert.Equal(t, []string{"alice"}, got.Recipients)
	assert.Equal(t, "0.5", got.AmountString())

	flagged, err := ParseIntentJSON(`{"intent":"send","amount":1,"isConversational":true}`)
	require.NoError(t, err)
	assert.False(t, flagged.IsConversational)
}

func TestExtractor_ConversationGetsQuery(t *testing.T) {
	p := &stubProvider{out: `{"intent":"conversation"}`}
	e := NewExtractor(p, nil, time.Second)

	got, err := e.ExtractIntent(context.Background(), " what is gas? ")
	require.NoError(t, err)
	assert.True(t, got.IsConversational)
	require.NotNil(t, got.Query)
	assert.Equal(t, "what is gas?", *got.Query)
}

func TestExtractor_BreakerOpensAndShortCircuits(t *testing.T) {
	p := &stubProvider{err: errors.New("503")}
	breaker := circuitbreaker.NewCircuitBreaker(&circuitbreaker.Config{Name: "llm", MaxFailures: 2, Timeout: time.Minute})
	e := NewExtractor(p, breaker, time.Second)

	for i := 0; i < 2; i++ {
		_, err := e.ExtractIntent(context.Background(), "send 1 to @a")
		assert.Error(t, err)
	}
	_, err := e.ExtractIntent(context.Background(), "send 1 to @a")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, 2, p.calls)
}

func TestExtractor_Reply(t *testing.T) {
	e := NewExtractor(&stubProvider{out: "Gas is the fee paid to validators."}, nil, 0)
	reply, err := e.Reply(context.Background(), "what is gas?")
	require.NoError(t, err)
	assert.Equal(t, "Gas is the fee paid to validators.", reply)

	e = NewExtractor(&stubProvider{out: ""}, nil, 0)
	_, err = e.Reply(context.Background(), "what is gas?")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(context.Background(), &config.LLMConfig{Provider: "openai"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	p, err := NewProvider(context.Background(), &config.LLMConfig{Provider: "openai", APIKey: "k", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = NewProvider(context.Background(), &config.LLMConfig{Provider: "other", APIKey: "k"})
	assert.Error(t, err)
}
