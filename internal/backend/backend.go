// Package backend holds the chat-completion clients the supervisor and the
// responders talk to.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"VoiceGate/internal/config"
	"VoiceGate/internal/session"
)

// ErrEmptyResponse is returned when a backend answers without any text.
var ErrEmptyResponse = errors.New("empty response from backend")

// LLM produces the next assistant message for a conversation.
type LLM interface {
	Chat(ctx context.Context, system string, turns []session.Turn) (string, error)
	Name() string
}

// New creates the client selected by cfg.Backend
func New(cfg *config.Config, httpClient *http.Client, tracer trace.Tracer, meter metric.Meter) (LLM, error) {
	in := NewInstruments(tracer, meter)

	switch cfg.Backend {
	case config.BackendOllama:
		return NewOllama(cfg.OllamaURL, cfg.OllamaModel, httpClient, in), nil
	case config.BackendAnthropic:
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		return NewAnthropic(anthropicURL, apiKey, anthropicModel, httpClient, in), nil
	case config.BackendGrok:
		apiKey := os.Getenv("GROK_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GROK_API_KEY not set")
		}
		return NewOpenAI(config.BackendGrok, apiKey, grokURL, grokModel, httpClient, in), nil
	case config.BackendOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
		return NewOpenAI(config.BackendOpenAI, apiKey, "", cfg.OpenAIModel, httpClient, in), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Backend)
	}
}

// Instruments bundles the tracer and meters shared by all backends.
type Instruments struct {
	tracer   trace.Tracer
	duration metric.Float64Histogram
	tokens   metric.Int64Counter
}

func NewInstruments(tracer trace.Tracer, meter metric.Meter) Instruments {
	in := Instruments{tracer: tracer}

	if h, err := meter.Float64Histogram(
		"llm.request.duration",
		metric.WithDescription("LLM request duration in milliseconds"),
		metric.WithUnit("ms"),
	); err == nil {
		in.duration = h
	}
	if c, err := meter.Int64Counter(
		"llm.usage.tokens",
		metric.WithDescription("Tokens reported by the LLM backend"),
	); err == nil {
		in.tokens = c
	}
	return in
}

func (in Instruments) start(ctx context.Context, name string) (context.Context, trace.Span) {
	return in.tracer.Start(ctx, name+"_api_call")
}

func (in Instruments) observe(ctx context.Context, backend string, start time.Time, usage map[string]int64) {
	attrs := metric.WithAttributes(attribute.String("backend", backend))
	if in.duration != nil {
		in.duration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	}
	if in.tokens == nil {
		return
	}
	for kind, n := range usage {
		in.tokens.Add(ctx, n, metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.String("kind", kind),
		))
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatMessages flattens turns into role/content pairs, with an optional
// leading system message.
func chatMessages(system string, turns []session.Turn) []chatMessage {
	msgs := make([]chatMessage, 0, len(turns)+1)
	if system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	for _, t := range turns {
		msgs = append(msgs, chatMessage{Role: t.Role, Content: t.Content})
	}
	return msgs
}
