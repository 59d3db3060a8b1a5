package agent

import (
	"context"
	"fmt"
	"log/slog"

	"VoiceGate/internal/backend"
	"VoiceGate/internal/session"
)

// Responder answers a conversation
type Responder interface {
	Name() string
	Ask(ctx context.Context, turns []session.Turn) (string, error)
}

// ToolCaller invokes a named tool; *tools.Registry implements it
type ToolCaller interface {
	Call(ctx context.Context, name string, args map[string]any) (string, error)
}

// llmResponder is an LLM call with its own system prompt, optionally grounded
// on the output of one tool queried with the latest user message.
type llmResponder struct {
	name   string
	llm    backend.LLM
	prompt string
	tools  ToolCaller
	tool   string
	logger *slog.Logger
}

func (r *llmResponder) Name() string {
	return r.name
}

func (r *llmResponder) Ask(ctx context.Context, turns []session.Turn) (string, error) {
	system := r.prompt

	if r.tools != nil && r.tool != "" {
		query := session.LastUser(turns)
		out, err := r.tools.Call(ctx, r.tool, map[string]any{"query": query})
		if err != nil {
			r.logger.Warn("tool unavailable, answering without it", "tool", r.tool, "error", err)
		} else if out != "" {
			system = fmt.Sprintf("%s\n\nTool %s returned:\n%s", system, r.tool, out)
		}
	}

	reply, err := r.llm.Chat(ctx, system, turns)
	if err != nil {
		return "", fmt.Errorf("%s: %w", r.name, err)
	}
	return reply, nil
}

// WeatherAgent answers weather questions using the weather tool
type WeatherAgent struct {
	llmResponder
}

func NewWeatherAgent(llm backend.LLM, prompt string, tools ToolCaller, tool string, logger *slog.Logger) *WeatherAgent {
	return &WeatherAgent{llmResponder{
		name:   "meteorologist",
		llm:    llm,
		prompt: prompt,
		tools:  tools,
		tool:   tool,
		logger: logger.With("component", "meteorologist"),
	}}
}

// SearchAgent answers factual questions using the web search tool
type SearchAgent struct {
	llmResponder
}

func NewSearchAgent(llm backend.LLM, prompt string, tools ToolCaller, tool string, logger *slog.Logger) *SearchAgent {
	return &SearchAgent{llmResponder{
		name:   "researcher",
		llm:    llm,
		prompt: prompt,
		tools:  tools,
		tool:   tool,
		logger: logger.With("component", "researcher"),
	}}
}

// ChatterAgent handles small talk
type ChatterAgent struct {
	llmResponder
}

func NewChatterAgent(llm backend.LLM, prompt string, logger *slog.Logger) *ChatterAgent {
	return &ChatterAgent{llmResponder{
		name:   "chatter",
		llm:    llm,
		prompt: prompt,
		logger: logger.With("component", "chatter"),
	}}
}
