// Package agent routes a conversation to a responder and produces its reply.
package agent

import (
	"context"
	"fmt"
	"log/slog"

	"VoiceGate/internal/backend"
	"VoiceGate/internal/session"
)

// Supervisor picks the worker that should answer a conversation
type Supervisor struct {
	llm    backend.LLM
	prompt string
	logger *slog.Logger
}

func NewSupervisor(llm backend.LLM, prompt string, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		llm:    llm,
		prompt: prompt,
		logger: logger.With("component", "supervisor"),
	}
}

// Classify asks the backend which worker should answer. Output that names no
// known worker yields LabelUnknown; only backend failures are errors.
func (s *Supervisor) Classify(ctx context.Context, turns []session.Turn) (Label, error) {
	reply, err := s.llm.Chat(ctx, s.prompt, turns)
	if err != nil {
		return LabelUnknown, fmt.Errorf("supervisor: %w", err)
	}

	label := ParseLabel(reply)
	s.logger.Debug("classified conversation", "reply", reply, "label", label.String())
	return label, nil
}
