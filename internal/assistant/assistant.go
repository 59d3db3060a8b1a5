// Package assistant runs one conversational turn: translation, history,
// classification and dispatch.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"VoiceGate/internal/agent"
	"VoiceGate/internal/metrics"
	"VoiceGate/internal/session"
	"VoiceGate/internal/translate"
)

// Classifier picks a label for a conversation; *agent.Supervisor implements it
type Classifier interface {
	Classify(ctx context.Context, turns []session.Turn) (agent.Label, error)
}

// Dispatcher answers a classified conversation; *agent.Dispatcher implements it
type Dispatcher interface {
	Dispatch(ctx context.Context, label agent.Label, turns []session.Turn) (string, error)
}

// Assistant is the text pipeline shared by every endpoint
type Assistant struct {
	sessions   *session.Manager
	classifier Classifier
	dispatcher Dispatcher
	translator *translate.Adapter
	tracer     trace.Tracer
	logger     *slog.Logger
}

func New(
	sessions *session.Manager,
	classifier Classifier,
	dispatcher Dispatcher,
	translator *translate.Adapter,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Assistant {
	return &Assistant{
		sessions:   sessions,
		classifier: classifier,
		dispatcher: dispatcher,
		translator: translator,
		tracer:     tracer,
		logger:     logger.With("component", "assistant"),
	}
}

// Generate answers a client-supplied transcript. Nothing is stored and no
// translation happens.
func (a *Assistant) Generate(ctx context.Context, transcript string) (string, error) {
	ctx, span := a.tracer.Start(ctx, "generate")
	defer span.End()

	turns := session.Ephemeral(transcript)
	span.SetAttributes(attribute.Int("history.turns", len(turns)))
	if len(turns) == 0 {
		return agent.FallbackReply, nil
	}

	label, err := a.classify(ctx, turns)
	if err != nil {
		return "", fail(span, err)
	}

	reply, err := a.dispatch(ctx, label, turns)
	if err != nil {
		return "", fail(span, err)
	}
	return reply, nil
}

// Converse runs one turn of a stored session. The session is locked for the
// whole turn; the user turn is appended before classification and the reply
// is appended before it is translated back.
func (a *Assistant) Converse(ctx context.Context, sessionID, query string) (string, error) {
	ctx, span := a.tracer.Start(ctx, "converse", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	unlock := a.sessions.Lock(sessionID)
	defer unlock()

	var err error
	if err = a.stage(ctx, "translate_in", func(ctx context.Context) error {
		query, err = a.translator.Inbound(ctx, query)
		return err
	}); err != nil {
		return "", fail(span, err)
	}

	history := a.sessions.Get(sessionID)
	if err := history.AddUser(ctx, query); err != nil {
		return "", fail(span, fmt.Errorf("failed to record user turn: %w", err))
	}

	turns, err := history.Turns(ctx)
	if err != nil {
		return "", fail(span, fmt.Errorf("failed to load history: %w", err))
	}
	span.SetAttributes(attribute.Int("history.turns", len(turns)))

	label, err := a.classify(ctx, turns)
	if err != nil {
		return "", fail(span, err)
	}

	reply, err := a.dispatch(ctx, label, turns)
	if err != nil {
		return "", fail(span, err)
	}

	if err := history.AddAssistant(ctx, reply); err != nil {
		return "", fail(span, fmt.Errorf("failed to record assistant turn: %w", err))
	}

	if err = a.stage(ctx, "translate_out", func(ctx context.Context) error {
		reply, err = a.translator.Outbound(ctx, reply)
		return err
	}); err != nil {
		return "", fail(span, err)
	}

	a.logger.Info("turn complete", "session_id", history.ID(), "label", label.String())
	return reply, nil
}

func (a *Assistant) classify(ctx context.Context, turns []session.Turn) (agent.Label, error) {
	var label agent.Label
	err := a.stage(ctx, "classify", func(ctx context.Context) error {
		var err error
		label, err = a.classifier.Classify(ctx, turns)
		return err
	})
	if err != nil {
		return agent.LabelUnknown, err
	}

	metrics.Classifications.WithLabelValues(label.String()).Inc()
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("label", label.String()))
	return label, nil
}

func (a *Assistant) dispatch(ctx context.Context, label agent.Label, turns []session.Turn) (string, error) {
	var reply string
	err := a.stage(ctx, "respond", func(ctx context.Context) error {
		var err error
		reply, err = a.dispatcher.Dispatch(ctx, label, turns)
		return err
	})
	return reply, err
}

// stage runs fn in its own span and records its duration.
func (a *Assistant) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	return Stage(ctx, a.tracer, name, fn)
}

// Stage runs fn in a span named name and observes it in the stage histogram.
func Stage(ctx context.Context, tracer trace.Tracer, name string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		fail(span, err)
	}
	return err
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
