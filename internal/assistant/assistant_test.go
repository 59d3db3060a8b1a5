package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"VoiceGate/internal/agent"
	"VoiceGate/internal/session"
	"VoiceGate/internal/translate"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedLLM answers the supervisor prompt with a worker name and every
// other prompt with a canned reply
type scriptedLLM struct {
	worker string
	err    error
}

func (s *scriptedLLM) Name() string { return "scripted" }

func (s *scriptedLLM) Chat(_ context.Context, system string, turns []session.Turn) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if system == "supervisor" {
		return s.worker, nil
	}
	return fmt.Sprintf("%s answer to %q", system, session.LastUser(turns)), nil
}

type tagTranslator struct{}

func (tagTranslator) Translate(_ context.Context, text, source, target string) (string, error) {
	return fmt.Sprintf("[%s>%s]%s", source, target, text), nil
}

type failingTranslator struct{}

func (failingTranslator) Translate(context.Context, string, string, string) (string, error) {
	return "", errors.New("translator offline")
}

func newAssistant(t *testing.T, llm *scriptedLLM, tr *translate.Adapter) (*Assistant, *session.Manager) {
	t.Helper()
	logger := testLogger()
	sessions := session.NewManager(session.NewMemoryStore())
	t.Cleanup(func() { sessions.Close() })

	d := agent.NewDefaultDispatcher(
		agent.NewWeatherAgent(llm, "weather", nil, "", logger),
		agent.NewSearchAgent(llm, "search", nil, "", logger),
		agent.NewChatterAgent(llm, "chat", logger),
		nil, logger)

	if tr == nil {
		tr = &translate.Adapter{Translator: translate.Passthrough{}}
	}
	a := New(sessions, agent.NewSupervisor(llm, "supervisor", logger), d, tr,
		tracenoop.NewTracerProvider().Tracer("test"), logger)
	return a, sessions
}

func TestConverseMeteorologist(t *testing.T) {
	a, sessions := newAssistant(t, &scriptedLLM{worker: "meteorologist"}, nil)
	ctx := context.Background()

	reply, err := a.Converse(ctx, "42", "What's the weather in Moscow?")
	require.NoError(t, err)
	assert.Equal(t, `weather answer to "What's the weather in Moscow?"`, reply)

	turns, err := sessions.Get("42").Turns(ctx)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, session.RoleUser, turns[0].Role)
	assert.Equal(t, "What's the weather in Moscow?", turns[0].Content)
	assert.Equal(t, session.RoleAssistant, turns[1].Role)
	assert.Equal(t, reply, turns[1].Content)
}

func TestConverseUnknownLabel(t *testing.T) {
	a, sessions := newAssistant(t, &scriptedLLM{worker: "FINISH"}, nil)
	ctx := context.Background()

	reply, err := a.Converse(ctx, "7", "blah")
	require.NoError(t, err)
	assert.Equal(t, agent.FallbackReply, reply)

	turns, err := sessions.Get("7").Turns(ctx)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, agent.FallbackReply, turns[1].Content)
}

func TestConverseTranslates(t *testing.T) {
	tr := &translate.Adapter{Target: "ru", Translator: tagTranslator{}}
	a, sessions := newAssistant(t, &scriptedLLM{worker: "chatter"}, tr)
	ctx := context.Background()

	reply, err := a.Converse(ctx, "1", "привет")
	require.NoError(t, err)

	turns, err := sessions.Get("1").Turns(ctx)
	require.NoError(t, err)
	require.Len(t, turns, 2)

	// history holds English; only the returned reply is translated back
	assert.Equal(t, "[ru>en]привет", turns[0].Content)
	assert.Equal(t, `chat answer to "[ru>en]привет"`, turns[1].Content)
	assert.Equal(t, "[en>ru]"+turns[1].Content, reply)
}

func TestConverseInboundTranslationFailure(t *testing.T) {
	tr := &translate.Adapter{Target: "ru", Translator: failingTranslator{}}
	a, sessions := newAssistant(t, &scriptedLLM{worker: "chatter"}, tr)
	ctx := context.Background()

	_, err := a.Converse(ctx, "1", "привет")
	require.ErrorContains(t, err, "translator offline")

	turns, err := sessions.Get("1").Turns(ctx)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestConverseBackendFailure(t *testing.T) {
	a, _ := newAssistant(t, &scriptedLLM{err: errors.New("connection refused")}, nil)

	_, err := a.Converse(context.Background(), "1", "hi")
	assert.ErrorContains(t, err, "connection refused")
}

func TestConverseKeepsHistoryAcrossTurns(t *testing.T) {
	a, sessions := newAssistant(t, &scriptedLLM{worker: "researcher"}, nil)
	ctx := context.Background()

	_, err := a.Converse(ctx, "s", "first")
	require.NoError(t, err)
	reply, err := a.Converse(ctx, "s", "second")
	require.NoError(t, err)
	assert.Equal(t, `search answer to "second"`, reply)

	turns, err := sessions.Get("s").Turns(ctx)
	require.NoError(t, err)
	assert.Len(t, turns, 4)

	other, err := sessions.Get("other").Turns(ctx)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestConverseConcurrentSameSession(t *testing.T) {
	a, sessions := newAssistant(t, &scriptedLLM{worker: "chatter"}, nil)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := a.Converse(ctx, "shared", fmt.Sprintf("q%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	turns, err := sessions.Get("shared").Turns(ctx)
	require.NoError(t, err)
	require.Len(t, turns, 2*n)

	for i := 0; i < len(turns); i += 2 {
		assert.Equal(t, session.RoleUser, turns[i].Role)
		assert.Equal(t, session.RoleAssistant, turns[i+1].Role)
		// each reply answers the user turn right before it
		assert.Equal(t, fmt.Sprintf("chat answer to %q", turns[i].Content), turns[i+1].Content)
	}
}

func TestGenerate(t *testing.T) {
	a, sessions := newAssistant(t, &scriptedLLM{worker: "meteorologist"}, nil)

	reply, err := a.Generate(context.Background(), "user: hi\nassistant: hello\nuser: is it raining?")
	require.NoError(t, err)
	assert.Equal(t, `weather answer to "is it raining?"`, reply)

	reply, err = a.Generate(context.Background(), "\n \n")
	require.NoError(t, err)
	assert.Equal(t, agent.FallbackReply, reply)

	// nothing is stored
	for _, id := range []string{"", "0"} {
		turns, _ := sessions.Get(id).Turns(context.Background())
		assert.Empty(t, turns)
	}
}

func TestGenerateIgnoresTranslation(t *testing.T) {
	tr := &translate.Adapter{Target: "ru", Translator: tagTranslator{}}
	a, _ := newAssistant(t, &scriptedLLM{worker: "chatter"}, tr)

	reply, err := a.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(reply, "[en>ru]"))
}
