package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"VoiceGate/internal/session"
)

const (
	grokURL   = "https://api.x.ai/v1/"
	grokModel = "grok-2-latest"
)

// OpenAI speaks the chat completions API. Grok is served by the same client
// pointed at its own base URL.
type OpenAI struct {
	name   string
	model  string
	client openai.Client
	in     Instruments
}

// NewOpenAI creates a client; an empty baseURL keeps the SDK default.
func NewOpenAI(name, apiKey, baseURL, model string, httpClient *http.Client, in Instruments) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAI{
		name:   name,
		model:  model,
		client: openai.NewClient(opts...),
		in:     in,
	}
}

func (o *OpenAI) Name() string { return o.name }

func (o *OpenAI) Chat(ctx context.Context, system string, turns []session.Turn) (string, error) {
	ctx, span := o.in.start(ctx, o.name)
	defer span.End()

	start := time.Now()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	for _, t := range turns {
		if t.Role == session.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(t.Content))
		} else {
			messages = append(messages, openai.UserMessage(t.Content))
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(o.model),
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("chat completion: %w", err)
	}

	o.in.observe(ctx, o.name, start, map[string]int64{
		"prompt":     resp.Usage.PromptTokens,
		"completion": resp.Usage.CompletionTokens,
	})

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
