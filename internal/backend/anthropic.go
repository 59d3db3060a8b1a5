package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"VoiceGate/internal/session"
)

const (
	anthropicURL   = "https://api.anthropic.com/v1/messages"
	anthropicModel = "claude-sonnet-4-20250514"
)

// AnthropicRequest represents the request body for Anthropic API
type AnthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

// AnthropicContent is one content block of a response
type AnthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// AnthropicResponse represents the response from Anthropic API
type AnthropicResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Role       string             `json:"role"`
	Content    []AnthropicContent `json:"content"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason"`
	Usage      struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

// Anthropic calls the Messages API
type Anthropic struct {
	url        string
	apiKey     string
	model      string
	httpClient *http.Client
	in         Instruments
}

func NewAnthropic(url, apiKey, model string, httpClient *http.Client, in Instruments) *Anthropic {
	return &Anthropic{
		url:        url,
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
		in:         in,
	}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Chat(ctx context.Context, system string, turns []session.Turn) (string, error) {
	ctx, span := a.in.start(ctx, a.Name())
	defer span.End()

	start := time.Now()

	reqBody := AnthropicRequest{
		Model:     a.model,
		MaxTokens: 1024,
		System:    system,
		Messages:  chatMessages("", turns),
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("content-type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	var apiResp AnthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	a.in.observe(ctx, a.Name(), start, map[string]int64{
		"prompt":     apiResp.Usage.InputTokens,
		"completion": apiResp.Usage.OutputTokens,
	})

	for _, content := range apiResp.Content {
		if content.Type == "text" && content.Text != "" {
			return content.Text, nil
		}
	}

	return "", ErrEmptyResponse
}
