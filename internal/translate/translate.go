// Package translate converts queries into English and replies back into the
// configured language.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// English is the language the agents work in
const English = "en"

// Translator translates text between two languages
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Passthrough returns the text unchanged
type Passthrough struct{}

func (Passthrough) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error,omitempty"`
}

// HTTPTranslator talks to a LibreTranslate-compatible /translate endpoint
type HTTPTranslator struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPTranslator(baseURL string, httpClient *http.Client) *HTTPTranslator {
	return &HTTPTranslator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (t *HTTPTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	if source == target || strings.TrimSpace(text) == "" {
		return text, nil
	}

	body, err := json.Marshal(translateRequest{Q: text, Source: source, Target: target, Format: "text"})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var tr translateResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(data, &tr) == nil && tr.Error != "" {
			return "", fmt.Errorf("translation failed with status %d: %s", resp.StatusCode, tr.Error)
		}
		return "", fmt.Errorf("translation failed with status %d: %s", resp.StatusCode, string(data))
	}

	if err := json.Unmarshal(data, &tr); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return tr.TranslatedText, nil
}

// Adapter translates in and out of the target language. An empty Target
// disables translation.
type Adapter struct {
	Target     string
	Translator Translator
}

// New returns an adapter for target; target "" yields a pass-through adapter.
func New(target, baseURL string, httpClient *http.Client) *Adapter {
	if target == "" {
		return &Adapter{Translator: Passthrough{}}
	}
	return &Adapter{Target: target, Translator: NewHTTPTranslator(baseURL, httpClient)}
}

// Enabled reports whether translation happens
func (a *Adapter) Enabled() bool {
	return a.Target != ""
}

// Inbound translates a user query from the target language into English
func (a *Adapter) Inbound(ctx context.Context, text string) (string, error) {
	if !a.Enabled() {
		return text, nil
	}
	out, err := a.Translator.Translate(ctx, text, a.Target, English)
	if err != nil {
		return "", fmt.Errorf("inbound translation: %w", err)
	}
	return out, nil
}

// Outbound translates a reply from English into the target language
func (a *Adapter) Outbound(ctx context.Context, text string) (string, error) {
	if !a.Enabled() {
		return text, nil
	}
	out, err := a.Translator.Translate(ctx, text, English, a.Target)
	if err != nil {
		return "", fmt.Errorf("outbound translation: %w", err)
	}
	return out, nil
}
