// Package speech turns replies into audio and ships it to the playback
// service.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// XTTSRequest is the body of a /tts_to_audio/ call
type XTTSRequest struct {
	Text       string `json:"text"`
	SpeakerWAV string `json:"speaker_wav"`
	Language   string `json:"language"`
}

// XTTS is a client for an XTTS API server
type XTTS struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

func NewXTTS(baseURL, language string, httpClient *http.Client) *XTTS {
	return &XTTS{
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   language,
		httpClient: httpClient,
	}
}

// Synthesize renders text with the given speaker and returns the audio bytes.
func (x *XTTS) Synthesize(ctx context.Context, text, speaker string) ([]byte, error) {
	body, err := json.Marshal(XTTSRequest{Text: text, SpeakerWAV: speaker, Language: x.language})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.baseURL+"/tts_to_audio/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("XTTS request failed with status %d: %s", resp.StatusCode, string(data))
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("XTTS returned no audio")
	}
	return data, nil
}
