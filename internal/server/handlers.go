package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"VoiceGate/internal/assistant"
	"VoiceGate/internal/metrics"
	"VoiceGate/internal/speech"
)

// voiceSessionID is the session every voice request is recorded in
const voiceSessionID = "0"

// parseForm accepts multipart and urlencoded bodies
func parseForm(r *http.Request) error {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	return nil
}

func allowPost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func (s *Server) generateHandler(w http.ResponseWriter, r *http.Request) {
	if !allowPost(w, r) {
		return
	}
	if err := parseForm(r); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	history := r.PostFormValue("history")
	if history == "" {
		writeError(w, http.StatusBadRequest, "history is required")
		return
	}

	reply, err := s.pipeline.Generate(r.Context(), history)
	if err != nil {
		s.logger.Error("generate failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, TextResponse{Text: reply})
}

func (s *Server) textInputHandler(w http.ResponseWriter, r *http.Request) {
	if !allowPost(w, r) {
		return
	}
	if err := parseForm(r); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	sessionID := r.PostFormValue("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	query := r.PostFormValue("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	reply, err := s.pipeline.Converse(r.Context(), sessionID, query)
	if err != nil {
		s.logger.Error("text input failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, TextResponse{Text: reply})
}

type voicePayload struct {
	Text string `json:"text"`
}

func (s *Server) voiceInputHandler(w http.ResponseWriter, r *http.Request) {
	if !allowPost(w, r) {
		return
	}
	if s.voice == nil {
		writeError(w, http.StatusServiceUnavailable, "voice input is not configured")
		return
	}
	if err := parseForm(r); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	raw := r.PostFormValue("text")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	var payload voicePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		writeError(w, http.StatusBadRequest, "text must be a JSON object with a text field")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if err := s.handleVoice(r.Context(), payload.Text, file); err != nil {
		s.logger.Error("voice input failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleVoice answers a transcript and plays the reply. The recording picks
// the voice: whispered questions get a whispered answer.
func (s *Server) handleVoice(ctx context.Context, transcript string, audio io.Reader) error {
	ctx, span := s.tracer.Start(ctx, "voice_input")
	defer span.End()

	v := s.voice
	query := speech.StripWakeWord(transcript, v.WakeWord)

	inPath := v.Scratch.Path("input", ".wav")
	var outPath string
	defer func() {
		if err := v.Scratch.Remove(inPath, outPath); err != nil {
			s.logger.Warn("failed to remove scratch files", "error", err)
		}
	}()

	if err := saveUpload(inPath, audio); err != nil {
		return err
	}

	reply, err := s.pipeline.Converse(ctx, voiceSessionID, query)
	if err != nil {
		return err
	}

	speaker, mode := v.Speaker, "normal"
	whisper, err := v.Detector.IsWhisper(inPath)
	if err != nil {
		s.logger.Warn("whisper detection failed, using normal voice", "error", err)
	} else if whisper {
		speaker, mode = v.WhisperSpeaker, "whisper"
	}
	metrics.WhisperDetections.WithLabelValues(mode).Inc()
	span.SetAttributes(attribute.String("voice.mode", mode))

	var data []byte
	if err := assistant.Stage(ctx, s.tracer, "synthesize", func(ctx context.Context) error {
		data, err = v.TTS.Synthesize(ctx, reply, speaker)
		return err
	}); err != nil {
		return fmt.Errorf("speech synthesis: %w", err)
	}

	outPath, err = v.Scratch.Save("output", ".wav", data)
	if err != nil {
		return err
	}

	if err := assistant.Stage(ctx, s.tracer, "play", func(ctx context.Context) error {
		return v.Player.Play(ctx, outPath)
	}); err != nil {
		return fmt.Errorf("playback: %w", err)
	}

	return nil
}

func saveUpload(path string, src io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create scratch file: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return fmt.Errorf("failed to save upload: %w", err)
	}
	return f.Close()
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
	})
}
