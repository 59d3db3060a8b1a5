package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"VoiceGate/internal/config"
	"VoiceGate/internal/metrics"
	"VoiceGate/internal/speech"
)

// maxFormMemory bounds the in-memory part of multipart bodies
const maxFormMemory = 32 << 20

// Pipeline answers text queries; *assistant.Assistant implements it
type Pipeline interface {
	Generate(ctx context.Context, transcript string) (string, error)
	Converse(ctx context.Context, sessionID, query string) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, speaker string) ([]byte, error)
}

type Playback interface {
	Play(ctx context.Context, path string) error
}

type WhisperDetector interface {
	IsWhisper(path string) (bool, error)
}

// Voice bundles what /voice_input needs beyond the text pipeline
type Voice struct {
	TTS            Synthesizer
	Player         Playback
	Detector       WhisperDetector
	Scratch        *speech.Scratch
	WakeWord       string
	Speaker        string
	WhisperSpeaker string
}

// Server represents the HTTP server
type Server struct {
	pipeline   Pipeline
	voice      *Voice
	httpServer *http.Server
	tracer     trace.Tracer
	startTime  time.Time
	logger     *slog.Logger
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime,omitempty"`
}

// TextResponse carries a reply
type TextResponse struct {
	Text string `json:"text"`
}

// ErrorResponse carries a failure reason
type ErrorResponse struct {
	Error string `json:"error"`
}

// New creates a new HTTP server
func New(cfg *config.Config, pipeline Pipeline, voice *Voice, tracer trace.Tracer, logger *slog.Logger) *Server {
	s := &Server{
		pipeline:  pipeline,
		voice:     voice,
		tracer:    tracer,
		startTime: time.Now(),
		logger:    logger.With("component", "server"),
	}

	mux := http.NewServeMux()
	mux.Handle("/generate", s.instrument("/generate", s.generateHandler))
	mux.Handle("/text_input", s.instrument("/text_input", s.textInputHandler))
	mux.Handle("/voice_input", s.instrument("/voice_input", s.voiceInputHandler))
	mux.Handle("/health", s.instrument("/health", s.healthHandler))
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request count and latency per endpoint.
func (s *Server) instrument(endpoint string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		h(rec, r)

		metrics.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
		metrics.RequestCount.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
		s.logger.Debug("request served",
			"method", r.Method,
			"path", endpoint,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
