package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"VoiceGate/internal/agent"
	"VoiceGate/internal/assistant"
	"VoiceGate/internal/backend"
	"VoiceGate/internal/cache"
	"VoiceGate/internal/config"
	"VoiceGate/internal/proxy"
	"VoiceGate/internal/server"
	"VoiceGate/internal/session"
	"VoiceGate/internal/speech"
	"VoiceGate/internal/telemetry"
	"VoiceGate/internal/tools"
	"VoiceGate/internal/translate"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, logCloser, err := telemetry.InitLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, meter, shutdownTelemetry, err := telemetry.InitTelemetry(ctx, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer shutdownTelemetry()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	sessions := session.NewManager(store)
	defer sessions.Close()

	llmClient, err := proxy.NewClient(cfg.SocksProxy, cfg.HTTPTimeout)
	if err != nil {
		return fmt.Errorf("failed to create LLM HTTP client: %w", err)
	}
	llm, err := backend.New(cfg, llmClient, tracer, meter)
	if err != nil {
		return fmt.Errorf("failed to initialize backend: %w", err)
	}

	registry := tools.Connect(ctx, cfg.ToolsLocal, cfg.ToolsRemote, logger)
	defer registry.Close()

	prompts, err := agent.LoadPrompts(cfg.AgentsFile)
	if err != nil {
		return err
	}

	var replies *cache.Replies
	if cfg.CacheReplies {
		replies = cache.NewReplies()
	}

	dispatcher := agent.NewDefaultDispatcher(
		agent.NewWeatherAgent(llm, prompts.Weather, registry, cfg.WeatherTool, logger),
		agent.NewSearchAgent(llm, prompts.Search, registry, cfg.SearchTool, logger),
		agent.NewChatterAgent(llm, prompts.Chat, logger),
		replies, logger)
	supervisor := agent.NewSupervisor(llm, prompts.Supervisor, logger)

	// local services are reached directly, never through the SOCKS proxy
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	translator := translate.New(cfg.Translate, cfg.TranslateURL, httpClient)

	pipeline := assistant.New(sessions, supervisor, dispatcher, translator, tracer, logger)

	scratch, err := speech.NewScratch(cfg.ScratchDir)
	if err != nil {
		return err
	}
	voice := &server.Voice{
		TTS:            speech.NewXTTS(cfg.XTTSURL(), cfg.TTSLanguage, httpClient),
		Player:         speech.NewPlayer(cfg.PlayerURL(), httpClient),
		Detector:       speech.WhisperDetector{Threshold: cfg.WhisperThreshold},
		Scratch:        scratch,
		WakeWord:       cfg.WakeWord,
		Speaker:        cfg.TTSSpeaker,
		WhisperSpeaker: cfg.WhisperSpeaker,
	}

	srv := server.New(cfg, pipeline, voice, tracer, logger)

	logger.Info("voicegate starting",
		"port", cfg.Port,
		"backend", llm.Name(),
		"session_store", cfg.SessionStore,
		"translate", cfg.Translate,
		"tools", len(registry.Tools()))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	return nil
}

func openStore(cfg *config.Config) (session.Store, error) {
	switch cfg.SessionStore {
	case config.StoreSQLite:
		db, err := telemetry.InitDB(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return session.NewSQLiteStore(db), nil
	case config.StoreRedis:
		store, err := session.NewRedisStore(cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return store, nil
	default:
		slog.Info("using in-memory session store")
		return session.NewMemoryStore(), nil
	}
}
