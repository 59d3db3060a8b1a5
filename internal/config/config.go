package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	BackendOllama    = "ollama"
	BackendAnthropic = "anthropic"
	BackendGrok      = "grok"
	BackendOpenAI    = "openai"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds application configuration
type Config struct {
	Port   int
	Debug  bool
	LogDir string

	Backend     string
	OllamaURL   string
	OllamaModel string // Model specification in format "model:version" (e.g., "llama3:latest")
	OpenAIModel string
	SocksProxy  string // host:port of a SOCKS5 proxy for LLM traffic, empty for direct
	HTTPTimeout time.Duration

	Translate    string // Target language of the caller, empty disables translation
	TranslateURL string

	XTTSHost         string
	XTTSPort         int
	PlayerHost       string
	PlayerPort       int
	WakeWord         string
	TTSSpeaker       string
	TTSLanguage      string
	WhisperSpeaker   string
	WhisperThreshold float64
	ScratchDir       string

	SessionStore string
	SQLitePath   string
	RedisAddr    string

	// Tool servers used by the weather and search responders
	ToolsLocal   []string // Commands or scripts speaking JSON-RPC over stdio
	ToolsRemote  []string // URLs of remote tool servers (http:// or ws://)
	WeatherTool  string
	SearchTool   string
	AgentsFile   string // Optional YAML file overriding agent prompts
	CacheReplies bool
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:             8085,
		LogDir:           "logs",
		Backend:          BackendOllama,
		OllamaURL:        "http://localhost:11434",
		OllamaModel:      "llama3:latest",
		OpenAIModel:      "gpt-4o-mini",
		HTTPTimeout:      60 * time.Second,
		TranslateURL:     "http://localhost:5000",
		XTTSHost:         "localhost",
		XTTSPort:         8020,
		PlayerHost:       "localhost",
		PlayerPort:       8090,
		WakeWord:         "Тася",
		TTSSpeaker:       "kelex",
		TTSLanguage:      "ru",
		WhisperSpeaker:   "whisper",
		WhisperThreshold: 0.02,
		ScratchDir:       "tmp",
		SessionStore:     StoreMemory,
		SQLitePath:       "voicegate.db",
		WeatherTool:      "get_weather",
		SearchTool:       "web_search",
	}
}

// Load builds the configuration from an env file, the process environment
// and command line flags, in increasing order of precedence.
func Load(args []string) (*Config, error) {
	pre := pflag.NewFlagSet("env", pflag.ContinueOnError)
	pre.ParseErrorsWhitelist.UnknownFlags = true
	pre.SetOutput(io.Discard)
	envFile := pre.StringP("env", "e", ".env", "Env file path")
	_ = pre.Parse(args)

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", *envFile, err)
	}

	cfg := Default()
	cfg.applyEnv()

	var toolsLocal, toolsRemote string
	fs := pflag.NewFlagSet("voicegate", pflag.ContinueOnError)
	fs.StringP("env", "e", *envFile, "Env file path")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "HTTP listen port")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug logging to the console")
	fs.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Directory for log, trace and metric files")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "LLM backend (ollama|anthropic|grok|openai)")
	fs.StringVar(&cfg.OllamaModel, "ollama-model", cfg.OllamaModel, "Ollama model specification (format: model:version)")
	fs.StringVar(&cfg.OpenAIModel, "openai-model", cfg.OpenAIModel, "OpenAI chat model")
	fs.StringVar(&cfg.SocksProxy, "proxy", cfg.SocksProxy, "SOCKS5 proxy address for LLM traffic")
	fs.DurationVar(&cfg.HTTPTimeout, "http-timeout", cfg.HTTPTimeout, "Timeout for outbound HTTP calls")
	fs.StringVar(&cfg.Translate, "translate", cfg.Translate, "Caller language to translate from and back to (empty disables)")
	fs.StringVar(&cfg.SessionStore, "store", cfg.SessionStore, "Session store (memory|sqlite|redis)")
	fs.StringVar(&cfg.SQLitePath, "sqlite", cfg.SQLitePath, "SQLite database path")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address")
	fs.StringVar(&cfg.ScratchDir, "scratch-dir", cfg.ScratchDir, "Directory for temporary audio files")
	fs.StringVar(&cfg.AgentsFile, "agents", cfg.AgentsFile, "YAML file overriding agent prompts")
	fs.BoolVar(&cfg.CacheReplies, "cache", cfg.CacheReplies, "Memoize responder replies per history")
	fs.StringVar(&toolsLocal, "tools-local", "", "Comma-separated local tool server commands")
	fs.StringVar(&toolsRemote, "tools-remote", "", "Comma-separated remote tool server URLs")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Translate = languageOrEmpty(cfg.Translate)
	if toolsLocal != "" {
		cfg.ToolsLocal = splitList(toolsLocal)
	}
	if toolsRemote != "" {
		cfg.ToolsRemote = splitList(toolsRemote)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = envInt("PORT", c.Port)
	c.Debug = envBool("DEBUG", c.Debug)
	c.LogDir = envString("LOG_DIR", c.LogDir)
	c.Backend = envString("BACKEND", c.Backend)
	c.OllamaURL = envString("OLLAMA_URL", c.OllamaURL)
	c.OllamaModel = envString("OLLAMA_MODEL", c.OllamaModel)
	c.OpenAIModel = envString("OPENAI_MODEL", c.OpenAIModel)
	c.SocksProxy = envString("SOCKS_PROXY", c.SocksProxy)
	c.HTTPTimeout = envDuration("HTTP_TIMEOUT", c.HTTPTimeout)
	c.Translate = languageOrEmpty(envString("TRANSLATE", c.Translate))
	c.TranslateURL = envString("TRANSLATE_URL", c.TranslateURL)
	c.XTTSHost = envString("XTTS_API_SERVER_HOST", c.XTTSHost)
	c.XTTSPort = envInt("XTTS_API_SERVER_PORT", c.XTTSPort)
	c.PlayerHost = envString("VOICE_PLAYER_HOST", c.PlayerHost)
	c.PlayerPort = envInt("VOICE_PLAYER_PORT", c.PlayerPort)
	c.WakeWord = envString("WAKE_WORD", c.WakeWord)
	c.TTSSpeaker = envString("TTS_SPEAKER", c.TTSSpeaker)
	c.TTSLanguage = envString("TTS_LANGUAGE", c.TTSLanguage)
	c.WhisperSpeaker = envString("WHISPER_SPEAKER", c.WhisperSpeaker)
	c.WhisperThreshold = envFloat("WHISPER_THRESHOLD", c.WhisperThreshold)
	c.ScratchDir = envString("SCRATCH_DIR", c.ScratchDir)
	c.SessionStore = envString("SESSION_STORE", c.SessionStore)
	c.SQLitePath = envString("SQLITE_PATH", c.SQLitePath)
	c.RedisAddr = envString("REDIS_ADDR", c.RedisAddr)
	c.ToolsLocal = envList("TOOLS_LOCAL", c.ToolsLocal)
	c.ToolsRemote = envList("TOOLS_REMOTE", c.ToolsRemote)
	c.WeatherTool = envString("WEATHER_TOOL", c.WeatherTool)
	c.SearchTool = envString("SEARCH_TOOL", c.SearchTool)
	c.AgentsFile = envString("AGENTS_FILE", c.AgentsFile)
	c.CacheReplies = envBool("CACHE_REPLIES", c.CacheReplies)
}

// Validate reports the first inconsistency in the configuration.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch c.Backend {
	case BackendOllama, BackendAnthropic, BackendGrok, BackendOpenAI:
	default:
		return fmt.Errorf("unknown backend: %s", c.Backend)
	}

	switch c.SessionStore {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite store requires a database path")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.New("redis store requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown session store: %s", c.SessionStore)
	}

	if c.WhisperThreshold < 0 || c.WhisperThreshold > 1 {
		return fmt.Errorf("whisper threshold must be within [0, 1], got %v", c.WhisperThreshold)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("invalid http timeout: %s", c.HTTPTimeout)
	}

	return nil
}

// XTTSURL is the base URL of the text-to-speech server.
func (c *Config) XTTSURL() string {
	return fmt.Sprintf("http://%s:%d", c.XTTSHost, c.XTTSPort)
}

// PlayerURL is the base URL of the playback service.
func (c *Config) PlayerURL() string {
	return fmt.Sprintf("http://%s:%d", c.PlayerHost, c.PlayerPort)
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

func envFloat(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return d
}

func envList(key string, def []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	return splitList(v)
}

// languageOrEmpty maps the usual "disabled" spellings to an empty language.
func languageOrEmpty(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "off", "no", "none":
		return ""
	}
	return strings.TrimSpace(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
