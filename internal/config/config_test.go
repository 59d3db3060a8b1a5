package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load([]string{"--env", filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, 8085, cfg.Port)
	assert.Equal(t, BackendOllama, cfg.Backend)
	assert.Equal(t, StoreMemory, cfg.SessionStore)
	assert.Equal(t, "", cfg.Translate)
	assert.Equal(t, "Тася", cfg.WakeWord)
	require.NoError(t, cfg.Validate())
}

func TestLoadEnvFile(t *testing.T) {
	env := filepath.Join(t.TempDir(), "test.env")
	content := "XTTS_API_SERVER_HOST=tts.local\nXTTS_API_SERVER_PORT=8021\nVOICE_PLAYER_HOST=player.local\nVOICE_PLAYER_PORT=9000\nTRANSLATE=ru\nHTTP_TIMEOUT=15s\n"
	require.NoError(t, os.WriteFile(env, []byte(content), 0o644))
	for _, key := range []string{"XTTS_API_SERVER_HOST", "XTTS_API_SERVER_PORT", "VOICE_PLAYER_HOST", "VOICE_PLAYER_PORT", "TRANSLATE", "HTTP_TIMEOUT"} {
		key := key
		t.Cleanup(func() { os.Unsetenv(key) })
	}

	cfg, err := Load([]string{"-e", env})
	require.NoError(t, err)

	assert.Equal(t, "http://tts.local:8021", cfg.XTTSURL())
	assert.Equal(t, "http://player.local:9000", cfg.PlayerURL())
	assert.Equal(t, "ru", cfg.Translate)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("BACKEND", BackendOpenAI)

	cfg, err := Load([]string{
		"--env", filepath.Join(t.TempDir(), "missing.env"),
		"--port", "9200",
		"--tools-remote", "http://a:1, ws://b:2",
	})
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Port)
	assert.Equal(t, BackendOpenAI, cfg.Backend)
	assert.Equal(t, []string{"http://a:1", "ws://b:2"}, cfg.ToolsRemote)
}

func TestTranslateDisabledSpellings(t *testing.T) {
	for _, v := range []string{"", "false", "None", "off", "0"} {
		t.Setenv("TRANSLATE", v)
		cfg, err := Load([]string{"--env", filepath.Join(t.TempDir(), "missing.env")})
		require.NoError(t, err)
		assert.Empty(t, cfg.Translate, "TRANSLATE=%q", v)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"invalid port", func(c *Config) { c.Port = -1 }, false},
		{"unknown backend", func(c *Config) { c.Backend = "llamafile" }, false},
		{"unknown store", func(c *Config) { c.SessionStore = "etcd" }, false},
		{"redis without addr", func(c *Config) { c.SessionStore = StoreRedis }, false},
		{"redis with addr", func(c *Config) { c.SessionStore = StoreRedis; c.RedisAddr = "localhost:6379" }, true},
		{"sqlite without path", func(c *Config) { c.SessionStore = StoreSQLite; c.SQLitePath = "" }, false},
		{"threshold out of range", func(c *Config) { c.WhisperThreshold = 2 }, false},
		{"zero timeout", func(c *Config) { c.HTTPTimeout = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
