package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range settings {
		if v, ok := os.LookupEnv(s.env); ok {
			require.NoError(t, os.Unsetenv(s.env))
			t.Cleanup(func() { os.Setenv(s.env, v) })
		} else {
			t.Cleanup(func() { os.Unsetenv(s.env) })
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)
	assert.Equal(t, "3010", cfg.Port)
	assert.Equal(t, "jukebox", cfg.BotIdentity)
	assert.Equal(t, "lobby", cfg.BotChannel)
	assert.Equal(t, 500*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 100, cfg.ChatHistory)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.LogPath)
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PORT=4000\nBOT_CHANNEL=music\nLOG_LEVEL=DEBUG\nCHAT_HISTORY=5\n"), 0o600))
	t.Setenv("BOT_CHANNEL", "radio")
	t.Setenv("PORT", "5000")

	cfg, err := Load([]string{"--env-file", envFile, "--port", "6000"})
	require.NoError(t, err)
	assert.Equal(t, "6000", cfg.Port)
	assert.Equal(t, "radio", cfg.BotChannel)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5, cfg.ChatHistory)
}

func TestLoadEmptyRedisDisablesRelay(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URL", "")

	cfg, err := Load([]string{"--env-file", ""})
	require.NoError(t, err)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearEnv(t)

	_, err := Load([]string{"--env-file", "", "--tick-interval", "soon"})
	assert.ErrorContains(t, err, "tick interval")

	_, err = Load([]string{"--env-file", "", "--chat-history", "0"})
	assert.ErrorContains(t, err, "chat history")

	_, err = Load([]string{"--env-file", "", "--bot-identity", ""})
	assert.ErrorContains(t, err, "bot identity")

	_, err = Load([]string{"--no-such-flag"})
	assert.Error(t, err)
}
