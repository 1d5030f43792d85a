package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VIDEORAG_TOP_K", "")
	t.Setenv("VIDEORAG_LLM_PROVIDER", "")

	cfg := Load()
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, ProviderNone, cfg.LLMProvider)
	assert.Equal(t, 5*time.Second, cfg.IndexTimeout)
	assert.Equal(t, 20*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 5000, cfg.TranscriptPreviewChars)
	assert.False(t, cfg.Strict)
	assert.Equal(t, StorageSurrealDB, cfg.Storage)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VIDEORAG_TOP_K", "8")
	t.Setenv("VIDEORAG_LLM_PROVIDER", "Groq")
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("VIDEORAG_PROVIDER_TIMEOUT", "3s")
	t.Setenv("VIDEORAG_STRICT", "true")
	t.Setenv("VIDEORAG_LOG_LEVEL", "debug")
	t.Setenv("VIDEORAG_SCORE_SCALE", "not-a-number")
	t.Setenv("VIDEORAG_STORAGE", "Memory")

	cfg := Load()
	assert.Equal(t, 8, cfg.TopK)
	assert.Equal(t, ProviderGroq, cfg.LLMProvider)
	assert.Equal(t, "gsk_test", cfg.APIKey(ProviderGroq))
	assert.Equal(t, 3*time.Second, cfg.ProviderTimeout)
	assert.True(t, cfg.Strict)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 100.0, cfg.ScoreScale)
	assert.Equal(t, StorageMemory, cfg.Storage)
}

func TestLoadFile(t *testing.T) {
	t.Setenv("VIDEORAG_COLLECTION", "")
	t.Setenv("VIDEORAG_TOP_K", "3")

	path := filepath.Join(t.TempDir(), "videorag.yaml")
	content := `
collection: lectures
top_k: 7
provider_timeout: 10s
llm_provider: ollama
log_level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "lectures", cfg.Collection)
	assert.Equal(t, 3, cfg.TopK, "environment overrides file")
	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, ProviderOllama, cfg.LLMProvider)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("top_k: [unclosed"), 0o644))
	_, err = LoadFile(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"top_k too large", func(c *Config) { c.TopK = 11 }, "TopK"},
		{"unknown provider", func(c *Config) { c.LLMProvider = "cohere" }, "LLMProvider"},
		{"zero timeout", func(c *Config) { c.ProviderTimeout = 0 }, "ProviderTimeout"},
		{"bad stitch url", func(c *Config) { c.StitchURL = "not a url" }, "StitchURL"},
		{"embed model missing", func(c *Config) { c.EmbedProvider = ProviderOllama }, "embed model"},
		{"memory storage", func(c *Config) { c.Storage = StorageMemory }, ""},
		{"unknown storage", func(c *Config) { c.Storage = "sqlite" }, "Storage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("ranked segments", "video_id", "abc")

	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, stderr.String(), "video_id=abc")
	assert.Contains(t, file.String(), `"video_id":"abc"`)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("WARNING"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}
