package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.HTTPPort)
	require.Equal(t, 20, cfg.EventBatchSize)
	require.Equal(t, 2*time.Second, cfg.EventFlushInterval)
	require.Equal(t, 30, cfg.EventRetentionDays)
	require.Equal(t, 30*24*time.Hour, cfg.EventRetention())
	require.Equal(t, "gpt-4o-mini", cfg.LLMModel)
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canopy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_port: 9090
llm_model: llama-3.1-8b
event_batch_size: 50
`), 0o644))
	t.Setenv("CANOPY_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.HTTPPort)
	require.Equal(t, "llama-3.1-8b", cfg.LLMModel)
	require.Equal(t, 50, cfg.EventBatchSize)
	// Untouched keys keep their defaults.
	require.Equal(t, 30, cfg.EventRetentionDays)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canopy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_port: 9090\n"), 0o644))
	t.Setenv("CANOPY_CONFIG", path)
	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("EVENT_FLUSH_INTERVAL_MS", "500")
	t.Setenv("LLM_TIMEOUT_MS", "1500")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.HTTPPort)
	require.Equal(t, 500*time.Millisecond, cfg.EventFlushInterval)
	require.Equal(t, 1500*time.Millisecond, cfg.LLMTimeout)
}

func TestLoadMissingFileFails(t *testing.T) {
	t.Setenv("CANOPY_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	require.Error(t, err)
}
