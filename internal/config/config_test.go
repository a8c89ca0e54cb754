package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test-123")

	path := writeConfig(t, `
server:
  port: "8080"
  log_level: ${LOG_LEVEL:-info}
cache:
  capacity: 500
embeddings:
  api_key: ${TEST_OPENAI_KEY}
  model: text-embedding-3-small
generation:
  provider: OpenAI
  model: gpt-4o-mini
  providers:
    OpenAI:
      api_key: ${TEST_OPENAI_KEY}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "sk-test-123", cfg.Embeddings.APIKey)
	assert.Equal(t, 500, cfg.Cache.Capacity)

	// Provider keys are lowercased for case-insensitive lookup.
	assert.Equal(t, "openai", cfg.Generation.Provider)
	_, ok := cfg.Generation.Providers["openai"]
	assert.True(t, ok)

	// Unset cache fields pick up defaults.
	assert.Equal(t, 768, cfg.Cache.Dimension)
	assert.InDelta(t, 0.88, cfg.Cache.Thresholds.Initial.Medium, 1e-9)
	assert.Equal(t, 80, cfg.Batching.BaseWaitMs)
}

func TestEnvSubstitutionDefaults(t *testing.T) {
	assert.Equal(t, "fallback", substituteEnvVars("${DOES_NOT_EXIST:-fallback}"))
	assert.Equal(t, "", substituteEnvVars("${DOES_NOT_EXIST}"))

	t.Setenv("SET_VAR", "real")
	assert.Equal(t, "real", substituteEnvVars("${SET_VAR:-fallback}"))
}

func TestLoadFromFileRejectsBadPaths(t *testing.T) {
	_, err := LoadFromFile("../../etc/passwd.yaml")
	assert.Error(t, err)

	_, err = LoadFromFile("config.json")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.MissingFields, "server.port")
	assert.Contains(t, vErr.MissingFields, "embeddings.api_key")
}
