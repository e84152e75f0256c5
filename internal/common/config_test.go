package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	cfg.Run.DataDir = t.TempDir()
	cfg.Extraction.APIKey = "sk-test"
	return cfg
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, "runs", cfg.Run.OutputRoot)
	require.Equal(t, "csv", cfg.Run.OutputFormat)
	require.Equal(t, 4, cfg.Run.Concurrency)
	require.Equal(t, 20, cfg.Run.FlushEvery)
	require.Equal(t, "gemini-2.5-flash", cfg.Extraction.Model)
	require.Equal(t, 120*time.Second, cfg.Extraction.Timeout)
	require.Equal(t, 3000, cfg.Image.MaxDim)
}

func TestLoadConfigYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
run:
  data_dir: /data/journals
  output_format: jsonl
  concurrency: 8
  include:
    - "1879/**"
extraction:
  model: gemini-2.5-pro
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "/data/journals", cfg.Run.DataDir)
	require.Equal(t, "jsonl", cfg.Run.OutputFormat)
	require.Equal(t, 8, cfg.Run.Concurrency)
	require.Equal(t, []string{"1879/**"}, cfg.Run.Include)
	require.Equal(t, "gemini-2.5-pro", cfg.Extraction.Model)
	// Untouched keys keep their defaults.
	require.Equal(t, 20, cfg.Run.FlushEvery)
}

func TestLoadConfigEnvOverridesYAML(t *testing.T) {
	t.Setenv("JOURNALIST_CONCURRENCY", "2")
	t.Setenv("GEMINI_API_KEY", "sk-env")
	t.Setenv("GEMINI_TIMEOUT", "30s")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Run.Concurrency)
	require.Equal(t, "sk-env", cfg.Extraction.APIKey)
	require.Equal(t, 30*time.Second, cfg.Extraction.Timeout)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	require.NoError(t, validConfig(t).Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*Config)
		sentinel error
	}{
		{"missing data_dir", func(c *Config) { c.Run.DataDir = "" }, ErrInvalidInput},
		{"data_dir not a directory", func(c *Config) { c.Run.DataDir = filepath.Join(c.Run.DataDir, "absent") }, ErrInvalidInput},
		{"zero concurrency", func(c *Config) { c.Run.Concurrency = 0 }, ErrInvalidInput},
		{"zero flush_every", func(c *Config) { c.Run.FlushEvery = 0 }, ErrInvalidInput},
		{"unknown format", func(c *Config) { c.Run.OutputFormat = "parquet" }, ErrUnsupportedFormat},
		{"missing api key", func(c *Config) { c.Extraction.APIKey = "" }, ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig(t)
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.ErrorIs(t, err, tc.sentinel)
		})
	}
}

func TestSnapshotNeverContainsAPIKey(t *testing.T) {
	cfg := validConfig(t)
	cfg.Extraction.APIKey = "sk-secret-value"
	snap, err := cfg.Snapshot()
	require.NoError(t, err)
	require.NotContains(t, string(snap), "sk-secret-value")
	require.Contains(t, string(snap), "data_dir")
}

func TestAppErrorChain(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapError(cause, "flush batch")
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "flush batch")

	app := NewAppError("CONFIG_ERROR", "data_dir is required", ErrInvalidInput)
	require.ErrorIs(t, app, ErrInvalidInput)
}
