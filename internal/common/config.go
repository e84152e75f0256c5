package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nbirkbak/journalist/constants"
)

// Config holds all application configuration. It is constructed once at
// process start and passed into each component; there is no ambient global.
type Config struct {
	Run        RunConfig        `yaml:"run"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Image      ImageConfig      `yaml:"image"`
}

// RunConfig holds engine and output configuration.
type RunConfig struct {
	DataDir      string   `yaml:"data_dir"`
	OutputRoot   string   `yaml:"output_root"`
	OutputName   string   `yaml:"output_name"`
	OutputFormat string   `yaml:"output_format"`
	Include      []string `yaml:"include"`
	Concurrency  int      `yaml:"concurrency"`
	FlushEvery   int      `yaml:"flush_every"`
	ContinueFrom string   `yaml:"continue_from"`
	Verbose      bool     `yaml:"verbose"`
}

// ExtractionConfig holds generation service configuration.
type ExtractionConfig struct {
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"-"`
	Prompt  string        `yaml:"prompt"`
	Timeout time.Duration `yaml:"timeout"`
}

// ImageConfig holds preprocessing configuration.
type ImageConfig struct {
	MaxDim         int     `yaml:"max_dim"`
	MarginPx       int     `yaml:"margin_px"`
	ContrastFactor float64 `yaml:"contrast_factor"`
	OutputFormat   string  `yaml:"output_format"`
}

// LoadConfig builds configuration from defaults, an optional YAML file, and
// environment variable overrides, in that order.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Run: RunConfig{
			OutputRoot:   "runs",
			OutputName:   "dataset",
			OutputFormat: constants.TableExt,
			Concurrency:  4,
			FlushEvery:   20,
		},
		Extraction: ExtractionConfig{
			Model:   "gemini-2.5-flash",
			BaseURL: "https://generativelanguage.googleapis.com",
			Timeout: 120 * time.Second,
		},
		Image: ImageConfig{
			MaxDim:         3000,
			ContrastFactor: 1.1,
			OutputFormat:   "PNG",
		},
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, WrapError(err, "read config file")
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, WrapError(err, "parse config file")
		}
	}

	cfg.Run.OutputRoot = getEnv("JOURNALIST_OUTPUT_ROOT", cfg.Run.OutputRoot)
	cfg.Run.Concurrency = getEnvAsInt("JOURNALIST_CONCURRENCY", cfg.Run.Concurrency)
	cfg.Run.FlushEvery = getEnvAsInt("JOURNALIST_FLUSH_EVERY", cfg.Run.FlushEvery)
	cfg.Extraction.Model = getEnv("GEMINI_MODEL", cfg.Extraction.Model)
	cfg.Extraction.BaseURL = getEnv("GEMINI_BASE_URL", cfg.Extraction.BaseURL)
	cfg.Extraction.APIKey = getEnv("GEMINI_API_KEY", cfg.Extraction.APIKey)
	cfg.Extraction.Timeout = getEnvAsDuration("GEMINI_TIMEOUT", cfg.Extraction.Timeout)

	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the loaded configuration before any work is dispatched.
func (c *Config) Validate() error {
	if c.Run.DataDir == "" {
		return NewAppError("CONFIG_ERROR", "data_dir is required", ErrInvalidInput)
	}
	if st, err := os.Stat(c.Run.DataDir); err != nil || !st.IsDir() {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("data_dir %q is not a directory", c.Run.DataDir), ErrInvalidInput)
	}
	if c.Run.Concurrency < 1 {
		return NewAppError("CONFIG_ERROR", "concurrency must be >= 1", ErrInvalidInput)
	}
	if c.Run.FlushEvery < 1 {
		return NewAppError("CONFIG_ERROR", "flush_every must be >= 1", ErrInvalidInput)
	}
	switch c.Run.OutputFormat {
	case constants.TableExt, constants.LineDelimitedExt:
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("output_format %q not recognized", c.Run.OutputFormat), ErrUnsupportedFormat)
	}
	if c.Extraction.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", ErrInvalidInput)
	}
	return nil
}

// Snapshot serializes the configuration for the run workspace. The API key is
// never written to disk.
func (c *Config) Snapshot() ([]byte, error) {
	return yaml.Marshal(c)
}
