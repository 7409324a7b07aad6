// Package judgeconfig loads the Judge service configuration.
package judgeconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/xsspy/xsspy/internal/analysis"
)

const (
	DefaultListenAddr   = ":5000"
	DefaultMaxBodyBytes = 4 << 20
	DefaultTimeout      = 25 * time.Second
)

// Config is the Judge service configuration
type Config struct {
	ListenAddr   string          `yaml:"listen_addr"`
	LogLevel     string          `yaml:"log_level"`
	LogFormat    string          `yaml:"log_format"` // text or json
	MaxBodyBytes int64           `yaml:"max_body_bytes"`
	Feed         bool            `yaml:"feed"` // serve the /ws verdict feed
	Provider     analysis.Config `yaml:"provider"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		ListenAddr:   DefaultListenAddr,
		LogLevel:     "info",
		LogFormat:    "text",
		MaxBodyBytes: DefaultMaxBodyBytes,
		Feed:         true,
		Provider: analysis.Config{
			Type:       analysis.ProviderGemini,
			Model:      analysis.DefaultGeminiModel,
			Timeout:    DefaultTimeout,
			MaxContent: analysis.DefaultMaxContent,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, the optional env file and finally the process environment.
// Variables already set in the environment win over the env file.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("JUDGE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("JUDGE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("JUDGE_PROVIDER"); v != "" {
		cfg.Provider.Type = analysis.ProviderType(strings.ToLower(v))
	}
	if v := os.Getenv("JUDGE_MODEL"); v != "" {
		cfg.Provider.Model = v
	}
	if v := os.Getenv("JUDGE_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("JUDGE_MAX_CONTENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid JUDGE_MAX_CONTENT %q: %w", v, err)
		}
		cfg.Provider.MaxContent = n
	}

	if v := os.Getenv("JUDGE_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	} else if v := os.Getenv("GEMINI_API_KEY"); v != "" && cfg.Provider.Type == analysis.ProviderGemini {
		cfg.Provider.APIKey = v
	}

	// The Gemini default model makes no sense for other providers.
	if cfg.Provider.Type != analysis.ProviderGemini && cfg.Provider.Model == analysis.DefaultGeminiModel {
		cfg.Provider.Model = ""
	}
	return nil
}

// Validate rejects values the server cannot start with. A missing
// provider credential is not an error: /analyze reports it per request.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen_addr must not be empty")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive, got %d", c.MaxBodyBytes)
	}
	if c.Provider.MaxContent <= 0 {
		return fmt.Errorf("provider.max_content must be positive, got %d", c.Provider.MaxContent)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// Configured reports whether the provider has the credential it needs
func (c *Config) Configured() bool {
	switch c.Provider.Type {
	case analysis.ProviderGemini, "":
		return c.Provider.APIKey != ""
	case analysis.ProviderOpenAI, analysis.ProviderOllama:
		return c.Provider.BaseURL != ""
	default:
		return true
	}
}
