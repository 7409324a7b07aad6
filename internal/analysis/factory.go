package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ProviderType names a provider implementation
type ProviderType string

const (
	ProviderGemini    ProviderType = "gemini"
	ProviderOpenAI    ProviderType = "openai"
	ProviderOllama    ProviderType = "ollama"
	ProviderHeuristic ProviderType = "heuristic"
	ProviderBrowser   ProviderType = "browser"
)

// Config selects and configures a provider
type Config struct {
	Type        ProviderType  `yaml:"type"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxContent  int           `yaml:"max_content"`
	BrowserPath string        `yaml:"browser_path"`
	BrowserWait time.Duration `yaml:"browser_wait"`
}

// NewProvider builds the provider named by cfg.Type
func NewProvider(cfg Config, log *logrus.Entry) (Provider, error) {
	if cfg.MaxContent <= 0 {
		cfg.MaxContent = DefaultMaxContent
	}

	switch ProviderType(strings.ToLower(string(cfg.Type))) {
	case ProviderGemini, "":
		return NewGeminiProvider(GeminiConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			MaxContent: cfg.MaxContent,
		}), nil

	case ProviderOpenAI, ProviderOllama:
		// A missing base_url is reported per request, like a missing key.
		format := FormatOpenAI
		if ProviderType(strings.ToLower(string(cfg.Type))) == ProviderOllama {
			format = FormatOllama
		}
		return NewGenericProvider(GenericConfig{
			Name:       fmt.Sprintf("%s-%s", format, cfg.Model),
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Format:     format,
			Timeout:    cfg.Timeout,
			MaxContent: cfg.MaxContent,
		}), nil

	case ProviderHeuristic:
		return NewHeuristicProvider(cfg.MaxContent), nil

	case ProviderBrowser:
		return NewBrowserProvider(BrowserConfig{
			BrowserPath: cfg.BrowserPath,
			Wait:        cfg.BrowserWait,
			MaxContent:  cfg.MaxContent,
			Logger:      log,
		}), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}
