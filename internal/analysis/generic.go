package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIFormat selects the wire format of a generic provider
type APIFormat string

const (
	// FormatOpenAI covers OpenAI-compatible chat completion servers
	// (LocalAI, LM Studio, vLLM).
	FormatOpenAI APIFormat = "openai"
	// FormatOllama is the Ollama /api/generate endpoint
	FormatOllama APIFormat = "ollama"
)

// GenericConfig configures an HTTP model server provider
type GenericConfig struct {
	Name       string
	Model      string
	BaseURL    string
	APIKey     string // optional
	Format     APIFormat
	Timeout    time.Duration
	MaxContent int
}

// GenericProvider talks to a self-hosted or OpenAI-compatible model server
type GenericProvider struct {
	client     *http.Client
	name       string
	model      string
	baseURL    string
	apiKey     string
	format     APIFormat
	maxContent int
}

// NewGenericProvider creates a provider for cfg
func NewGenericProvider(cfg GenericConfig) *GenericProvider {
	if cfg.Format == "" {
		cfg.Format = FormatOpenAI
	}
	if cfg.Name == "" {
		cfg.Name = string(cfg.Format)
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &GenericProvider{
		client:     &http.Client{Timeout: cfg.Timeout},
		name:       cfg.Name,
		model:      cfg.Model,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		format:     cfg.Format,
		maxContent: cfg.MaxContent,
	}
}

func (p *GenericProvider) Name() string {
	return p.name
}

// Analyze sends the prompt and returns the model's classification line
func (p *GenericProvider) Analyze(ctx context.Context, html, payload string) (string, error) {
	if p.baseURL == "" {
		return "", fmt.Errorf("%w: %s provider requires a base URL", ErrNotConfigured, p.name)
	}

	req, err := p.buildRequest(ctx, BuildPrompt(html, payload, p.maxContent))
	if err != nil {
		return "", fmt.Errorf("%w: failed to build request: %v", ErrUpstream, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: request failed: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: API returned status %d: %s", ErrUpstream, resp.StatusCode, truncate(string(body), 200))
	}

	content, err := p.parseResponse(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return firstLine(content), nil
}

func (p *GenericProvider) buildRequest(ctx context.Context, prompt string) (*http.Request, error) {
	var (
		endpoint    string
		requestBody map[string]interface{}
	)

	switch p.format {
	case FormatOpenAI:
		endpoint = p.baseURL + "/v1/chat/completions"
		requestBody = map[string]interface{}{
			"model": p.model,
			"messages": []map[string]string{
				{"role": "user", "content": prompt},
			},
			"temperature": 0,
		}
	case FormatOllama:
		endpoint = p.baseURL + "/api/generate"
		requestBody = map[string]interface{}{
			"model":  p.model,
			"prompt": prompt,
			"stream": false,
			"options": map[string]interface{}{
				"temperature": 0,
			},
		}
	default:
		return nil, fmt.Errorf("unsupported API format: %s", p.format)
	}

	data, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	return req, nil
}

func (p *GenericProvider) parseResponse(body []byte) (string, error) {
	switch p.format {
	case FormatOpenAI:
		var resp struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to parse OpenAI response: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no choices in response")
		}
		return resp.Choices[0].Message.Content, nil

	case FormatOllama:
		var resp struct {
			Response string `json:"response"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to parse Ollama response: %w", err)
		}
		return resp.Response, nil

	default:
		return "", fmt.Errorf("unsupported format: %s", p.format)
	}
}
