package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultGeminiModel   = "gemini-1.5-flash-latest"
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
)

// GeminiConfig configures the Gemini REST provider
type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxContent int
}

// GeminiProvider calls the generateContent endpoint of the Gemini API
type GeminiProvider struct {
	client     *http.Client
	apiKey     string
	model      string
	baseURL    string
	maxContent int
}

// NewGeminiProvider creates a Gemini provider. A missing key is reported
// per request as ErrNotConfigured.
func NewGeminiProvider(cfg GeminiConfig) *GeminiProvider {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 25 * time.Second
	}
	return &GeminiProvider{
		client:     &http.Client{Timeout: cfg.Timeout},
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		maxContent: cfg.MaxContent,
	}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Analyze sends the prompt and returns the first candidate's text
func (p *GeminiProvider) Analyze(ctx context.Context, html, payload string) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrNotConfigured)
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: BuildPrompt(html, payload, p.maxContent)}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		p.baseURL, url.PathEscape(p.model), url.QueryEscape(p.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: request failed: %v", ErrUpstream, redact(err.Error(), p.apiKey))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: API returned status %d: %s", ErrUpstream, resp.StatusCode, truncate(string(raw), 200))
	}

	var result geminiResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("%w: failed to parse response: %v", ErrUpstream, err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return Safe("Gemini response was empty."), nil
	}
	return firstLine(result.Candidates[0].Content.Parts[0].Text), nil
}

// redact keeps the API key out of error messages that embed the URL
func redact(msg, secret string) string {
	if secret == "" {
		return msg
	}
	msg = strings.ReplaceAll(msg, url.QueryEscape(secret), "REDACTED")
	return strings.ReplaceAll(msg, secret, "REDACTED")
}
