// Package judge talks to the remote classification service that decides
// whether a reflected payload is exploitable.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// AnalyzeRequest is the body POSTed to the Judge.
type AnalyzeRequest struct {
	HTMLContent string `json:"html_content"`
	Payload     string `json:"payload"`
}

// AnalyzeResponse is the body the Judge answers with on success.
type AnalyzeResponse struct {
	Analysis *string `json:"analysis"`
}

// ErrorResponse is the body the Judge answers with on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ClientConfig configures a Client.
type ClientConfig struct {
	URL     string
	Timeout time.Duration
	// MaxContentSize caps the html_content sent; 0 disables truncation.
	MaxContentSize int
	Logger         *logrus.Entry
}

// Client is the scanner-side ClassificationClient.
// It never returns an error: every failure folds into an Inconclusive verdict.
type Client struct {
	httpClient *http.Client
	config     ClientConfig
	log        *logrus.Entry
}

// NewClient creates a Judge client
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		log:        log.WithField("component", "judge-client"),
	}
}

// URL returns the analysis endpoint this client posts to.
func (c *Client) URL() string {
	return c.config.URL
}

// Classify submits the response body and payload to the Judge.
func (c *Client) Classify(ctx context.Context, body, payload string) Verdict {
	if c.config.MaxContentSize > 0 && len(body) > c.config.MaxContentSize {
		body = body[:c.config.MaxContentSize]
	}

	data, err := json.Marshal(AnalyzeRequest{HTMLContent: body, Payload: payload})
	if err != nil {
		return inconclusive(fmt.Sprintf("encoding request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(data))
	if err != nil {
		return inconclusive(fmt.Sprintf("building request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WithError(err).Debug("judge unreachable")
		return inconclusive(fmt.Sprintf("could not connect to analysis server at %s: %v", c.config.URL, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return inconclusive(fmt.Sprintf("reading analysis response: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		reason := fmt.Sprintf("analysis server returned status %d", resp.StatusCode)
		var apiErr ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			reason += ": " + apiErr.Error
		}
		return inconclusive(reason)
	}

	var result AnalyzeResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return inconclusive(fmt.Sprintf("malformed analysis response: %v", err))
	}
	if result.Analysis == nil {
		return inconclusive("invalid response from analysis server: missing analysis")
	}

	return ParseAnalysis(*result.Analysis)
}
