package scanner

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPConfig holds configuration for target requests
type HTTPConfig struct {
	Timeout     time.Duration
	ProxyURL    string
	Cookies     string
	Headers     map[string]string
	UserAgent   string
	MaxBodySize int64
}

// Response is a fetched target response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       string
}

// HTTPFetcher issues GET requests against the target.
// TLS verification is disabled: targets are frequently self-signed lab hosts.
type HTTPFetcher struct {
	config HTTPConfig
	client *http.Client
}

// NewHTTPFetcher creates a fetcher for target requests
func NewHTTPFetcher(cfg HTTPConfig) (*HTTPFetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultFetchTimeout
	}
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
	}

	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &HTTPFetcher{
		config: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}, nil
}

// Get performs a GET request and reads up to MaxBodySize bytes of the body.
func (f *HTTPFetcher) Get(ctx context.Context, targetURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	f.setHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrTransport, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       string(body),
	}, nil
}

// Fetch returns the body of targetURL regardless of its status code.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL string) (string, error) {
	resp, err := f.Get(ctx, targetURL)
	if err != nil {
		return "", err
	}
	return resp.Body, nil
}

func (f *HTTPFetcher) setHeaders(req *http.Request) {
	if f.config.UserAgent != "" {
		req.Header.Set("User-Agent", f.config.UserAgent)
	}
	if f.config.Cookies != "" {
		req.Header.Set("Cookie", f.config.Cookies)
	}
	for k, v := range f.config.Headers {
		req.Header.Set(k, v)
	}
}
