package scanner

import (
	"context"
	"fmt"
	"regexp"

	"github.com/xsspy/xsspy/internal/waf"
)

// paramPattern matches "?name=" or "&name=" anywhere in a response body.
var paramPattern = regexp.MustCompile(`[?&]([a-zA-Z0-9_\[\]]+)=`)

// Discovery is the outcome of probing the base URL
type Discovery struct {
	Params     []string
	StatusCode int
	WAF        string // empty when no WAF was fingerprinted
}

// Discoverer extracts candidate query parameter names from the base URL's body
type Discoverer struct {
	fetcher *HTTPFetcher
}

// NewDiscoverer creates a parameter discoverer
func NewDiscoverer(fetcher *HTTPFetcher) *Discoverer {
	return &Discoverer{fetcher: fetcher}
}

// Discover issues a single GET and collects distinct parameter names in
// first-seen order. Transport failures and non-2xx answers wrap
// ErrDiscoveryFailed; the caller decides whether to abort.
func (d *Discoverer) Discover(ctx context.Context, baseURL string) (*Discovery, error) {
	resp, err := d.fetcher.Get(ctx, baseURL)
	if err != nil {
		return &Discovery{}, NewScanError("parameter discovery", baseURL, fmt.Errorf("%w: %w", ErrDiscoveryFailed, err))
	}

	result := &Discovery{
		StatusCode: resp.StatusCode,
		WAF:        waf.Identify(resp.StatusCode, resp.Header, resp.Body),
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, NewScanError("parameter discovery", baseURL,
			fmt.Errorf("%w: %w: %d", ErrDiscoveryFailed, ErrUnexpectedStatus, resp.StatusCode))
	}

	result.Params = ExtractParams(resp.Body)
	return result, nil
}

// ExtractParams returns the distinct parameter names referenced in body.
func ExtractParams(body string) []string {
	seen := make(map[string]bool)
	var params []string
	for _, match := range paramPattern.FindAllStringSubmatch(body, -1) {
		name := match[1]
		if !seen[name] {
			seen[name] = true
			params = append(params, name)
		}
	}
	return params
}
