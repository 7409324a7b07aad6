// Package analysis implements the Judge's classification providers.
//
// Every provider answers with a single line starting with "VULNERABLE:" or
// "SAFE:" so the scanner can branch on the prefix alone.
package analysis

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotConfigured means the provider lacks a credential or endpoint.
	ErrNotConfigured = errors.New("analysis provider is not configured")
	// ErrUpstream means the provider could not produce an answer.
	ErrUpstream = errors.New("analysis upstream failed")
)

// Provider classifies an HTML response for a reflected payload
type Provider interface {
	// Analyze returns the classification line for (html, payload).
	Analyze(ctx context.Context, html, payload string) (string, error)
	// Name identifies the provider in logs and /health
	Name() string
}

const (
	prefixVulnerable = "VULNERABLE:"
	prefixSafe       = "SAFE:"
)

// Vulnerable formats a VULNERABLE classification line
func Vulnerable(insight string) string {
	return prefixVulnerable + " " + insight
}

// Safe formats a SAFE classification line
func Safe(reason string) string {
	return prefixSafe + " " + reason
}

// firstLine trims model chatter down to the classification line. Text
// without a recognised prefix is returned trimmed as-is.
func firstLine(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, "`")
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		if strings.HasPrefix(upper, "VULNERABLE") || strings.HasPrefix(upper, "SAFE") {
			return line
		}
	}
	return strings.TrimSpace(text)
}
