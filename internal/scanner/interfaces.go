// Package scanner - Interface definitions for the collaborators of a scan
package scanner

import (
	"context"

	"github.com/xsspy/xsspy/internal/config"
	"github.com/xsspy/xsspy/internal/judge"
)

// Fetcher retrieves a URL and returns its body.
// Connectivity failures must wrap ErrTransport.
type Fetcher interface {
	Fetch(ctx context.Context, targetURL string) (string, error)
}

// Classifier judges a (response body, payload) pair.
type Classifier interface {
	Classify(ctx context.Context, body, payload string) judge.Verdict
}

// Sink persists findings as they are confirmed
type Sink interface {
	Append(finding config.Finding) error
}

// Notifier presents scan progress to the user
type Notifier interface {
	Info(format string, args ...interface{})
	Step(format string, args ...interface{})
	Success(format string, args ...interface{})
	Error(format string, args ...interface{})
	Vulnerability(finding config.Finding)
	// Detail prints an indented per-payload progress line
	Detail(format string, args ...interface{})
}

// ParameterDiscoverer finds candidate parameter names for a target
type ParameterDiscoverer interface {
	Discover(ctx context.Context, baseURL string) (*Discovery, error)
}
