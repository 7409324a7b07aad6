// Package scanner - Error taxonomy for scan operations
package scanner

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL indicates a target that is not an absolute URL
	ErrInvalidURL = errors.New("invalid target URL")

	// ErrNoParameters indicates there is nothing to test
	ErrNoParameters = errors.New("no parameters to test")

	// ErrDiscoveryFailed indicates the base URL could not be fetched for discovery
	ErrDiscoveryFailed = errors.New("parameter discovery failed")

	// ErrTransport indicates the target could not be reached for a test case
	ErrTransport = errors.New("connection failed")

	// ErrUnexpectedStatus indicates a non-2xx status where one was required
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrNoPayloads indicates the orchestrator was given nothing to inject
	ErrNoPayloads = errors.New("no payloads to inject")
)

// ScanError records which step of a test case failed and for what input.
// It unwraps to the underlying sentinel.
type ScanError struct {
	Op      string
	URL     string
	Param   string // empty for URL-level steps such as discovery
	Payload string
	Err     error
}

func (e *ScanError) Error() string {
	target := truncate(e.URL, URLDisplayLength)
	if e.Param == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, target, e.Err)
	}
	return fmt.Sprintf("%s %s [%s=%s]: %v", e.Op, target, e.Param, truncate(e.Payload, PayloadDisplayLength), e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// NewScanError wraps a URL-level failure
func NewScanError(op, url string, err error) *ScanError {
	return &ScanError{Op: op, URL: url, Err: err}
}

// NewPayloadError wraps a failure of one (param, payload) test case
func NewPayloadError(op, url, param, payload string, err error) *ScanError {
	return &ScanError{Op: op, URL: url, Param: param, Payload: payload, Err: err}
}

// IsTransport reports whether err is a per-request connectivity failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
