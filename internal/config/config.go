package config

import (
	"time"
)

// ScanConfig holds all configuration for a scan run
type ScanConfig struct {
	TargetURL    string
	Params       []string // manual override; empty means discover
	PayloadFile  string
	OutputFile   string
	JSONFile     string
	MarkdownFile string
	WebhookURL   string
	JudgeURL     string
	FirstOnly    bool
	Threads      int
	Timeout      time.Duration // target fetch
	JudgeTimeout time.Duration
	MaxBodySize  int64
	Headers      map[string]string
	Cookies      string
	UserAgent    string
	ProxyURL     string
	Verbose      bool
	Silent       bool
}

// Finding represents a confirmed reflected XSS.
// Findings are created once and never mutated afterwards.
type Finding struct {
	URL       string `json:"url"`
	Parameter string `json:"parameter"`
	Payload   string `json:"payload"`
	Insight   string `json:"insight"`
}

// ScanResult contains the complete scan results
type ScanResult struct {
	ScanID        string    `json:"scan_id"`
	TargetURL     string    `json:"target_url"`
	ScanStartTime time.Time `json:"scan_start_time"`
	ScanEndTime   time.Time `json:"scan_end_time"`
	ScanDuration  string    `json:"scan_duration"`
	Parameters    []string  `json:"parameters"`
	PayloadCount  int       `json:"payload_count"`
	TestedCases   int       `json:"tested_cases"`

	// InconclusiveCases counts cases the judge could not classify.
	InconclusiveCases int       `json:"inconclusive_cases"`
	WAFDetected       string    `json:"waf_detected,omitempty"`
	Findings          []Finding `json:"findings"`
	Interrupted       bool      `json:"interrupted,omitempty"`
}

const (
	DefaultPayloadFile = "payloads.txt"
	DefaultOutputFile  = "scan_report.txt"
	DefaultJudgeURL    = "http://127.0.0.1:5000/analyze"
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// DefaultConfig returns a default scan configuration
func DefaultConfig() *ScanConfig {
	return &ScanConfig{
		PayloadFile:  DefaultPayloadFile,
		OutputFile:   DefaultOutputFile,
		JudgeURL:     DefaultJudgeURL,
		Threads:      1,
		Timeout:      10 * time.Second,
		JudgeTimeout: 30 * time.Second,
		MaxBodySize:  512 * 1024,
		Headers:      make(map[string]string),
		UserAgent:    DefaultUserAgent,
	}
}
