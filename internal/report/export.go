package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xsspy/xsspy/internal/config"
)

// Format selects an export encoding
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Exporter writes a complete ScanResult in one format
type Exporter struct {
	format Format
}

// NewExporter creates an exporter; unknown formats fall back to JSON
func NewExporter(format string) *Exporter {
	switch strings.ToLower(format) {
	case "markdown", "md":
		return &Exporter{format: FormatMarkdown}
	default:
		return &Exporter{format: FormatJSON}
	}
}

// Export renders result and writes it to outputPath
func (e *Exporter) Export(result *config.ScanResult, outputPath string) error {
	data, err := e.Render(result)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0644)
}

// Render encodes result without touching the filesystem
func (e *Exporter) Render(result *config.ScanResult) ([]byte, error) {
	if e.format == FormatMarkdown {
		return []byte(markdown(result)), nil
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

func markdown(result *config.ScanResult) string {
	var b strings.Builder

	b.WriteString("# xsspy Scan Report\n\n")
	fmt.Fprintf(&b, "**Target:** %s\n", result.TargetURL)
	fmt.Fprintf(&b, "**Scan ID:** %s\n", result.ScanID)
	fmt.Fprintf(&b, "**Date:** %s\n", result.ScanStartTime.Format(time.RFC1123))
	fmt.Fprintf(&b, "**Duration:** %s\n", result.ScanDuration)
	fmt.Fprintf(&b, "**Parameters:** %s\n", strings.Join(result.Parameters, ", "))
	fmt.Fprintf(&b, "**Cases Tested:** %d (%d inconclusive)\n", result.TestedCases, result.InconclusiveCases)
	if result.WAFDetected != "" {
		fmt.Fprintf(&b, "**WAF Detected:** %s\n", result.WAFDetected)
	}
	if result.Interrupted {
		b.WriteString("**Status:** interrupted\n")
	}

	b.WriteString("\n## Vulnerabilities Found\n\n")

	if len(result.Findings) == 0 {
		b.WriteString("_No vulnerabilities found._\n")
		return b.String()
	}

	for i, f := range result.Findings {
		fmt.Fprintf(&b, "### %d. Reflected XSS in `%s`\n", i+1, f.Parameter)
		fmt.Fprintf(&b, "- **URL:** `%s`\n", f.URL)
		fmt.Fprintf(&b, "- **Insight:** %s\n", f.Insight)
		fmt.Fprintf(&b, "- **Payload:**\n```\n%s\n```\n\n", f.Payload)
	}

	return b.String()
}
