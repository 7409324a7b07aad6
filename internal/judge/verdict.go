package judge

import (
	"strings"
	"unicode/utf8"
)

// Kind is the outcome class of a classification.
type Kind int

const (
	// Safe means the Judge explicitly answered SAFE.
	Safe Kind = iota
	// Inconclusive means no usable answer was obtained. It is treated as
	// Safe by the scan loop but kept apart in logs.
	Inconclusive
	// Vulnerable means the Judge answered VULNERABLE.
	Vulnerable
)

func (k Kind) String() string {
	switch k {
	case Safe:
		return "safe"
	case Inconclusive:
		return "inconclusive"
	case Vulnerable:
		return "vulnerable"
	default:
		return "unknown"
	}
}

// Verdict is the classification of a single (response body, payload) pair.
type Verdict struct {
	Kind Kind
	// Insight explains a Vulnerable verdict; Reason explains the others.
	Insight string
	Reason  string
	// Raw is the analysis string as returned by the Judge, if any.
	Raw string
}

// IsVulnerable reports whether the verdict confirms a reflection.
func (v Verdict) IsVulnerable() bool {
	return v.Kind == Vulnerable
}

// Detail returns the diagnostic text matching the verdict kind.
func (v Verdict) Detail() string {
	if v.Kind == Vulnerable {
		return v.Insight
	}
	return v.Reason
}

const (
	markerVulnerable = "VULNERABLE"
	markerSafe       = "SAFE"
)

// ParseAnalysis maps a well-formed analysis string to a verdict.
// Only a case-insensitive VULNERABLE prefix yields Vulnerable.
func ParseAnalysis(analysis string) Verdict {
	trimmed := strings.TrimSpace(analysis)
	upper := strings.ToUpper(trimmed)

	switch {
	case strings.HasPrefix(upper, markerVulnerable):
		insight := strings.TrimSpace(trimmed[len(markerVulnerable):])
		insight = strings.TrimSpace(strings.TrimPrefix(insight, ":"))
		if insight == "" {
			insight = trimmed
		}
		return Verdict{Kind: Vulnerable, Insight: insight, Raw: analysis}
	case strings.HasPrefix(upper, markerSafe):
		reason := strings.TrimSpace(trimmed[len(markerSafe):])
		reason = strings.TrimSpace(strings.TrimPrefix(reason, ":"))
		if reason == "" {
			reason = "judge reported safe"
		}
		return Verdict{Kind: Safe, Reason: reason, Raw: analysis}
	default:
		return Verdict{Kind: Inconclusive, Reason: "unrecognized analysis: " + truncate(trimmed, 120), Raw: analysis}
	}
}

func inconclusive(reason string) Verdict {
	return Verdict{Kind: Inconclusive, Reason: reason}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
