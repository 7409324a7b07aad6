package analysis

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
)

// ReflectionFormat is how a payload came back in a response
type ReflectionFormat string

const (
	ReflectionNone          ReflectionFormat = ""
	ReflectionRaw           ReflectionFormat = "raw"
	ReflectionDecoded       ReflectionFormat = "decoded"
	ReflectionURLEncoded    ReflectionFormat = "url-encoded"
	ReflectionHTMLEncoded   ReflectionFormat = "html-encoded"
	ReflectionDoubleEncoded ReflectionFormat = "double-encoded"
)

// DetectReflection checks whether marker is reflected in body and in
// which encoding. The raw form wins over any encoded form.
func DetectReflection(body, marker string) ReflectionFormat {
	if marker == "" {
		return ReflectionNone
	}

	if strings.Contains(body, marker) {
		return ReflectionRaw
	}

	decodedMarker, err := url.QueryUnescape(marker)
	if err == nil && decodedMarker != marker && strings.Contains(body, decodedMarker) {
		return ReflectionDecoded
	}

	encodedMarker := url.QueryEscape(marker)
	if strings.Contains(body, encodedMarker) {
		return ReflectionURLEncoded
	}

	if strings.Contains(body, html.EscapeString(marker)) {
		return ReflectionHTMLEncoded
	}

	if strings.Contains(body, url.QueryEscape(encodedMarker)) {
		return ReflectionDoubleEncoded
	}

	return ReflectionNone
}

// characterEncodings maps markup characters to their encoded forms
var characterEncodings = map[string][]string{
	"<":  {"&lt;", "&#60;", "&#x3c;", "%3C", "%3c"},
	">":  {"&gt;", "&#62;", "&#x3e;", "%3E", "%3e"},
	"'":  {"&#39;", "&#x27;", "%27"},
	"\"": {"&quot;", "&#34;", "%22"},
	"`":  {"&#96;", "%60"},
}

// EncodedCharacters lists the markup characters of payload whose encoded
// form appears in body.
func EncodedCharacters(body, payload string) []string {
	var encoded []string
	for _, char := range []string{"<", ">", "'", "\"", "`"} {
		if !strings.Contains(payload, char) {
			continue
		}
		for _, encoding := range characterEncodings[char] {
			if strings.Contains(body, encoding) {
				encoded = append(encoded, char)
				break
			}
		}
	}
	return encoded
}

// executableAttributes are attribute names whose value runs as script
var executableAttributes = map[string]bool{
	"href":       true,
	"src":        true,
	"action":     true,
	"formaction": true,
	"data":       true,
}

// HeuristicProvider classifies without a model by parsing the response.
// It only answers VULNERABLE when the payload survives as markup or lands
// in an executable context.
type HeuristicProvider struct {
	maxContent int
}

// NewHeuristicProvider creates the offline provider
func NewHeuristicProvider(maxContent int) *HeuristicProvider {
	return &HeuristicProvider{maxContent: maxContent}
}

func (p *HeuristicProvider) Name() string {
	return "heuristic"
}

// Analyze never fails; an unparseable body is judged on raw reflection only
func (p *HeuristicProvider) Analyze(ctx context.Context, body, payload string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if p.maxContent > 0 {
		body = TruncateContent(body, p.maxContent)
	}

	switch DetectReflection(body, payload) {
	case ReflectionNone:
		return Safe("Payload is not reflected in the response."), nil
	case ReflectionHTMLEncoded:
		return Safe("Payload is properly HTML-encoded."), nil
	case ReflectionURLEncoded, ReflectionDoubleEncoded:
		return Safe("Payload is reflected URL-encoded."), nil
	case ReflectionDecoded:
		return Safe("Only a decoded form of the payload is reflected."), nil
	}

	if element, ok := InjectedMarkup(body, payload); ok {
		return Vulnerable(fmt.Sprintf("Payload rendered as a %s element without encoding.", element)), nil
	}

	for _, r := range FindReflections(body, payload) {
		switch {
		case r.Context == dangerousContext:
			return Vulnerable("Reflected inside a <script> block without encoding."), nil
		case strings.HasPrefix(r.Context, "attribute:"):
			name := strings.TrimPrefix(r.Context, "attribute:")
			if strings.HasPrefix(name, "on") {
				return Vulnerable(fmt.Sprintf("Reflected inside the %s event handler attribute.", name)), nil
			}
			if executableAttributes[name] && strings.HasPrefix(strings.ToLower(strings.TrimSpace(r.Snippet)), "javascript:") {
				return Vulnerable(fmt.Sprintf("Reflected as a javascript: URL in the %s attribute.", name)), nil
			}
		}
	}

	if encoded := EncodedCharacters(body, payload); len(encoded) > 0 {
		return Safe(fmt.Sprintf("Payload is reflected but %s are encoded.", strings.Join(encoded, " "))), nil
	}
	return Safe("Payload is reflected verbatim in an inert context."), nil
}
