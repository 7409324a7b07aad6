package analysis

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxContent bounds the HTML forwarded to a model
const DefaultMaxContent = 30000

// TruncateContent cuts html to at most maxBytes without splitting a rune
func TruncateContent(html string, maxBytes int) string {
	if maxBytes <= 0 || len(html) <= maxBytes {
		return html
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(html[cut]) {
		cut--
	}
	return html[:cut]
}

// BuildPrompt renders the classification prompt for a language model
func BuildPrompt(html, payload string, maxContent int) string {
	if maxContent <= 0 {
		maxContent = DefaultMaxContent
	}
	partial := TruncateContent(html, maxContent)

	var b strings.Builder
	b.WriteString("You are a web security expert. Analyze the following for a Reflected XSS vulnerability.\n\n")
	fmt.Fprintf(&b, "**Injected Payload:** `%s`\n", payload)

	if reflections := FindReflections(partial, payload); len(reflections) > 0 {
		b.WriteString("**Raw reflections found by the parser:**\n")
		for _, r := range reflections {
			fmt.Fprintf(&b, "- %s: `%s`\n", r.Context, r.Snippet)
		}
	}
	if element, ok := InjectedMarkup(partial, payload); ok {
		fmt.Fprintf(&b, "**Parser note:** the payload rendered as a %s element.\n", element)
	}

	b.WriteString("**Resulting HTML Response (partial):**\n```html\n")
	b.WriteString(partial)
	b.WriteString("\n```\n")
	b.WriteString("**Your Task:**\n")
	b.WriteString("Respond with a single line starting with \"VULNERABLE:\" or \"SAFE:\".\n")
	b.WriteString("- If VULNERABLE, explain where it's reflected. Example: \"VULNERABLE: Reflected inside an HTML attribute without encoding.\"\n")
	b.WriteString("- If SAFE, explain why. Example: \"SAFE: Payload is properly HTML-encoded.\"\n")
	return b.String()
}
