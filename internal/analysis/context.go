package analysis

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Reflection is one place a payload shows up in a parsed document
type Reflection struct {
	// Context is "script", "attribute:<name>", "text" or "comment"
	Context string
	Snippet string
}

const (
	maxReflections   = 10
	snippetRadius    = 60
	dangerousContext = "script"
)

// FindReflections locates the raw payload inside the parsed document.
// Parse failures yield no reflections.
func FindReflections(body, payload string) []Reflection {
	if payload == "" || !strings.Contains(body, payload) {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var found []Reflection
	add := func(context, text string) {
		if len(found) < maxReflections {
			found = append(found, Reflection{Context: context, Snippet: snippet(text, payload)})
		}
	}

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if text := s.Text(); strings.Contains(text, payload) {
			add(dangerousContext, text)
		}
	})

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, node := range s.Nodes {
			for _, attr := range node.Attr {
				if strings.Contains(attr.Val, payload) {
					add("attribute:"+strings.ToLower(attr.Key), attr.Val)
				}
			}
		}
	})

	// Payloads rendered as markup never appear in text nodes; InjectedMarkup
	// covers them.
	for _, root := range doc.Nodes {
		walk(root, func(n *html.Node) {
			switch n.Type {
			case html.CommentNode:
				if strings.Contains(n.Data, payload) {
					add("comment", n.Data)
				}
			case html.TextNode:
				if n.Parent != nil && n.Parent.Data == "script" {
					return
				}
				if strings.Contains(n.Data, payload) {
					add("text", n.Data)
				}
			}
		})
	}

	return found
}

// InjectedMarkup reports whether the payload parses to at least one
// element and the document contains an element with the same tag and
// attribute names, meaning the payload was rendered as markup.
func InjectedMarkup(body, payload string) (string, bool) {
	if payload == "" || !strings.Contains(body, payload) {
		return "", false
	}

	elem, err := payloadElement(payload)
	if err != nil || elem == nil {
		return "", false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", false
	}

	matched := false
	doc.Find(elem.Data).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, want := range elem.Attr {
			if _, ok := s.Attr(want.Key); !ok {
				return true
			}
		}
		matched = true
		return false
	})

	if !matched {
		return "", false
	}
	return describeElement(elem), true
}

// payloadElement parses payload as body content and returns its first
// element, or nil when the payload holds no markup.
func payloadElement(payload string) (*html.Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(payload), &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     atom.Body.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("parsing payload fragment: %w", err)
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return n, nil
		}
	}
	return nil, nil
}

func describeElement(n *html.Node) string {
	if len(n.Attr) == 0 {
		return "<" + n.Data + ">"
	}
	keys := make([]string, 0, len(n.Attr))
	for _, a := range n.Attr {
		keys = append(keys, a.Key)
	}
	return fmt.Sprintf("<%s %s>", n.Data, strings.Join(keys, " "))
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func snippet(text, payload string) string {
	idx := strings.Index(text, payload)
	if idx < 0 {
		return truncate(strings.TrimSpace(text), 2*snippetRadius)
	}
	start := idx - snippetRadius
	if start < 0 {
		start = 0
	}
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	end := idx + len(payload) + snippetRadius
	if end > len(text) {
		end = len(text)
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}
	return strings.TrimSpace(text[start:end])
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return TruncateContent(s, maxLen) + "..."
}
