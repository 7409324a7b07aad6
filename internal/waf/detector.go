// Package waf fingerprints web application firewalls from an HTTP response.
package waf

import (
	"net/http"
	"strings"
)

// signature matches a WAF by lowercase header or body substrings
type signature struct {
	name    string
	headers []string
	body    []string
}

// Checked in order; the first match wins.
var signatures = []signature{
	{name: "cloudflare", headers: []string{"cloudflare", "cf-ray"}, body: []string{"cloudflare"}},
	{name: "akamai", headers: []string{"akamai", "akamaighost"}, body: []string{"akamai"}},
	{name: "cloudfront", headers: []string{"cloudfront", "x-amz-cf"}},
	{name: "imperva", headers: []string{"incapsula", "imperva"}, body: []string{"incapsula", "imperva"}},
	{name: "sucuri", headers: []string{"sucuri", "x-sucuri"}, body: []string{"sucuri"}},
	{name: "f5", headers: []string{"bigip", "x-wa-info"}},
	{name: "barracuda", headers: []string{"barracuda"}},
	{name: "wordfence", body: []string{"wordfence"}},
	{name: "modsecurity", body: []string{"modsecurity", "mod_security"}},
}

// Identify returns the name of the WAF the response points to, "unknown"
// for a blocked-looking status without a signature, or "" for none.
func Identify(statusCode int, header http.Header, body string) string {
	headerLines := make([]string, 0, len(header))
	for name, values := range header {
		headerLines = append(headerLines, strings.ToLower(name+": "+strings.Join(values, ", ")))
	}
	for _, sig := range signatures {
		for _, needle := range sig.headers {
			for _, line := range headerLines {
				if strings.Contains(line, needle) {
					return sig.name
				}
			}
		}
	}

	bodyLower := strings.ToLower(body)
	for _, sig := range signatures {
		for _, needle := range sig.body {
			if strings.Contains(bodyLower, needle) {
				return sig.name
			}
		}
	}

	switch statusCode {
	case http.StatusForbidden, http.StatusNotAcceptable, http.StatusTooManyRequests:
		return "unknown"
	}
	return ""
}
