package scanner

import (
	"fmt"
	"net/url"
	"strings"
)

// Inject returns targetURL with param's value replaced by payload.
//
// Other query pairs are kept byte-for-byte and in their original order.
// Repeated occurrences of param collapse into the first one; a param
// absent from the query is appended. Scheme, host, path and fragment
// are preserved.
func Inject(targetURL, param, payload string) (string, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, targetURL)
	}

	u.RawQuery = injectQuery(u.RawQuery, param, payload)
	return u.String(), nil
}

func injectQuery(rawQuery, param, payload string) string {
	injected := url.QueryEscape(param) + "=" + url.QueryEscape(payload)

	var pairs []string
	replaced := false
	if rawQuery != "" {
		for _, pair := range strings.Split(rawQuery, "&") {
			if pair == "" {
				continue
			}
			if queryKey(pair) != param {
				pairs = append(pairs, pair)
				continue
			}
			if !replaced {
				pairs = append(pairs, injected)
				replaced = true
			}
		}
	}
	if !replaced {
		pairs = append(pairs, injected)
	}
	return strings.Join(pairs, "&")
}

// queryKey returns the decoded name of a single key=value pair.
func queryKey(pair string) string {
	key, _, _ := strings.Cut(pair, "=")
	decoded, err := url.QueryUnescape(key)
	if err != nil {
		return key
	}
	return decoded
}
