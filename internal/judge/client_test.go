package judge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJudge(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(ClientConfig{URL: server.URL + "/analyze", Timeout: 5 * time.Second})
}

func TestClassify_Vulnerable(t *testing.T) {
	var got AnalyzeRequest
	client := newJudge(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"analysis": "vulnerable: Reflected inside an HTML attribute without encoding."}`))
	})

	verdict := client.Classify(context.Background(), "<p>body</p>", "<svg onload=alert(1)>")

	assert.True(t, verdict.IsVulnerable())
	assert.Equal(t, "Reflected inside an HTML attribute without encoding.", verdict.Insight)
	assert.Equal(t, "<p>body</p>", got.HTMLContent)
	assert.Equal(t, "<svg onload=alert(1)>", got.Payload)
}

func TestClassify_Safe(t *testing.T) {
	client := newJudge(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"analysis": "SAFE: Payload is properly HTML-encoded."}`))
	})

	verdict := client.Classify(context.Background(), "x", "y")

	assert.Equal(t, Safe, verdict.Kind)
	assert.Equal(t, "Payload is properly HTML-encoded.", verdict.Reason)
}

func TestClassify_FailSafe(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error": "analysis server is not configured"}`))
			},
		},
		{
			name: "non-200 success code",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusAccepted)
				w.Write([]byte(`{"analysis": "VULNERABLE: should be ignored"}`))
			},
		},
		{
			name: "missing analysis key",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"foo":"bar"}`))
			},
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`VULNERABLE: plain text`))
			},
		},
		{
			name: "analysis not a string",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"analysis": 42}`))
			},
		},
		{
			name: "unrecognized analysis",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"analysis": "ERROR: Could not get analysis from the AI."}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newJudge(t, tt.handler)

			verdict := client.Classify(context.Background(), "<html></html>", "<script>1</script>")

			assert.False(t, verdict.IsVulnerable())
			assert.Equal(t, Inconclusive, verdict.Kind)
			assert.NotEmpty(t, verdict.Reason)
		})
	}
}

func TestClassify_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(ClientConfig{URL: url, Timeout: time.Second})
	verdict := client.Classify(context.Background(), "body", "payload")

	assert.False(t, verdict.IsVulnerable())
	assert.Equal(t, Inconclusive, verdict.Kind)
	assert.Contains(t, verdict.Reason, "could not connect")
}

func TestClassify_TruncatesContent(t *testing.T) {
	var got AnalyzeRequest
	client := newJudge(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"analysis": "SAFE: fine"}`))
	})
	client.config.MaxContentSize = 10

	client.Classify(context.Background(), strings.Repeat("a", 100), "p")

	assert.Len(t, got.HTMLContent, 10)
}

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		analysis string
		want     Kind
		detail   string
	}{
		{"VULNERABLE: reflected unescaped", Vulnerable, "reflected unescaped"},
		{"  Vulnerable - in script block", Vulnerable, "- in script block"},
		{"VULNERABLE", Vulnerable, "VULNERABLE"},
		{"SAFE: encoded", Safe, "encoded"},
		{"safe", Safe, "judge reported safe"},
		{"Maybe vulnerable", Inconclusive, ""},
		{"", Inconclusive, ""},
	}

	for _, tt := range tests {
		t.Run(tt.analysis, func(t *testing.T) {
			got := ParseAnalysis(tt.analysis)
			if got.Kind != tt.want {
				t.Errorf("ParseAnalysis(%q) kind = %v, want %v", tt.analysis, got.Kind, tt.want)
			}
			if tt.detail != "" && got.Detail() != tt.detail {
				t.Errorf("ParseAnalysis(%q) detail = %q, want %q", tt.analysis, got.Detail(), tt.detail)
			}
		})
	}
}

func TestParseAnalysis_UnrecognizedReasonIsValidUTF8(t *testing.T) {
	// the 120-byte cut lands inside an "é"
	verdict := ParseAnalysis("a" + strings.Repeat("é", 100))

	assert.Equal(t, Inconclusive, verdict.Kind)
	assert.True(t, utf8.ValidString(verdict.Reason))
}
