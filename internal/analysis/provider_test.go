package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiProvider_Analyze(t *testing.T) {
	var gotPath, gotKey, gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotPrompt = req.Contents[0].Parts[0].Text

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"VULNERABLE: Reflected inside an HTML attribute without encoding.\n"}]}}]}`))
	}))
	defer server.Close()

	p := NewGeminiProvider(GeminiConfig{APIKey: "k3y", BaseURL: server.URL})
	got, err := p.Analyze(context.Background(), "<p>hi</p>", "<svg>")

	require.NoError(t, err)
	assert.Equal(t, "VULNERABLE: Reflected inside an HTML attribute without encoding.", got)
	assert.Equal(t, "/v1beta/models/"+DefaultGeminiModel+":generateContent", gotPath)
	assert.Equal(t, "k3y", gotKey)
	assert.Contains(t, gotPrompt, "**Injected Payload:** `<svg>`")
}

func TestGeminiProvider_MissingKey(t *testing.T) {
	_, err := NewGeminiProvider(GeminiConfig{}).Analyze(context.Background(), "<p></p>", "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGeminiProvider_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	got, err := NewGeminiProvider(GeminiConfig{APIKey: "k", BaseURL: server.URL}).Analyze(context.Background(), "", "x")
	require.NoError(t, err)
	assert.Equal(t, "SAFE: Gemini response was empty.", got)
}

func TestGeminiProvider_UpstreamErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewGeminiProvider(GeminiConfig{APIKey: "secret", BaseURL: server.URL}).Analyze(context.Background(), "", "x")
	require.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "429")

	unreachable := NewGeminiProvider(GeminiConfig{APIKey: "secret", BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	_, err = unreachable.Analyze(context.Background(), "", "x")
	require.ErrorIs(t, err, ErrUpstream)
	assert.NotContains(t, err.Error(), "secret")
}

func TestGenericProvider_OpenAI(t *testing.T) {
	var auth, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		w.Write([]byte(`{"choices":[{"message":{"content":"Sure.\nSAFE: Payload is properly HTML-encoded."}}]}`))
	}))
	defer server.Close()

	p := NewGenericProvider(GenericConfig{BaseURL: server.URL, APIKey: "tok", Format: FormatOpenAI})
	got, err := p.Analyze(context.Background(), "<p></p>", "x")

	require.NoError(t, err)
	assert.Equal(t, "SAFE: Payload is properly HTML-encoded.", got)
	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, "/v1/chat/completions", path)
}

func TestGenericProvider_Ollama(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(`{"response":"VULNERABLE: Reflected in script block."}`))
	}))
	defer server.Close()

	p := NewGenericProvider(GenericConfig{BaseURL: server.URL + "/", Model: "llama3", Format: FormatOllama})
	got, err := p.Analyze(context.Background(), "<p></p>", "x")

	require.NoError(t, err)
	assert.Equal(t, "VULNERABLE: Reflected in script block.", got)
	assert.Equal(t, "llama3", body["model"])
	assert.Equal(t, false, body["stream"])
}

func TestGenericProvider_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := NewGenericProvider(GenericConfig{BaseURL: server.URL}).Analyze(context.Background(), "", "x")
	assert.ErrorIs(t, err, ErrUpstream)

	_, err = NewGenericProvider(GenericConfig{}).Analyze(context.Background(), "", "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "SAFE: ok", firstLine("```\nSAFE: ok\n```"))
	assert.Equal(t, "vulnerable: lower", firstLine("  vulnerable: lower  "))
	assert.Equal(t, "no marker", firstLine("no marker\n"))
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		cfg      Config
		wantName string
		wantErr  bool
	}{
		{cfg: Config{}, wantName: "gemini"},
		{cfg: Config{Type: "Heuristic"}, wantName: "heuristic"},
		{cfg: Config{Type: "browser"}, wantName: "browser"},
		{cfg: Config{Type: "ollama", BaseURL: "http://localhost:11434", Model: "llama3"}, wantName: "ollama-llama3"},
		{cfg: Config{Type: "openai", Model: "gpt-4o-mini"}, wantName: "openai-gpt-4o-mini"},
		{cfg: Config{Type: "bogus"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.cfg.Type), func(t *testing.T) {
			p, err := NewProvider(tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
		})
	}
}

func TestNewProvider_MissingBaseURLFailsPerRequest(t *testing.T) {
	p, err := NewProvider(Config{Type: ProviderOpenAI}, nil)
	require.NoError(t, err)

	_, err = p.Analyze(context.Background(), "<p></p>", "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestBuildPrompt(t *testing.T) {
	body := `<html><body><a href="/s?q=PAYLOAD">x</a>` + strings.Repeat("a", 100) + `</body></html>`

	prompt := BuildPrompt(body, "PAYLOAD", 60)

	assert.Contains(t, prompt, "**Injected Payload:** `PAYLOAD`")
	assert.Contains(t, prompt, "- attribute:href: `/s?q=PAYLOAD`")
	assert.Contains(t, prompt, `Respond with a single line starting with "VULNERABLE:" or "SAFE:".`)
	assert.NotContains(t, prompt, strings.Repeat("a", 100))
}

func TestTruncateContent(t *testing.T) {
	assert.Equal(t, "abc", TruncateContent("abc", 10))
	assert.Equal(t, "ab", TruncateContent("abc", 2))
	// "é" is two bytes and must not be split
	assert.Equal(t, "a", TruncateContent("aé", 2))
	assert.Equal(t, "abc", TruncateContent("abc", 0))
}
