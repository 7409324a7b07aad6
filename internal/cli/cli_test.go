package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xsspy/xsspy/internal/config"
	"github.com/xsspy/xsspy/internal/payloads"
	"github.com/xsspy/xsspy/internal/report"
	"github.com/xsspy/xsspy/internal/scanner"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--no-color"))

	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// reflectingTarget echoes every query value into the page
func reflectingTarget(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<html><body><a href='/p?x=1&y=2'>next</a><p>%s</p></body></html>", r.URL.Query().Get("q"))
	}))
	t.Cleanup(server.Close)
	return server
}

func judgeAnswering(t *testing.T, analysis string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"analysis": analysis})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestScan_EndToEnd(t *testing.T) {
	var hits atomic.Int64
	target := reflectingTarget(t, &hits)
	judge := judgeAnswering(t, "VULNERABLE: reflected unescaped")

	dir := t.TempDir()
	payloadFile := writeFile(t, dir, "payloads.txt", "<svg onload=alert(1)>\n")
	reportFile := filepath.Join(dir, "scan_report.txt")
	jsonFile := filepath.Join(dir, "result.json")

	out, err := runCLI(t,
		"-u", target.URL+"/?q=hi",
		"-p", "q",
		"--payloads-file", payloadFile,
		"-o", reportFile,
		"--judge-url", judge.URL+"/analyze",
		"--json", jsonFile,
	)
	require.NoError(t, err)

	assert.Equal(t, int64(1), hits.Load())
	assert.Contains(t, out, "Found 1 potential vulnerabilities.")
	assert.Contains(t, out, "Full report saved to: "+reportFile)

	data, err := os.ReadFile(reportFile)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), report.FindingMarker))
	assert.True(t, strings.HasPrefix(string(data), "Scan initiated for "+target.URL+"/?q=hi at "))

	raw, err := os.ReadFile(jsonFile)
	require.NoError(t, err)
	var result config.ScanResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "q", result.Findings[0].Parameter)
	assert.Equal(t, "<svg onload=alert(1)>", result.Findings[0].Payload)
	assert.Equal(t, 1, result.TestedCases)
	assert.False(t, result.Interrupted)
}

func TestScan_EmptyPayloadFileIsFatalBeforeAnyRequest(t *testing.T) {
	var hits atomic.Int64
	target := reflectingTarget(t, &hits)

	dir := t.TempDir()
	payloadFile := writeFile(t, dir, "payloads.txt", "\n   \n")
	reportFile := filepath.Join(dir, "scan_report.txt")

	_, err := runCLI(t,
		"-u", target.URL+"/?q=hi",
		"--payloads-file", payloadFile,
		"-o", reportFile,
	)

	assert.ErrorIs(t, err, payloads.ErrEmpty)
	assert.Zero(t, hits.Load())
	assert.NoFileExists(t, reportFile)
}

func TestScan_MissingPayloadFile(t *testing.T) {
	var hits atomic.Int64
	target := reflectingTarget(t, &hits)

	_, err := runCLI(t,
		"-u", target.URL,
		"--payloads-file", filepath.Join(t.TempDir(), "nope.txt"),
	)

	assert.ErrorIs(t, err, payloads.ErrNotFound)
	assert.Zero(t, hits.Load())
}

func TestScan_DiscoversParameters(t *testing.T) {
	var hits atomic.Int64
	target := reflectingTarget(t, &hits)
	judge := judgeAnswering(t, "SAFE: payload is encoded")

	dir := t.TempDir()
	payloadFile := writeFile(t, dir, "payloads.txt", "a\nb\n")

	out, err := runCLI(t,
		"-u", target.URL+"/",
		"--payloads-file", payloadFile,
		"-o", filepath.Join(dir, "report.txt"),
		"--judge-url", judge.URL,
	)
	require.NoError(t, err)

	assert.Contains(t, out, "Discovered 2 potential parameters: x, y")
	assert.Contains(t, out, "Scan complete. No vulnerabilities were confirmed.")
	// one discovery request plus two payloads for each parameter
	assert.Equal(t, int64(5), hits.Load())
}

func TestScan_NoParametersIsFatal(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>nothing here</body></html>")
	}))
	defer target.Close()

	dir := t.TempDir()
	payloadFile := writeFile(t, dir, "payloads.txt", "x\n")
	reportFile := writeFile(t, dir, "report.txt", "Scan initiated for old\n"+report.FindingMarker+"\n")

	out, err := runCLI(t,
		"-u", target.URL,
		"--payloads-file", payloadFile,
		"-o", reportFile,
	)

	assert.ErrorIs(t, err, scanner.ErrNoParameters)
	assert.Contains(t, out, "No parameters discovered automatically.")

	// the previous run's findings are gone even though nothing was scanned
	data, err := os.ReadFile(reportFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Scan initiated for "+target.URL+" at "))
	assert.NotContains(t, string(data), report.FindingMarker)
}

func TestScan_DiscoveryFailureWithoutParamsIsFatal(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := target.URL
	target.Close()

	dir := t.TempDir()
	payloadFile := writeFile(t, dir, "payloads.txt", "x\n")

	out, err := runCLI(t,
		"-u", url,
		"--payloads-file", payloadFile,
		"-o", filepath.Join(dir, "report.txt"),
	)

	assert.ErrorIs(t, err, scanner.ErrNoParameters)
	assert.Contains(t, out, "Could not fetch base URL to discover parameters")
}

func TestScan_JudgeDownIsNotFatal(t *testing.T) {
	var hits atomic.Int64
	target := reflectingTarget(t, &hits)

	judge := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	judgeURL := judge.URL
	judge.Close()

	dir := t.TempDir()
	payloadFile := writeFile(t, dir, "payloads.txt", "a\nb\n")

	out, err := runCLI(t,
		"-u", target.URL+"/?q=1",
		"-p", "q",
		"--payloads-file", payloadFile,
		"-o", filepath.Join(dir, "report.txt"),
		"--judge-url", judgeURL,
	)
	require.NoError(t, err)

	assert.Equal(t, int64(2), hits.Load())
	assert.Contains(t, out, "No vulnerabilities were confirmed.")
	assert.Contains(t, out, "2 test cases could not be analysed")
}

func TestFlagValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing url", []string{}, `required flag(s) "url" not set`},
		{"bad threads", []string{"-u", "http://x", "-t", "0"}, "threads must be at least 1"},
		{"bad proxy", []string{"-u", "http://x", "--proxy", "ftp://p"}, "invalid proxy URL format"},
		{"bad header", []string{"-u", "http://x", "-H", "NoColon"}, "invalid header format"},
		{"empty params", []string{"-u", "http://x", "-p", ",,"}, "contains no parameter names"},
		{"blank params", []string{"-u", "http://x", "-p", " "}, "contains no parameter names"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestScanConfigFromFlags(t *testing.T) {
	f := &scanFlags{
		targetURL:    "http://t/",
		params:       " q, lang ,q,,",
		headers:      []string{"Authorization: Bearer x:y"},
		timeout:      5,
		judgeTimeout: 7,
		threads:      3,
	}

	cfg := f.scanConfig()

	assert.Equal(t, []string{"q", "lang"}, cfg.Params)
	assert.Equal(t, "Bearer x:y", cfg.Headers["Authorization"])
	assert.Equal(t, 3, cfg.Threads)
	assert.Equal(t, "5s", cfg.Timeout.String())
	assert.Equal(t, "7s", cfg.JudgeTimeout.String())
}

func TestSplitParams(t *testing.T) {
	assert.Nil(t, splitParams(""))
	assert.Equal(t, []string{"b", "a"}, splitParams("b,a,b"))
}
