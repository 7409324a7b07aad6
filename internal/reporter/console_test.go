package reporter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xsspy/xsspy/internal/config"
)

func newTestConsole(silent bool) (*Console, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewConsole(Options{Out: &out, ErrOut: &errOut, Silent: silent, NoColor: true}), &out, &errOut
}

func TestConsole_Markers(t *testing.T) {
	c, out, errOut := newTestConsole(false)

	c.Info("Loaded %d payloads", 3)
	c.Step("Testing parameter: %s", "q")
	c.Success("done")
	c.Warn("Scan interrupted by user. Exiting.")
	c.Error("Connection failed for %s", "http://t/")

	assert.Equal(t, "[INFO] Loaded 3 payloads\n[STEP] Testing parameter: q\n[+] done\n[!] Scan interrupted by user. Exiting.\n", out.String())
	assert.Equal(t, "[ERROR] Connection failed for http://t/\n", errOut.String())
}

func TestConsole_SilentKeepsErrorsAndFindings(t *testing.T) {
	c, out, errOut := newTestConsole(true)

	c.Info("hidden")
	c.Detail("hidden")
	c.Error("shown")
	c.Vulnerability(config.Finding{URL: "http://t/?q=x", Parameter: "q", Payload: "x", Insight: "raw"})

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[VULNERABLE] Potential Reflected XSS Confirmed!")
	assert.Contains(t, errOut.String(), "shown")
}

func TestConsole_Summary(t *testing.T) {
	c, out, _ := newTestConsole(false)

	c.Summary([]config.Finding{{URL: "http://t/?q=x", Parameter: "q", Payload: "x"}}, "scan_report.txt")

	text := out.String()
	assert.Contains(t, text, "Scan Summary")
	assert.Contains(t, text, "[+] Found 1 potential vulnerabilities.")
	assert.Contains(t, text, `  - Param: q, Payload: "x"`)
	assert.Contains(t, text, "    PoC: http://t/?q=x")
	assert.Contains(t, text, "Full report saved to: scan_report.txt")
	assert.Equal(t, 3, strings.Count(text, summaryRule))
}

func TestConsole_SummaryNoFindings(t *testing.T) {
	c, out, _ := newTestConsole(false)

	c.Summary(nil, "")

	assert.Contains(t, out.String(), "[INFO] Scan complete. No vulnerabilities were confirmed.")
	assert.NotContains(t, out.String(), "Full report saved to")
}
