// Package reporter presents scan progress and results on the terminal.
package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/xsspy/xsspy/internal/config"
)

const summaryRule = "=================================================="

// Console implements the scanner's Notifier for terminal output.
// Thread-safe for concurrent reporting.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	silent bool

	cyan    *color.Color
	blue    *color.Color
	green   *color.Color
	red     *color.Color
	redBold *color.Color
	yellow  *color.Color
	magenta *color.Color
	bold    *color.Color
}

// Options configures a Console
type Options struct {
	Out     io.Writer // defaults to stdout
	ErrOut  io.Writer // defaults to stderr
	Silent  bool      // suppress everything except errors and findings
	NoColor bool
}

// NewConsole creates a terminal notifier
func NewConsole(opts Options) *Console {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.ErrOut == nil {
		opts.ErrOut = os.Stderr
	}

	c := &Console{
		out:     opts.Out,
		errOut:  opts.ErrOut,
		silent:  opts.Silent,
		cyan:    color.New(color.FgCyan),
		blue:    color.New(color.FgBlue),
		green:   color.New(color.FgGreen),
		red:     color.New(color.FgRed),
		redBold: color.New(color.FgRed, color.Bold),
		yellow:  color.New(color.FgYellow),
		magenta: color.New(color.FgMagenta, color.Bold),
		bold:    color.New(color.Bold),
	}

	if opts.NoColor {
		for _, col := range []*color.Color{c.cyan, c.blue, c.green, c.red, c.redBold, c.yellow, c.magenta, c.bold} {
			col.DisableColor()
		}
	}
	return c
}

// Info prints an informational line
func (c *Console) Info(format string, args ...interface{}) {
	c.line(false, c.cyan, "INFO", format, args...)
}

// Step prints the start of a scan phase
func (c *Console) Step(format string, args ...interface{}) {
	c.line(false, c.blue, "STEP", format, args...)
}

// Success prints a positive outcome
func (c *Console) Success(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.silent {
		return
	}
	fmt.Fprintf(c.out, "[%s] %s\n", c.green.Sprint("+"), c.bold.Sprintf(format, args...))
}

// Error prints a recoverable error to the error stream
func (c *Console) Error(format string, args ...interface{}) {
	c.line(true, c.red, "ERROR", format, args...)
}

// Warn prints a notice marked with "!"
func (c *Console) Warn(format string, args ...interface{}) {
	c.line(false, c.yellow, "!", format, args...)
}

// Detail prints an indented per-payload line
func (c *Console) Detail(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.silent {
		return
	}
	fmt.Fprintf(c.out, "  %s\n", fmt.Sprintf(format, args...))
}

// Vulnerability prints a confirmed finding. Findings are shown even in
// silent mode.
func (c *Console) Vulnerability(f config.Finding) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\n[%s] %s\n", c.red.Sprint("VULNERABLE"), c.redBold.Sprint("Potential Reflected XSS Confirmed!"))
	fmt.Fprintf(c.out, "  [+] URL:      %s\n", f.URL)
	fmt.Fprintf(c.out, "  [+] Param:    %s\n", f.Parameter)
	fmt.Fprintf(c.out, "  [+] Payload:  %s\n", f.Payload)
	fmt.Fprintf(c.out, "  [+] Insight:  %s\n", f.Insight)
}

// Summary prints the end-of-scan summary. Connectivity failures are
// reported inline during the scan and are not counted here.
func (c *Console) Summary(findings []config.Finding, reportPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, summaryRule)
	fmt.Fprintln(c.out, c.magenta.Sprint("Scan Summary"))
	fmt.Fprintln(c.out, summaryRule)

	if len(findings) == 0 {
		fmt.Fprintf(c.out, "[%s] Scan complete. No vulnerabilities were confirmed.\n", c.cyan.Sprint("INFO"))
	} else {
		fmt.Fprintf(c.out, "[%s] %s\n", c.green.Sprint("+"),
			c.bold.Sprintf("Found %d potential vulnerabilities.", len(findings)))
		for _, f := range findings {
			fmt.Fprintf(c.out, "  - %s %s, %s \"%s\"\n", c.yellow.Sprint("Param:"), f.Parameter, c.yellow.Sprint("Payload:"), f.Payload)
			fmt.Fprintf(c.out, "    %s %s\n", c.yellow.Sprint("PoC:"), f.URL)
		}
	}

	if reportPath != "" {
		fmt.Fprintf(c.out, "\nFull report saved to: %s\n", c.yellow.Sprint(reportPath))
	}
	fmt.Fprintln(c.out, summaryRule)
}

func (c *Console) line(isErr bool, col *color.Color, tag, format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := c.out
	if isErr {
		w = c.errOut
	} else if c.silent {
		return
	}
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	fmt.Fprintf(w, "[%s] %s\n", col.Sprint(tag), msg)
}
