package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xsspy/xsspy/internal/banner"
	"github.com/xsspy/xsspy/internal/config"
	"github.com/xsspy/xsspy/internal/judge"
	"github.com/xsspy/xsspy/internal/logger"
	"github.com/xsspy/xsspy/internal/payloads"
	"github.com/xsspy/xsspy/internal/report"
	"github.com/xsspy/xsspy/internal/reporter"
	"github.com/xsspy/xsspy/internal/scanner"
)

// JudgeURLEnv overrides the default analysis endpoint
const JudgeURLEnv = "XSSPY_JUDGE_URL"

type scanFlags struct {
	// Target options
	targetURL string
	params    string

	// Payload options
	payloadFile string

	// Judge options
	judgeURL     string
	judgeTimeout int

	// Request options
	timeout   int
	maxBody   int64
	headers   []string
	cookies   string
	userAgent string
	proxyURL  string

	// Scan options
	firstOnly bool
	threads   int

	// Output options
	outputFile   string
	jsonFile     string
	markdownFile string
	webhookURL   string
	logFile      string
	verbose      bool
	silent       bool
	noColor      bool
}

// Execute runs the scanner command line
func Execute() error {
	if err := newRootCmd().Execute(); err != nil {
		printError(os.Stderr, err)
		return err
	}
	return nil
}

func newRootCmd() *cobra.Command {
	f := &scanFlags{}

	rootCmd := &cobra.Command{
		Use:   "xsspy -u <url>",
		Short: "Reflected XSS scanner backed by an analysis server",
		Long: banner.GetBanner() + `
xsspy injects every payload of a payload file into every query parameter
of a target, one at a time, and asks the analysis server (xsspy-judge)
whether the reflected response is exploitable.

Parameters are discovered from links in the target's body unless they
are given with --params. Confirmed findings are appended to the report
file as they are found.`,
		Example: `  # Discover parameters and scan
  xsspy -u "https://example.com/search"

  # Manual parameters, stop each one after its first finding
  xsspy -u "https://example.com/search?q=hi" -p q,lang --first

  # Remote judge, four concurrent test cases, JSON export
  xsspy -u "https://example.com/" --judge-url http://10.0.0.5:5000/analyze -t 4 --json result.json

  # Through Burp with a session cookie
  xsspy -u "https://example.com/" --proxy http://127.0.0.1:8080 -c "session=abc123"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if f.threads < 1 {
				return fmt.Errorf("threads must be at least 1, got %d", f.threads)
			}
			if f.timeout <= 0 || f.judgeTimeout <= 0 {
				return fmt.Errorf("timeouts must be positive")
			}
			if f.proxyURL != "" {
				if !strings.HasPrefix(f.proxyURL, "http://") && !strings.HasPrefix(f.proxyURL, "https://") && !strings.HasPrefix(f.proxyURL, "socks5://") {
					return fmt.Errorf("invalid proxy URL format. Use http://, https://, or socks5:// prefix")
				}
			}
			if cmd.Flags().Changed("params") && len(splitParams(f.params)) == 0 {
				return fmt.Errorf("--params %q contains no parameter names", f.params)
			}
			for _, h := range f.headers {
				if !strings.Contains(h, ":") {
					return fmt.Errorf("invalid header format: %s (expected 'Header-Name: value')", h)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := f.scanConfig()

			level := logrus.WarnLevel
			if f.verbose {
				level = logrus.DebugLevel
			} else if f.logFile != "" {
				level = logrus.InfoLevel
			}
			log, closeLog, err := logger.New(logger.Options{
				Level: level,
				File:  f.logFile,
				Out:   cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			defer closeLog()

			console := reporter.NewConsole(reporter.Options{
				Out:     cmd.OutOrStdout(),
				ErrOut:  cmd.ErrOrStderr(),
				Silent:  cfg.Silent,
				NoColor: f.noColor,
			})

			if !cfg.Silent {
				fmt.Fprintln(cmd.OutOrStdout(), banner.GetBanner())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runScan(ctx, cfg, console, logrus.NewEntry(log))
		},
	}

	// Target flags
	rootCmd.Flags().StringVarP(&f.targetURL, "url", "u", "", "Target URL to scan")
	rootCmd.Flags().StringVarP(&f.params, "params", "p", "", "Manual comma-separated list of parameters to test")
	_ = rootCmd.MarkFlagRequired("url")

	// Payload flags
	rootCmd.Flags().StringVar(&f.payloadFile, "payloads-file", config.DefaultPayloadFile, "File containing XSS payloads, one per line")

	// Judge flags
	defaultJudge := config.DefaultJudgeURL
	if v := os.Getenv(JudgeURLEnv); v != "" {
		defaultJudge = v
	}
	rootCmd.Flags().StringVar(&f.judgeURL, "judge-url", defaultJudge, "Analysis server endpoint (env "+JudgeURLEnv+")")
	rootCmd.Flags().IntVar(&f.judgeTimeout, "judge-timeout", 30, "Analysis request timeout in seconds")

	// Request flags
	rootCmd.Flags().IntVar(&f.timeout, "timeout", 10, "Target request timeout in seconds")
	rootCmd.Flags().Int64Var(&f.maxBody, "max-body", scanner.DefaultMaxBodySize, "Maximum response body bytes read from the target")
	rootCmd.Flags().StringArrayVarP(&f.headers, "header", "H", []string{}, "Extra request header (e.g. \"Authorization: Bearer x\"). Can be used multiple times.")
	rootCmd.Flags().StringVarP(&f.cookies, "cookie", "c", "", "Cookie header value (e.g. \"session=abc123; token=xyz\")")
	rootCmd.Flags().StringVar(&f.userAgent, "user-agent", config.DefaultUserAgent, "User-Agent sent to the target")
	rootCmd.Flags().StringVar(&f.proxyURL, "proxy", "", "Proxy URL (e.g. http://127.0.0.1:8080 for Burp Suite)")

	// Scan flags
	rootCmd.Flags().BoolVar(&f.firstOnly, "first", false, "Stop testing a parameter after its first vulnerability")
	rootCmd.Flags().IntVarP(&f.threads, "threads", "t", 1, "Concurrent test cases (1 keeps the scan strictly sequential)")

	// Output flags
	rootCmd.Flags().StringVarP(&f.outputFile, "output", "o", config.DefaultOutputFile, "Findings log, recreated at scan start")
	rootCmd.Flags().StringVar(&f.jsonFile, "json", "", "Also export the scan result as JSON to this file")
	rootCmd.Flags().StringVar(&f.markdownFile, "markdown", "", "Also export the scan result as Markdown to this file")
	rootCmd.Flags().StringVar(&f.webhookURL, "webhook", "", "Discord/Slack webhook notified when findings exist")
	rootCmd.Flags().StringVar(&f.logFile, "log-file", "", "Write structured JSON logs to this file")
	rootCmd.Flags().BoolVar(&f.verbose, "verbose", false, "Enable debug logging")
	rootCmd.Flags().BoolVar(&f.silent, "silent", false, "Silence all output except findings and errors")
	rootCmd.Flags().BoolVar(&f.noColor, "no-color", false, "Disable colored output")

	return rootCmd
}

// scanConfig converts parsed flags into a ScanConfig
func (f *scanFlags) scanConfig() *config.ScanConfig {
	cfg := config.DefaultConfig()
	cfg.TargetURL = f.targetURL
	cfg.Params = splitParams(f.params)
	cfg.PayloadFile = f.payloadFile
	cfg.OutputFile = f.outputFile
	cfg.JSONFile = f.jsonFile
	cfg.MarkdownFile = f.markdownFile
	cfg.WebhookURL = f.webhookURL
	cfg.JudgeURL = f.judgeURL
	cfg.FirstOnly = f.firstOnly
	cfg.Threads = f.threads
	cfg.Timeout = time.Duration(f.timeout) * time.Second
	cfg.JudgeTimeout = time.Duration(f.judgeTimeout) * time.Second
	cfg.MaxBodySize = f.maxBody
	cfg.Cookies = f.cookies
	cfg.UserAgent = f.userAgent
	cfg.ProxyURL = f.proxyURL
	cfg.Verbose = f.verbose
	cfg.Silent = f.silent

	for _, h := range f.headers {
		parts := strings.SplitN(h, ":", 2)
		cfg.Headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return cfg
}

// runScan executes one scan invocation. Returned errors are fatal and
// map to a non-zero exit; an interrupt is not an error.
func runScan(ctx context.Context, cfg *config.ScanConfig, console *reporter.Console, log *logrus.Entry) error {
	payloadList, err := payloads.LoadFromFile(cfg.PayloadFile)
	if err != nil {
		return err
	}
	console.Info("Loaded %d payloads from '%s'.", len(payloadList), cfg.PayloadFile)

	// The report is recreated before discovery so a failed run never
	// leaves the previous run's findings behind.
	started := time.Now()
	scanID := uuid.NewString()
	log = log.WithField("scan_id", scanID)

	sink, err := report.NewFileSink(cfg.OutputFile, cfg.TargetURL, scanID, started)
	if err != nil {
		return err
	}
	defer sink.Close()

	fetcher, err := scanner.NewHTTPFetcher(scanner.HTTPConfig{
		Timeout:     cfg.Timeout,
		ProxyURL:    cfg.ProxyURL,
		Cookies:     cfg.Cookies,
		Headers:     cfg.Headers,
		UserAgent:   cfg.UserAgent,
		MaxBodySize: cfg.MaxBodySize,
	})
	if err != nil {
		return err
	}

	params, wafName := selectParams(ctx, cfg, scanner.NewDiscoverer(fetcher), console)
	if ctx.Err() != nil {
		console.Warn("Scan interrupted by user. Exiting.")
		return nil
	}
	if len(params) == 0 {
		return fmt.Errorf("could not find any parameters to test: %w", scanner.ErrNoParameters)
	}

	client := judge.NewClient(judge.ClientConfig{
		URL:     cfg.JudgeURL,
		Timeout: cfg.JudgeTimeout,
		Logger:  log,
	})

	s := scanner.New(fetcher, client, sink, console, scanner.Options{
		FirstOnly: cfg.FirstOnly,
		Threads:   cfg.Threads,
		Logger:    log,
	})

	log.WithFields(logrus.Fields{
		"target":   cfg.TargetURL,
		"params":   len(params),
		"payloads": len(payloadList),
		"threads":  cfg.Threads,
	}).Info("scan started")

	findings, err := s.Scan(ctx, cfg.TargetURL, params, payloadList)
	interrupted := errors.Is(err, context.Canceled)
	if err != nil && !interrupted {
		return err
	}
	if interrupted {
		console.Warn("Scan interrupted by user. Exiting.")
	}

	ended := time.Now()
	result := &config.ScanResult{
		ScanID:            scanID,
		TargetURL:         cfg.TargetURL,
		ScanStartTime:     started,
		ScanEndTime:       ended,
		ScanDuration:      ended.Sub(started).Round(time.Millisecond).String(),
		Parameters:        params,
		PayloadCount:      len(payloadList),
		TestedCases:       s.TestedCases(),
		InconclusiveCases: s.InconclusiveCases(),
		WAFDetected:       wafName,
		Findings:          findings,
		Interrupted:       interrupted,
	}
	if result.Findings == nil {
		result.Findings = []config.Finding{}
	}

	log.WithFields(logrus.Fields{
		"findings":     len(findings),
		"tested":       result.TestedCases,
		"inconclusive": result.InconclusiveCases,
		"duration":     result.ScanDuration,
	}).Info("scan finished")

	console.Summary(findings, sink.Path())
	if result.InconclusiveCases > 0 {
		console.Warn("%d test cases could not be analysed; check the analysis server.", result.InconclusiveCases)
	}

	exportResult(context.WithoutCancel(ctx), cfg, result, console)
	return nil
}

// selectParams returns the manual parameters or runs discovery. Discovery
// failure is not fatal here: the caller aborts on an empty list.
func selectParams(ctx context.Context, cfg *config.ScanConfig, discoverer scanner.ParameterDiscoverer, console *reporter.Console) ([]string, string) {
	if len(cfg.Params) > 0 {
		console.Info("Using manually provided parameters: %s", strings.Join(cfg.Params, ", "))
		return cfg.Params, ""
	}

	console.Step("Attempting to discover parameters from %s...", cfg.TargetURL)
	result, err := discoverer.Discover(ctx, cfg.TargetURL)

	var wafName string
	if result != nil && result.WAF != "" {
		wafName = result.WAF
		console.Warn("WAF detected: %s. Payloads may be blocked.", wafName)
	}

	switch {
	case ctx.Err() != nil:
		return nil, wafName
	case err != nil:
		console.Error("Could not fetch base URL to discover parameters: %v", err)
		return nil, wafName
	case len(result.Params) == 0:
		console.Info("No parameters discovered automatically. Please provide them manually using --params.")
		return nil, wafName
	}

	console.Info("Discovered %d potential parameters: %s", len(result.Params), strings.Join(result.Params, ", "))
	return result.Params, wafName
}

// exportResult writes the optional exports. Failures are reported but
// never change the exit status.
func exportResult(ctx context.Context, cfg *config.ScanConfig, result *config.ScanResult, console *reporter.Console) {
	exports := []struct {
		path   string
		format string
	}{
		{cfg.JSONFile, "json"},
		{cfg.MarkdownFile, "markdown"},
	}
	for _, e := range exports {
		if e.path == "" {
			continue
		}
		if err := report.NewExporter(e.format).Export(result, e.path); err != nil {
			console.Error("Could not write %s report: %v", e.format, err)
			continue
		}
		console.Success("%s report saved to: %s", strings.ToUpper(e.format[:1])+e.format[1:], e.path)
	}

	if cfg.WebhookURL != "" {
		if err := report.SendWebhook(ctx, result, cfg.WebhookURL); err != nil {
			console.Error("Webhook notification failed: %v", err)
		}
	}
}

// splitParams parses a comma-separated list, keeping caller order and
// dropping blanks and duplicates.
func splitParams(raw string) []string {
	if raw == "" {
		return nil
	}

	seen := make(map[string]bool)
	var params []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		params = append(params, p)
	}
	return params
}

// printError writes a fatal error with the same marker the console uses
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "[ERROR] %v\n", err)
}
