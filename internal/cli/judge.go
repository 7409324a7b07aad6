package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xsspy/xsspy/internal/analysis"
	"github.com/xsspy/xsspy/internal/banner"
	"github.com/xsspy/xsspy/internal/judgeconfig"
	"github.com/xsspy/xsspy/internal/logger"
	"github.com/xsspy/xsspy/internal/web"
)

type judgeFlags struct {
	configFile string
	envFile    string
	listen     string
	provider   string
	logLevel   string
}

// ExecuteJudge runs the analysis server command line
func ExecuteJudge() error {
	return newJudgeCmd().Execute()
}

func newJudgeCmd() *cobra.Command {
	f := &judgeFlags{}

	rootCmd := &cobra.Command{
		Use:   "xsspy-judge",
		Short: "Analysis server that classifies reflected payloads",
		Long: `xsspy-judge answers POST /analyze with a single-line verdict
("VULNERABLE: ..." or "SAFE: ...") for an HTML response and the payload
that was injected into it.

Providers:
  gemini     Google Gemini (GEMINI_API_KEY)
  openai     any OpenAI-compatible chat endpoint (JUDGE_BASE_URL)
  ollama     a local Ollama server (JUDGE_BASE_URL)
  heuristic  offline reflection analysis, no model needed
  browser    headless Chromium, vulnerable when a dialog fires`,
		SilenceUsage: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the analysis server",
		Example: `  # Gemini, key read from .env
  xsspy-judge serve

  # Offline heuristics on another port
  xsspy-judge serve --provider heuristic --listen :8080

  # YAML configuration
  xsspy-judge serve --config judge.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := judgeconfig.Load(f.configFile, f.envFile)
			if err != nil {
				return err
			}
			if f.listen != "" {
				cfg.ListenAddr = f.listen
			}
			if f.provider != "" {
				cfg.Provider.Type = analysis.ProviderType(f.provider)
			}
			if f.logLevel != "" {
				cfg.LogLevel = f.logLevel
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serveJudge(ctx, cfg, cmd.OutOrStdout())
		},
	}

	serveCmd.Flags().StringVar(&f.configFile, "config", "", "YAML configuration file")
	serveCmd.Flags().StringVar(&f.envFile, "env-file", ".env", "Environment file holding provider credentials")
	serveCmd.Flags().StringVar(&f.listen, "listen", "", "Listen address (overrides config, e.g. :5000)")
	serveCmd.Flags().StringVar(&f.provider, "provider", "", "Provider type (gemini, openai, ollama, heuristic, browser)")
	serveCmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	return rootCmd
}

// serveJudge runs the server until ctx ends
func serveJudge(ctx context.Context, cfg *judgeconfig.Config, out io.Writer) error {
	log, closeLog, err := logger.New(logger.Options{
		Level: logger.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogFormat == "json",
	})
	if err != nil {
		return err
	}
	defer closeLog()

	entry := logrus.NewEntry(log).WithField("service", "judge")

	provider, err := analysis.NewProvider(cfg.Provider, entry)
	if err != nil {
		return fmt.Errorf("could not create provider: %w", err)
	}
	if closer, ok := provider.(io.Closer); ok {
		defer closer.Close()
	}

	if !cfg.Configured() {
		entry.WithField("provider", provider.Name()).
			Warn("provider is missing its credential; /analyze will answer 500 until it is set")
	}

	var hub *web.Hub
	if cfg.Feed {
		hub = web.NewHub(entry)
	}

	handler := web.NewHandler(provider, cfg.Configured(), cfg.MaxBodyBytes, hub)
	server := web.NewServer(cfg.ListenAddr, handler, hub, entry)

	fmt.Fprintln(out, banner.Judge(provider.Name(), cfg.ListenAddr))
	return server.Run(ctx)
}
