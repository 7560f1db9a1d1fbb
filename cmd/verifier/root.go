package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/williampepple1/booksource-verifier/internal/checker"
	"github.com/williampepple1/booksource-verifier/internal/client"
	"github.com/williampepple1/booksource-verifier/internal/config"
	"github.com/williampepple1/booksource-verifier/internal/io"
	"github.com/williampepple1/booksource-verifier/internal/logging"
	"github.com/williampepple1/booksource-verifier/internal/metrics"
	"github.com/williampepple1/booksource-verifier/internal/pipeline"
	"github.com/williampepple1/booksource-verifier/internal/proxy"
	"github.com/williampepple1/booksource-verifier/internal/worker"
)

// options holds the command-line flags
type options struct {
	configFile   string
	path         string
	outPath      string
	workers      int
	dedup        bool
	filter       bool
	keywords     []string
	exact        bool
	timeout      string
	userAgent    string
	browser      bool
	captureTitle bool
	metricsAddr  string
	reportFile   string
	logLevel     string
}

func newRootCmd() *cobra.Command {
	return newCommand(&options{})
}

func newCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verifier",
		Short: "Check book sources for reachability and keep the working ones",
		Long: `verifier loads a JSON array of book sources from a file or URL, requests
every bookSourceUrl once on a pool of workers and writes the sources that
answered with HTTP 200 to <outpath>/valid_books.json.

More workers do not make the run proportionally faster; the checks are
network bound and very large pools mostly add load on the remote hosts.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configFile, "config", "c", "", "Path to configuration file (YAML or JSON)")
	f.StringVarP(&opts.path, "path", "p", "", "Book source file path or http(s) URL")
	f.StringVarP(&opts.outPath, "outpath", "o", config.DefaultOutPath, "Directory for valid_books.json")
	f.IntVarP(&opts.workers, "workers", "w", config.DefaultWorkers, "Number of concurrent workers")
	f.BoolVar(&opts.dedup, "dedup", false, "Drop reachable sources with an already seen URL")
	f.BoolVar(&opts.filter, "filter", false, "Drop sources matching --keywords")
	f.StringSliceVarP(&opts.keywords, "keywords", "k", nil, "Comma separated keywords to filter")
	f.BoolVar(&opts.exact, "exact", false, "Match keywords against the whole source name only")
	f.StringVarP(&opts.timeout, "timeout", "t", "5", "Per-request timeout, seconds or duration (1500ms)")
	f.StringVar(&opts.userAgent, "user-agent", config.DefaultUserAgent, "User-Agent header sent with every request")
	f.BoolVar(&opts.browser, "browser", false, "Check sources with a headless Chrome instead of plain HTTP")
	f.BoolVar(&opts.captureTitle, "capture-title", false, "Log the page title of reachable sources (debug level)")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	f.StringVar(&opts.reportFile, "report", "", "Also write the report as JSON to this file")
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	return cmd
}

// buildConfig loads the config file, if any, and applies changed flags on top
func buildConfig(cmd *cobra.Command, opts *options) (*config.AppConfig, error) {
	cfg := config.CreateDefault()
	if opts.configFile != "" {
		loaded, err := config.Load(opts.configFile)
		if err != nil {
			return nil, fmt.Errorf("loading configuration: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if opts.configFile == "" || flags.Changed("path") {
		cfg.Path = opts.path
	}
	if opts.configFile == "" || flags.Changed("outpath") {
		cfg.OutPath = opts.outPath
	}
	if opts.configFile == "" || flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("dedup") {
		cfg.Dedup = config.Switch(opts.dedup)
	}
	if flags.Changed("filter") {
		cfg.Filter = config.Switch(opts.filter)
	}
	if flags.Changed("keywords") {
		cfg.KeywordsToFilter = opts.keywords
	}
	if flags.Changed("exact") {
		cfg.ExactKeywordMatch = config.Switch(opts.exact)
	}
	if opts.configFile == "" || flags.Changed("timeout") {
		timeout, err := config.ParseDuration(opts.timeout)
		if err != nil {
			return nil, fmt.Errorf("--timeout: %w", err)
		}
		cfg.Timeout = config.Duration(timeout)
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent = opts.userAgent
	}
	if flags.Changed("browser") {
		cfg.Browser.Enabled = opts.browser
	}
	if flags.Changed("capture-title") {
		cfg.CaptureTitle = opts.captureTitle
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.metricsAddr
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(cmd *cobra.Command, opts *options) error {
	level, err := logging.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logger := logging.New(cmd.ErrOrStderr(), level)

	cfg, err := buildConfig(cmd, opts)
	if err != nil {
		return err
	}
	if cfg.Filter && len(cfg.KeywordsToFilter) == 0 {
		logger.Warn("Keyword filter enabled without keywords; nothing will be filtered")
	}

	proxies, err := proxy.NewManager(&cfg.Proxies)
	if err != nil {
		return err
	}
	httpClient := client.New(&client.Config{
		UserAgent:      cfg.UserAgent,
		RequestTimeout: cfg.RequestTimeout(),
		Proxies:        proxies,
	})

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		m = metrics.New()
		srv, err := m.StartServer(cfg.MetricsAddr, logger)
		if err != nil {
			return fmt.Errorf("starting metrics server: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	chk := checker.New(cfg, httpClient, logger)
	defer chk.Close()

	runner := pipeline.New(cfg, logger, httpClient, chk, m)
	runner.Pool.Progress = progressLogger(logger)

	report, runErr := runner.Run(context.Background())

	if err := report.Summary.Write(cmd.OutOrStdout()); err != nil {
		return err
	}
	if opts.reportFile != "" {
		if err := runner.Writer.SaveReport(report.Summary, opts.reportFile); err != nil {
			logger.Error("Failed to save report", "error", err)
		}
	}

	var saveErr *io.SaveError
	if errors.As(runErr, &saveErr) {
		return fmt.Errorf("valid book sources were NOT saved: %w", runErr)
	}
	if runErr != nil {
		return runErr
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Valid book sources saved to %s\n", report.OutputFile)
	return nil
}

// progressLogger logs progress every ten percent
func progressLogger(logger *slog.Logger) worker.ProgressFunc {
	lastStep := -1
	return func(done, total int) {
		if total == 0 {
			return
		}
		step := done * 10 / total
		if step == lastStep {
			return
		}
		lastStep = step
		logger.Info("Check progress",
			"done", done,
			"total", total,
			"percent", step*10,
		)
	}
}
