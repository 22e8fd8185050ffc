package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/crawler"
	"github.com/nao1215/sitecrawl/internal/database"
	seclog "github.com/nao1215/sitecrawl/internal/log"
	"github.com/nao1215/sitecrawl/internal/metrics"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/report"
)

// seedPrompt is shown when no URL is given on the command line.
const seedPrompt = "Enter a full URL (include https://): "

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [URL]",
		Short: "Crawl every internal page reachable from a URL",
		Long: `Crawl discovers the pages of a website starting from a seed URL.

Links are followed breadth-first. Only links on the seed's host are followed,
query strings and fragments are dropped, and every URL is fetched at most once.
A page is listed when it answers with a 2xx status; failures are reported and
never retried.

When no URL is given, you are prompted for one.

Examples:
  # Crawl a site with the defaults (10s timeout, 500ms delay)
  sitecrawl crawl https://example.com/

  # Crawl faster with four workers and a shorter delay
  sitecrawl crawl --workers 4 --delay 100ms https://example.com/

  # Include subdomains and write a Markdown report
  sitecrawl crawl --scope site --markdown https://www.example.co.uk/

  # Expose Prometheus metrics while crawling
  sitecrawl crawl --metrics-addr 127.0.0.1:9090 https://example.com/

Configuration file (.sitecrawl) example:
  delay: 1s
  sites:
    example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().DurationP("delay", "d", config.DefaultDelay,
		"Pause after each fetched page (0 disables it)")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent fetches")
	cmd.Flags().StringP("scope", "s", config.DefaultScope,
		"Which links are internal: host (exact host) or site (registrable domain)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:1080)")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum number of bytes read from each response")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitecrawl in current or home directory)")

	// Report flags
	cmd.Flags().StringP("output-dir", "o", "",
		"Directory for the report file (default: current directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Write the report as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Write the report as Markdown (mutually exclusive with --json)")
	cmd.Flags().Bool("no-report", false,
		"Do not write a report file")
	cmd.Flags().Bool("no-history", false,
		"Do not save this run to the history database")
	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address while crawling (e.g., 127.0.0.1:9090)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if cfg.Seed == "" {
		cfg.Seed, err = promptSeed(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := seclog.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// promptSeed asks for the seed URL on out and reads one line from in.
func promptSeed(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, seedPrompt)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read URL: %w", err)
	}
	seed := strings.TrimSpace(line)
	if seed == "" {
		return "", config.ErrNoSeed
	}
	return seed, nil
}

// buildConfig creates a Config from defaults, the config file and the
// command flags, in that order of precedence.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicitly named config file must exist. Otherwise a missing file
	// simply means no file settings.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(file)
	case explicitConfigPath:
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.Seed = strings.TrimSpace(args[0])
	}

	return cfg, nil
}

// applyFlags copies explicitly set flags onto cfg. Flags left at their
// default do not override values from the config file.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("delay") {
		if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
			return err
		}
	}
	if flags.Changed("workers") {
		if cfg.Workers, err = flags.GetInt("workers"); err != nil {
			return err
		}
	}
	if flags.Changed("scope") {
		if cfg.Scope, err = flags.GetString("scope"); err != nil {
			return err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return err
		}
	}
	if flags.Changed("max-body-size") {
		if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
			return err
		}
	}
	if flags.Changed("output-dir") {
		if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
			return err
		}
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return err
	}
	if cfg.NoReport, err = flags.GetBool("no-report"); err != nil {
		return err
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return err
	}
	cfg.SaveToDB = !noHistory
	if cfg.MetricsAddr, err = flags.GetString("metrics-addr"); err != nil {
		return err
	}
	return nil
}

// runCrawl executes the crawl and writes its outputs.
// An interrupted crawl still prints, saves and records what it found.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	fetcher, err := newFetcher(cfg)
	if err != nil {
		return err
	}

	if cfg.ProxyAddress != "" {
		status := crawler.CheckProxy(ctx, cfg.ProxyAddress)
		if err := status.Err(); err != nil {
			return fmt.Errorf("proxy check failed: %w (make sure a SOCKS5 proxy is running at %s)", err, cfg.ProxyAddress)
		}
		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
	}

	reporters := []crawler.Reporter{
		crawler.NewConsoleReporter(out),
		crawler.NewLogReporter(logger),
	}
	if cfg.MetricsAddr != "" {
		recorder := metrics.NewRecorder()
		srv, err := metrics.Serve(cfg.MetricsAddr, recorder)
		if err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx) //nolint:errcheck // best effort on exit
		}()
		logger.Info("serving metrics", "addr", srv.Addr())
		reporters = append(reporters, recorder)
	}

	spider := crawler.NewSpider(fetcher,
		crawler.WithDelay(cfg.Delay),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithScope(cfg.Scope),
		crawler.WithReporter(crawler.NewMultiReporter(reporters...)),
		crawler.WithLogger(logger),
	)

	logger.Info("starting crawl",
		"seed", cfg.Seed,
		"workers", cfg.Workers,
		"delay", cfg.Delay,
		"scope", cfg.Scope,
		"saveToDB", cfg.SaveToDB,
	)

	result, crawlErr := spider.Crawl(ctx, cfg.Seed)
	if result == nil {
		return crawlErr
	}
	if crawlErr != nil {
		logger.Warn("crawl interrupted", "error", crawlErr)
	}

	console := report.NewConsoleWriter(out)
	if _, err := console.Write(result); err != nil {
		return fmt.Errorf("failed to print results: %w", err)
	}

	if !cfg.NoReport {
		path, err := writeReportFile(cfg, result, time.Now())
		if err != nil {
			return err
		}
		if _, err := console.WriteSaved(path); err != nil {
			return fmt.Errorf("failed to print results: %w", err)
		}
	}

	if cfg.SaveToDB {
		// The crawl context may already be cancelled; saving must still work.
		if err := saveRun(context.WithoutCancel(ctx), cfg, result, logger); err != nil {
			logger.Error("failed to save crawl history", "error", err)
		}
	}

	return nil
}

// newFetcher builds the HTTP fetcher. Per-site headers from the config file
// are looked up for each request's host.
func newFetcher(cfg *config.Config) (*crawler.HTTPFetcher, error) {
	opts := []crawler.FetcherOption{
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
	}
	if sites := cfg.SiteConfigs; sites != nil {
		opts = append(opts, crawler.WithHostHeaders(func(host string) map[string]string {
			return sites.GetSiteConfig(host).RequestHeaders()
		}))
	}
	if cfg.ProxyAddress != "" {
		opts = append(opts, crawler.WithSOCKS5Proxy(cfg.ProxyAddress))
	}

	fetcher, err := crawler.NewHTTPFetcher(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	return fetcher, nil
}

// reportFormat returns the report file format selected by cfg.
func reportFormat(cfg *config.Config) report.Format {
	switch {
	case cfg.JSONReport:
		return report.FormatJSON
	case cfg.MarkdownReport:
		return report.FormatMarkdown
	default:
		return report.FormatText
	}
}

// writeReportFile writes the report to a timestamped file in cfg.OutputDir
// and returns its absolute path.
func writeReportFile(cfg *config.Config, result *model.CrawlResult, now time.Time) (string, error) {
	dir := cfg.OutputDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	format := reportFormat(cfg)
	path := filepath.Join(dir, report.FileName(now, format.Extension()))
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // path built from user-chosen directory
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	writer, err := report.NewWriter(format, f, getVersion())
	if err != nil {
		return "", err
	}
	if _, err := writer.Write(result); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// saveRun stores the result in the history database.
func saveRun(ctx context.Context, cfg *config.Config, result *model.CrawlResult, logger *slog.Logger) error {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	id, err := db.SaveRun(ctx, result)
	if err != nil {
		return err
	}
	logger.Info("crawl saved to history", "id", id, "db", db.Path())
	return nil
}
