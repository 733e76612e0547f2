package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/quietwire/linkcheck/internal/cache"
	"github.com/quietwire/linkcheck/internal/checker"
	"github.com/quietwire/linkcheck/internal/classify"
	"github.com/quietwire/linkcheck/internal/config"
	"github.com/quietwire/linkcheck/internal/database"
	"github.com/quietwire/linkcheck/internal/discovery"
	"github.com/quietwire/linkcheck/internal/metrics"
	"github.com/quietwire/linkcheck/internal/model"
	"github.com/quietwire/linkcheck/internal/pipeline"
	"github.com/quietwire/linkcheck/internal/report"
	"github.com/quietwire/linkcheck/internal/resolver"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Check the links of Markdown documents",
		Long: `Check extracts every link of the selected documents and validates it.

Documents are the given paths (directories are searched for *.md files) or,
without arguments, the files below --root matching --glob.

Each link yields one finding:
  ok       the link resolves
  warning  rate limited (HTTP 429), or the host is not in --allow-host
  error    broken, forbidden scheme, denied or private host
  skip     mailto:/tel: links, or external links with --internal-only

Examples:
  # Check the default corpus of the current directory
  linkcheck check

  # Check one directory, relative links only
  linkcheck check --internal-only docs/

  # Fail on warnings too and write a Markdown report
  linkcheck check --strict -f markdown -o report.md

  # Route external checks through a SOCKS5 proxy, 2 requests/s per host
  linkcheck check --proxy 127.0.0.1:9050 --host-rate 2

The exit status is 1 when any error finding exists, or any warning with --strict.`,
		Args: cobra.ArbitraryArgs,
		RunE: runCheckCmd,
	}

	// Discovery flags
	cmd.Flags().String("root", config.DefaultRoot, "Corpus root; globs and /-prefixed links are relative to it")
	cmd.Flags().StringArray("glob", nil, "Document glob relative to --root (repeatable)")
	cmd.Flags().StringArray("ignore", nil, "Glob of paths to skip, added to the defaults (repeatable)")

	// Validation flags
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers, "Number of documents checked concurrently")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Timeout for each HTTP request")
	cmd.Flags().Int("max-redirects", config.DefaultMaxRedirects, "Maximum redirects followed per link")
	cmd.Flags().Bool("external-only", false, "Check external links only")
	cmd.Flags().Bool("internal-only", false, "Check relative links only; external links are skipped")
	cmd.Flags().StringArray("allow-host", nil, "Expected host suffix; other hosts produce warnings (repeatable)")
	cmd.Flags().StringArray("deny-host", nil, "Host suffix whose links are errors (repeatable)")
	cmd.Flags().Bool("allow-private", false, "Check links to loopback and private network hosts")
	cmd.Flags().Bool("strict-schemes", false, "Also forbid vbscript: links")
	cmd.Flags().Bool("html-anchors", false, "Let fragments match inline HTML anchors such as <a id=\"x\">")

	// Network flags
	cmd.Flags().String("proxy", "", "SOCKS5 proxy for external checks (host:port)")
	cmd.Flags().Bool("insecure", false, "Accept invalid TLS certificates")
	cmd.Flags().Float64("host-rate", 0, "Requests per second per host (0 = unlimited)")
	cmd.Flags().String("cache", config.DefaultCacheFile, "Reachability cache file (empty disables persistence)")
	cmd.Flags().Duration("max-age", config.DefaultMaxAge, "How long cached results stay fresh")

	// Report flags
	cmd.Flags().StringP("format", "f", config.DefaultFormat, "Report format: text, json or markdown")
	cmd.Flags().StringP("report", "o", "-", "Report path, '-' for stdout")
	cmd.Flags().Bool("strict", false, "Warnings fail the run")
	cmd.Flags().Bool("problems-only", false, "List only warnings and errors in the text report")
	cmd.Flags().Bool("annotations", os.Getenv("GITHUB_ACTIONS") == "true",
		"Emit GitHub workflow annotations for failing links")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this textfile")

	// History flags
	cmd.Flags().Bool("no-history", false, "Do not record the run in the history database")
	cmd.Flags().String("history-dir", config.XDGDataDir(), "History database directory")

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .linkcheck.yaml in current directory or XDG config directory)")

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)
	return runCheck(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// buildConfig layers defaults, the configuration file and explicitly set flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// A missing file is an error only when it was asked for explicitly.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cf.Apply(cfg)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	stringFlags := map[string]*string{
		"root":         &cfg.Root,
		"proxy":        &cfg.ProxyAddress,
		"cache":        &cfg.CachePath,
		"format":       &cfg.Format,
		"report":       &cfg.ReportFile,
		"metrics-file": &cfg.MetricsFile,
		"history-dir":  &cfg.DBDir,
	}
	for name, dst := range stringFlags {
		if flags.Changed(name) {
			if *dst, err = flags.GetString(name); err != nil {
				return nil, err
			}
		}
	}

	arrayFlags := map[string]*[]string{
		"glob":       &cfg.Globs,
		"ignore":     &cfg.Ignores,
		"allow-host": &cfg.AllowHosts,
		"deny-host":  &cfg.DenyHosts,
	}
	for name, dst := range arrayFlags {
		if flags.Changed(name) {
			if *dst, err = flags.GetStringArray(name); err != nil {
				return nil, err
			}
		}
	}

	boolFlags := map[string]*bool{
		"external-only":  &cfg.ExternalOnly,
		"internal-only":  &cfg.InternalOnly,
		"allow-private":  &cfg.AllowPrivate,
		"strict-schemes": &cfg.StrictSchemes,
		"html-anchors":   &cfg.HTMLAnchors,
		"strict":         &cfg.Strict,
		"problems-only":  &cfg.ProblemsOnly,
		"insecure":       &cfg.InsecureSkipVerify,
	}
	for name, dst := range boolFlags {
		if flags.Changed(name) {
			if *dst, err = flags.GetBool(name); err != nil {
				return nil, err
			}
		}
	}

	if flags.Changed("workers") {
		if cfg.Workers, err = flags.GetInt("workers"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-redirects") {
		if cfg.MaxRedirects, err = flags.GetInt("max-redirects"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-age") {
		if cfg.MaxAge, err = flags.GetDuration("max-age"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("host-rate") {
		if cfg.HostRate, err = flags.GetFloat64("host-rate"); err != nil {
			return nil, err
		}
	}

	// Flags without a configuration file key.
	if cfg.Annotations, err = flags.GetBool("annotations"); err != nil {
		return nil, err
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Paths = args

	return cfg, nil
}

// runCheck validates the corpus described by cfg and writes the reports.
// Link failures are returned as ErrLinksFailed after everything is written.
func runCheck(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) error {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return fmt.Errorf("failed to resolve root %s: %w", cfg.Root, err)
	}

	paths, err := discoverDocuments(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("starting check", "root", root, "documents", len(paths), "workers", cfg.Workers)

	var m *metrics.Metrics
	if cfg.MetricsFile != "" {
		m = metrics.New()
	}

	store := cache.New(cache.WithPath(cfg.CachePath), cache.WithMaxAge(cfg.MaxAge))
	engine, err := newEngine(cfg, root, store, m, logger)
	if err != nil {
		return err
	}

	result, runErr := engine.Run(ctx, paths)

	if err := writeReports(cfg, stdout, stderr, result); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("check interrupted: %w", runErr)
	}

	if cfg.SaveHistory {
		saveHistory(ctx, cfg, result, logger)
	}
	if m != nil {
		m.ObserveResult(result)
		if err := m.WriteToTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("failed to write metrics", "error", err)
		}
	}

	if result.Failed(cfg.Strict) {
		return ErrLinksFailed
	}
	return nil
}

// discoverDocuments lists the documents to check. Configured ignores are
// added to the discovery defaults.
func discoverDocuments(cfg *config.Config, logger *slog.Logger) ([]string, error) {
	ignores := append(slices.Clone(discovery.DefaultIgnores), cfg.Ignores...)
	finder, err := discovery.New(cfg.Root, cfg.Globs, ignores, discovery.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if len(cfg.Paths) > 0 {
		return finder.Expand(cfg.Paths)
	}
	return finder.Find()
}

// newEngine wires the checker, resolver and validate step described by cfg.
func newEngine(cfg *config.Config, root string, store *cache.Store, m *metrics.Metrics, logger *slog.Logger) (*pipeline.Engine, error) {
	var clientOpts []checker.ClientOption
	if cfg.ProxyAddress != "" {
		clientOpts = append(clientOpts, checker.WithProxy(cfg.ProxyAddress))
	}
	if len(cfg.Hosts) > 0 {
		clientOpts = append(clientOpts, checker.WithHostHeaders(hostHeaders(cfg.Hosts)))
	}
	if cfg.InsecureSkipVerify {
		clientOpts = append(clientOpts, checker.WithTLSConfig(&tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // Explicitly requested with --insecure
			MinVersion:         tls.VersionTLS12,
		}))
	}
	client, err := checker.NewHTTPClient(cfg.Timeout, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	checkerOpts := []checker.Option{
		checker.WithCache(store),
		checker.WithMaxRedirects(cfg.MaxRedirects),
		checker.WithLogger(logger),
	}
	if cfg.UserAgent != "" {
		checkerOpts = append(checkerOpts, checker.WithUserAgent(cfg.UserAgent))
	}
	if cfg.HostRate > 0 {
		checkerOpts = append(checkerOpts, checker.WithLimiter(checker.NewHostLimiter(cfg.HostRate, 1)))
	}
	if m != nil {
		checkerOpts = append(checkerOpts, checker.WithRecorder(m))
	}
	if cfg.AllowPrivate {
		checkerOpts = append(checkerOpts, checker.WithPrivateRedirects())
	}

	resolverOpts := []resolver.Option{resolver.WithRoot(cfg.Root), resolver.WithLogger(logger)}
	if cfg.HTMLAnchors {
		resolverOpts = append(resolverOpts, resolver.WithHTMLAnchors())
	}

	var classifyOpts []classify.Option
	if cfg.StrictSchemes {
		classifyOpts = append(classifyOpts, classify.WithStrictSchemes())
	}

	validate := pipeline.NewValidateStep(
		checker.New(client, checkerOpts...),
		resolver.New(resolverOpts...),
		pipeline.WithClassifier(classify.New(classifyOpts...)),
		pipeline.WithHostPolicy(classify.NewHostPolicy(cfg.AllowHosts, cfg.DenyHosts)),
		pipeline.WithAllowPrivateHosts(cfg.AllowPrivate),
		pipeline.WithExternalOnly(cfg.ExternalOnly),
		pipeline.WithInternalOnly(cfg.InternalOnly),
		pipeline.WithValidateLogger(logger),
	)

	return pipeline.NewEngine(pipeline.NewDefaultSteps(validate),
		pipeline.WithEngineCache(store),
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithRoot(root),
		pipeline.WithEngineLogger(logger),
	), nil
}

func hostHeaders(hosts map[string]config.HostConfig) map[string]checker.HostHeaders {
	out := make(map[string]checker.HostHeaders, len(hosts))
	for suffix, h := range hosts {
		out[suffix] = checker.HostHeaders{Cookie: h.Cookie, Headers: h.Headers}
	}
	return out
}

// writeReports writes the report and, if enabled, the workflow annotations.
// Annotations go to stderr when stdout carries a machine-readable report.
func writeReports(cfg *config.Config, stdout, stderr io.Writer, result *model.Result) error {
	output := stdout
	if !cfg.WritesToStdout() {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}
		f, err := os.Create(cfg.ReportFile)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		output = f
	}

	writer, err := report.New(cfg.Format, output, report.WithProblemsOnly(cfg.ProblemsOnly))
	if err != nil {
		return err
	}
	writers := []report.Writer{writer}

	if cfg.Annotations {
		annotationOut := stdout
		if cfg.WritesToStdout() && cfg.Format != report.FormatText {
			annotationOut = stderr
		}
		writers = append(writers, report.NewAnnotationWriter(annotationOut))
	}

	if _, err := report.NewMultiWriter(writers...).Write(result); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// saveHistory records the run. Failures are logged and never fail the run.
func saveHistory(ctx context.Context, cfg *config.Config, result *model.Result, logger *slog.Logger) {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("failed to open history database", "dir", cfg.DBDir, "error", err)
		return
	}
	defer db.Close()

	id, err := db.SaveRun(ctx, result)
	if err != nil {
		logger.Warn("failed to save run", "error", err)
		return
	}
	logger.Info("run saved", "id", id, "db", db.Path())

	if cfg.HistoryKeep > 0 {
		if _, err := db.PruneRuns(ctx, result.Root, cfg.HistoryKeep); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("failed to prune history", "error", err)
		}
	}
}
