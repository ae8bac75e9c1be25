package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/smokecheck/packages/core/config"
	"github.com/abdul-hamid-achik/smokecheck/packages/core/env"
	"github.com/abdul-hamid-achik/smokecheck/packages/core/runner"
	"github.com/abdul-hamid-achik/smokecheck/packages/history"
	"github.com/abdul-hamid-achik/smokecheck/packages/output"
	"github.com/abdul-hamid-achik/smokecheck/packages/report"
	"github.com/abdul-hamid-achik/smokecheck/packages/schema"
	"github.com/abdul-hamid-achik/smokecheck/packages/suite"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [case files or directories...]",
	Short: "Run the smoke suite",
	Long: `Run the built-in catfact.ninja and reqres.in smoke cases, plus any
cases from YAML files or Excel workbooks.

Examples:
  smokecheck run
  smokecheck run --tags auth
  smokecheck run ./cases/ --no-builtin
  smokecheck run --name "user_*" -o junit --output-file smoke.xml
  smokecheck run --attachments-dir ./allure-results --history smoke.db`,
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	configFlag         string
	envFileFlag        string
	nameFlag           string
	tagsFlag           string
	verboseFlag        int // 0=warn, 1=-v info, 2=-vv debug
	bailFlag           bool
	timeoutFlag        string
	rateFlag           float64
	noColorFlag        bool
	outputFlag         string
	outputFileFlag     string
	attachmentsDirFlag string
	historyFlag        string
	schemaDirFlag      string
	noBuiltinFlag      bool
	watchFlag          bool
	proxyFlag          string
	insecureFlag       bool
)

func init() {
	// Core flags
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("SMOKECHECK_CONFIG", ""), "Path to config file (env: SMOKECHECK_CONFIG)")
	runCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("SMOKECHECK_ENV_FILE", ""), "Path to .env file loaded before the config (env: SMOKECHECK_ENV_FILE)")
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", getEnvString("SMOKECHECK_NAME", ""), "Run only cases matching name pattern (env: SMOKECHECK_NAME)")
	runCmd.Flags().StringVarP(&tagsFlag, "tags", "t", getEnvString("SMOKECHECK_TAGS", ""), "Run only cases with specified tags (comma-separated) (env: SMOKECHECK_TAGS)")
	runCmd.Flags().BoolVar(&noBuiltinFlag, "no-builtin", getEnvBool("SMOKECHECK_NO_BUILTIN", false), "Skip the built-in catalog (env: SMOKECHECK_NO_BUILTIN)")
	runCmd.Flags().StringVar(&schemaDirFlag, "schema-dir", getEnvString("SMOKECHECK_SCHEMA_DIR", ""), "Read JSON schemas from this directory instead of the embedded set (env: SMOKECHECK_SCHEMA_DIR)")

	// Output flags
	runCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v, -vv for request tracing)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("SMOKECHECK_NO_COLOR", false), "Disable colored output (env: SMOKECHECK_NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("SMOKECHECK_OUTPUT", ""), "Output format: console, json, junit (env: SMOKECHECK_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("SMOKECHECK_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: SMOKECHECK_OUTPUT_FILE)")
	runCmd.Flags().StringVar(&attachmentsDirFlag, "attachments-dir", getEnvString("SMOKECHECK_ATTACHMENTS_DIR", ""), "Write curl and response attachments as Allure results (env: SMOKECHECK_ATTACHMENTS_DIR)")
	runCmd.Flags().StringVar(&historyFlag, "history", getEnvString("SMOKECHECK_HISTORY", ""), "Record the run in this SQLite file (env: SMOKECHECK_HISTORY)")

	// Execution flags
	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("SMOKECHECK_BAIL", false), "Stop on first failure (env: SMOKECHECK_BAIL)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("SMOKECHECK_TIMEOUT", ""), "Request timeout, e.g. 30s (env: SMOKECHECK_TIMEOUT)")
	runCmd.Flags().Float64Var(&rateFlag, "rate", getEnvFloat("SMOKECHECK_RATE", 0), "Maximum requests per second, 0 for unlimited (env: SMOKECHECK_RATE)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch case files and config for changes and re-run")

	// Network flags
	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("SMOKECHECK_PROXY", ""), "Proxy URL for HTTP requests (env: SMOKECHECK_PROXY)")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("SMOKECHECK_INSECURE", false), "Disable SSL certificate validation (env: SMOKECHECK_INSECURE)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// Formatter interface for all output formatters
type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable interface for formatters that need to flush output
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

func newFormatter(format string, w io.Writer, verbose, noColor bool) (Formatter, error) {
	switch strings.ToLower(format) {
	case "json":
		return output.NewJSONFormatter(output.JSONWithWriter(w)), nil
	case "junit":
		return output.NewJUnitFormatter(output.JUnitWithWriter(w)), nil
	case "", "console":
		return output.NewConsoleFormatter(
			output.WithWriter(w),
			output.WithVerbose(verbose),
			output.WithNoColor(noColor),
		), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (use console, json or junit)", format)
	}
}

// loadRunConfig loads the optional .env file and config file, then layers
// the command-line flags on top.
func loadRunConfig() (*config.Config, error) {
	envFile := envFileFlag
	if envFile == "" {
		if _, err := os.Stat(".env"); err == nil {
			envFile = ".env"
		}
	}
	if envFile != "" {
		if _, err := env.LoadAndExportDotEnv(envFile); err != nil {
			return nil, err
		}
	}

	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, err
	}

	if timeoutFlag != "" {
		timeout, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, exitf(ExitUsageError, "invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err)
		}
		cfg.Timeout = int(timeout.Milliseconds())
	}
	if rateFlag != 0 {
		cfg.Rate = rateFlag
	}
	if proxyFlag != "" {
		cfg.Proxy = proxyFlag
	}
	if insecureFlag {
		cfg.ValidateSSL = config.BoolPtr(false)
	}
	if bailFlag {
		cfg.Bail = config.BoolPtr(true)
	}
	if noColorFlag {
		cfg.NoColor = config.BoolPtr(true)
	}
	if verboseFlag > 0 {
		cfg.Verbose = config.BoolPtr(true)
	}
	if noBuiltinFlag {
		cfg.Builtin = config.BoolPtr(false)
	}
	if schemaDirFlag != "" {
		cfg.SchemaDir = schemaDirFlag
	}
	if attachmentsDirFlag != "" {
		cfg.AttachmentsDir = attachmentsDirFlag
	}
	if historyFlag != "" {
		cfg.History = historyFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// caseFiles returns the case files named on the command line, falling
// back to the config's cases list.
func caseFiles(cfg *config.Config, args []string) ([]string, error) {
	paths := args
	if len(paths) == 0 {
		paths = cfg.Cases
	}
	if len(paths) == 0 {
		return nil, nil
	}
	return suite.CollectFiles(paths)
}

// loadCases assembles the built-in catalog (unless disabled) followed by
// the cases from files. Every case must have a unique name and a configured
// target.
func loadCases(cfg *config.Config, files []string) ([]*suite.Case, error) {
	var cases []*suite.Case
	if cfg.GetBuiltin() {
		cases = append(cases, suite.Builtin()...)
	}

	loaded, err := suite.LoadFiles(files)
	if err != nil {
		return nil, err
	}
	cases = append(cases, loaded...)

	seen := make(map[string]string, len(cases))
	for _, c := range cases {
		if prev, ok := seen[c.Name]; ok {
			return nil, fmt.Errorf("duplicate case name %q in %s and %s", c.Name, describeSource(prev), describeSource(c.Source))
		}
		seen[c.Name] = c.Source
	}

	targets := cfg.TargetURLs()
	for _, c := range cases {
		if err := c.CheckTarget(targets); err != nil {
			return nil, fmt.Errorf("%s: %w", describeSource(c.Source), err)
		}
	}
	return cases, nil
}

func describeSource(source string) string {
	if source == "" {
		return "built-in catalog"
	}
	return source
}

func schemaLoader(cfg *config.Config) *schema.Loader {
	if cfg.SchemaDir != "" {
		return schema.DirLoader(cfg.SchemaDir)
	}
	return schema.DefaultLoader()
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func newRunnerConfig(cfg *config.Config, sink report.Sink, log logrus.FieldLogger) *runner.Config {
	targetHeaders := make(map[string]map[string]string, len(cfg.Targets))
	for name := range cfg.Targets {
		targetHeaders[name] = cfg.TargetHeaders(name)
	}

	return &runner.Config{
		Targets:          cfg.TargetURLs(),
		TargetHeaders:    targetHeaders,
		DefaultHeaders:   cfg.Headers,
		Timeout:          cfg.TimeoutDuration(),
		NoFollowRedirect: !cfg.GetFollowRedirects(),
		MaxRedirects:     cfg.MaxRedirects,
		Insecure:         !cfg.GetValidateSSL(),
		Proxy:            cfg.Proxy,
		Bail:             cfg.GetBail(),
		NameFilter:       nameFlag,
		TagsFilter:       splitTags(tagsFlag),
		Rate:             cfg.Rate,
		Schemas:          schemaLoader(cfg),
		Sink:             sink,
		Logger:           log,
	}
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		return &ExitError{Code: ExitConfigError, Err: err}
	}

	verbosity := verboseFlag
	if verbosity == 0 && cfg.GetVerbose() {
		verbosity = 1
	}
	log := newLogger(cmd.ErrOrStderr(), verbosity, cfg.GetNoColor())

	// Setup output writer
	var outWriter io.Writer = cmd.OutOrStdout()
	if outputFileFlag != "" {
		f, err := os.Create(outputFileFlag)
		if err != nil {
			return exitf(ExitUsageError, "cannot create output file: %w", err)
		}
		defer f.Close()
		outWriter = f
	}

	format := outputFlag
	if format == "" && len(cfg.Reporters) > 0 {
		format = cfg.Reporters[0]
	}
	makeFormatter := func() (Formatter, error) {
		return newFormatter(format, outWriter, verbosity > 0, cfg.GetNoColor())
	}
	formatter, err := makeFormatter()
	if err != nil {
		return &ExitError{Code: ExitUsageError, Err: err}
	}

	formatter.FormatHeader(version)

	files, err := caseFiles(cfg, args)
	if err != nil {
		formatter.FormatError(err)
		return &ExitError{Code: ExitUsageError}
	}
	cases, err := loadCases(cfg, files)
	if err != nil {
		formatter.FormatError(err)
		return &ExitError{Code: ExitParseError}
	}
	if len(cases) == 0 {
		formatter.FormatError(fmt.Errorf("no cases to run"))
		return &ExitError{Code: ExitUsageError}
	}

	var sink report.Sink = report.NopSink{}
	if cfg.AttachmentsDir != "" {
		dirSink, err := report.NewDirSink(cfg.AttachmentsDir)
		if err != nil {
			return &ExitError{Code: ExitConfigError, Err: err}
		}
		sink = dirSink
	}

	var store *history.Store
	if cfg.History != "" {
		store, err = history.Open(cfg.History)
		if err != nil {
			return &ExitError{Code: ExitConfigError, Err: err}
		}
		defer store.Close()
	}

	// Set up signal handling so Ctrl+C cancels the in-flight request
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nReceived interrupt, stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()

	runTests := func(cfg *config.Config, formatter Formatter, cases []*suite.Case) *runner.RunResult {
		r := runner.NewRunner(newRunnerConfig(cfg, sink, log))

		started := time.Now()
		result := r.Run(ctx, cases)
		formatter.FormatResult(result)

		// Flush output for formatters that accumulate results
		if flushable, ok := formatter.(Flushable); ok {
			if err := flushable.Flush(result.Duration); err != nil {
				log.WithError(err).Error("writing output failed")
			}
		}

		if store != nil {
			run, err := store.Record(context.WithoutCancel(ctx), started, result)
			if err != nil {
				log.WithError(err).Warn("recording run history failed")
			} else {
				log.WithField("run", run.ID).Info("run recorded")
			}
		}
		return result
	}

	result := runTests(cfg, formatter, cases)

	if !watchFlag {
		switch code := exitCodeFor(result); code {
		case ExitSuccess:
			return nil
		case ExitUsageError:
			return &ExitError{Code: code, Err: errNoCasesMatched}
		default:
			return &ExitError{Code: code}
		}
	}

	return watch(ctx, cmd, args, files, log, func() {
		cfg, err := loadRunConfig()
		if err != nil {
			formatter.FormatError(err)
			return
		}
		files, err := caseFiles(cfg, args)
		if err != nil {
			formatter.FormatError(err)
			return
		}
		cases, err := loadCases(cfg, files)
		if err != nil {
			formatter.FormatError(err)
			return
		}

		// Re-create formatter for new output (for JSON/JUnit, need fresh state)
		fresh, err := makeFormatter()
		if err != nil {
			formatter.FormatError(err)
			return
		}
		runTests(cfg, fresh, cases)
	})
}

// watch re-runs rerun whenever a case file, the config file or the .env
// file changes, until ctx is cancelled.
func watch(ctx context.Context, cmd *cobra.Command, args, files []string, log logrus.FieldLogger, rerun func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watchedDirs := make(map[string]bool)
	addDir := func(dir string) {
		if watchedDirs[dir] {
			return
		}
		if err := watcher.Add(dir); err != nil {
			log.WithError(err).Warnf("failed to watch %s", dir)
		}
		watchedDirs[dir] = true
	}

	for _, file := range files {
		addDir(filepath.Dir(file))
	}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err == nil && info.IsDir() {
			_ = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					addDir(path)
				}
				return nil
			})
		}
	}

	watchedFiles := map[string]bool{".env": true}
	if p := config.Path(configFlag); p != "" {
		watchedFiles[filepath.Clean(p)] = true
		addDir(filepath.Dir(p))
	}
	if envFileFlag != "" {
		watchedFiles[filepath.Clean(envFileFlag)] = true
		addDir(filepath.Dir(envFileFlag))
	}
	addDir(".")

	relevant := func(name string) bool {
		name = filepath.Clean(name)
		return suite.IsCaseFile(name) || watchedFiles[name] || watchedFiles[filepath.Base(name)]
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	changes := make(chan string, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if !relevant(event.Name) {
					continue
				}
				select {
				case changes <- event.Name:
				case <-ctx.Done():
					return
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if errors.Is(err, fsnotify.ErrEventOverflow) {
					log.Warn("watcher event queue overflowed, some changes may be missed")
					continue
				}
				log.WithError(err).Warn("watcher error")
			}
		}
	}()

	rerunLoop(ctx, changes, WatchDebounceDelay, func(name string) {
		fmt.Fprintf(cmd.OutOrStdout(), "\n\nFile changed: %s\nRe-running tests...\n\n", name)
		rerun()
		fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")
	})
	return nil
}

// rerunLoop calls rerun once per burst of changes, delay after the last one.
// Reruns happen on the calling goroutine so they never overlap, and the loop
// returns only after the rerun in progress, if any, has finished.
func rerunLoop(ctx context.Context, changes <-chan string, delay time.Duration, rerun func(name string)) {
	timer := time.NewTimer(delay)
	timer.Stop()
	defer timer.Stop()

	var pending string
	for {
		select {
		case <-ctx.Done():
			return
		case name, ok := <-changes:
			if !ok {
				return
			}
			pending = name
			timer.Reset(delay)
		case <-timer.C:
			rerun(pending)
		}
	}
}
