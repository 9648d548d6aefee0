// Package main contains the cli implementation of the tool. It uses cobra
// package for cli tool implementation.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sqlaudit/internal/analyzer"
	"sqlaudit/internal/config"
	"sqlaudit/internal/diagnostic"
	"sqlaudit/internal/httpserver"
	"sqlaudit/internal/obslog"
	"sqlaudit/internal/output"
)

const version = "0.1.0"

type lintFlags struct {
	configPath    string
	dialect       string
	disabledRules []string
	maxErrors     int
	outputFormat  string
	failOn        string
	watch         bool
	verbose       bool
}

type serveFlags struct {
	configPath string
	addr       string
	verbose    bool
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "sqlaudit",
		Short: "Static analyzer for SQL schemas and queries",
	}

	rootCmd.AddCommand(lintCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func lintCmd() *cobra.Command {
	flags := &lintFlags{}
	cmd := &cobra.Command{
		Use:   "lint <files...>",
		Short: "Parse and resolve SQL files, reporting diagnostics",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(cmd, args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", ".sqlaudit.toml", "Path to config file")
	cmd.Flags().StringVar(&flags.dialect, "dialect", "", "Database dialect (e.g., mysql)")
	cmd.Flags().StringSliceVar(&flags.disabledRules, "disable", nil, "Diagnostic codes to suppress (e.g., E0002)")
	cmd.Flags().IntVar(&flags.maxErrors, "max-errors", 0, "Stop analyzing a file's remaining statements after this many diagnostics (0 = unbounded)")
	cmd.Flags().StringVarP(&flags.outputFormat, "format", "f", "", "Output format: human, json, or sarif")
	cmd.Flags().StringVar(&flags.failOn, "fail-on", "", "Minimum severity that causes a non-zero exit: error or warning")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "Re-run whenever a watched file changes")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug-level logging")

	return cmd
}

func loadLintConfig(cmd *cobra.Command, flags *lintFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := config.Overrides{
		Dialect:       flags.dialect,
		DisabledRules: flags.disabledRules,
		OutputFormat:  flags.outputFormat,
		FailOn:        flags.failOn,
	}
	if cmd.Flags().Changed("max-errors") {
		overrides.MaxErrors = &flags.maxErrors
	}

	cfg = config.Merge(cfg, overrides)
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runLint(cmd *cobra.Command, args []string, flags *lintFlags) error {
	cfg, err := loadLintConfig(cmd, flags)
	if err != nil {
		return err
	}

	targets := args
	if len(targets) == 0 {
		targets = cfg.Files
	}
	if len(targets) == 0 {
		return fmt.Errorf("no files specified: pass file arguments or set `files` in the config")
	}

	logger, err := obslog.Init(flags.verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	formatter, err := output.NewFormatter(cfg.OutputFormat)
	if err != nil {
		return err
	}

	run := func() (bool, error) {
		return lintOnce(cfg, formatter, logger, targets)
	}

	if !flags.watch {
		failed, err := run()
		if err != nil {
			return err
		}
		if failed {
			os.Exit(1)
		}
		return nil
	}

	return watchAndRun(targets, run)
}

func lintOnce(cfg config.Config, formatter output.Formatter, logger *zap.Logger, targets []string) (bool, error) {
	paths, err := expandTargets(targets)
	if err != nil {
		return false, err
	}

	var allDiags []diagnostic.Diagnostic
	runID := ""
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return false, fmt.Errorf("failed to read %s: %w", path, err)
		}

		a := analyzer.New(analyzer.Options{
			DisabledRules: config.DisabledSet(cfg),
			MaxErrors:     cfg.MaxErrors,
			Logger:        logger,
		})
		res := a.AnalyzeSource(string(content))
		runID = res.RunID
		allDiags = append(allDiags, res.Diagnostics...)
	}

	rendered, err := formatter.Format(runID, allDiags)
	if err != nil {
		return false, fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Print(rendered)

	return shouldFail(allDiags, cfg.FailOn), nil
}

func expandTargets(targets []string) ([]string, error) {
	var paths []string
	for _, pattern := range targets {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid file pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			matches = []string{pattern}
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}

func shouldFail(diags []diagnostic.Diagnostic, failOn string) bool {
	for _, d := range diags {
		if failOn == string(diagnostic.SeverityWarning) {
			return true
		}
		if d.Severity == diagnostic.SeverityError {
			return true
		}
	}
	return false
}

// watchAndRun re-invokes run whenever one of targets' underlying files
// changes, the way xaas-cloud-genai-toolbox hot-reloads its tool config.
func watchAndRun(targets []string, run func() (bool, error)) error {
	paths, err := expandTargets(targets)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, p := range paths {
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
	}

	if _, err := run(); err != nil {
		return err
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fmt.Printf("\n--- %s changed, re-running ---\n\n", event.Name)
			if _, err := run(); err != nil {
				fmt.Fprintf(os.Stderr, "lint failed: %v\n", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watcher error: %v\n", err)
		}
	}
}

func serveCmd() *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP analysis surface",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", ".sqlaudit.toml", "Path to config file")
	cmd.Flags().StringVar(&flags.addr, "addr", ":8080", "Address to listen on")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug-level logging")

	return cmd
}

func runServe(flags *serveFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := obslog.Init(flags.verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	srv := httpserver.New(cfg, logger)
	fmt.Printf("sqlaudit serving on %s\n", flags.addr)
	return http.ListenAndServe(flags.addr, srv)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sqlaudit version",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Println(strings.TrimSpace(version))
			return nil
		},
	}
}
