// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	session "github.com/modsmith/modsmith/internal/app"
	"github.com/modsmith/modsmith/internal/config"
	"github.com/modsmith/modsmith/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type (
	// App carries the shared dependencies of every command handler.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
	}

	// rootFlags holds the persistent flags of the root command.
	rootFlags struct {
		verbose    bool
		configPath string
		gameDir    string
	}
)

// NewApp creates an App writing to stdout and stderr. Nil writers default to
// the process streams.
func NewApp(stdout, stderr io.Writer) *App {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &App{Config: config.NewProvider(), stdout: stdout, stderr: stderr}
}

// NewRootCommand builds the full command tree.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "modsmith",
		Short: "A load order manager for game mod packages",
		Long: TitleStyle.Render("modsmith") + SubtitleStyle.Render(" - A load order manager for game mod packages") + `

modsmith discovers the content packages in your game's LocalMods folder and
workshop directories, orders the active ones so that dependencies load first,
and switches optional package content on or off to match what is active.

` + SubtitleStyle.Render("Examples:") + `
  modsmith list                 Show active and inactive packages
  modsmith activate 2701251094  Activate a workshop package
  modsmith sort --write         Sort the active packages and save
  modsmith status               Show package errors and warnings
  modsmith config init          Create a configuration file`,
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is <user config dir>/modsmith/config.cue)")
	root.PersistentFlags().StringVar(&flags.gameDir, "game-dir", "", "game installation directory (overrides game_dir)")

	root.AddCommand(
		newListCommand(app, flags),
		newStatusCommand(app, flags),
		newSortCommand(app, flags),
		newActivateCommand(app, flags),
		newDeactivateCommand(app, flags),
		newApplyCommand(app, flags),
		newRollbackCommand(app, flags),
		newPresetCommand(app, flags),
		newCacheCommand(app, flags),
		newWatchCommand(app, flags),
		newConfigCommand(app, flags),
		newIssueCommand(app, flags),
	)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process on failure. It is called by
// main.main().
func Execute() {
	app := NewApp(nil, nil)
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// handleError prints actionable errors with their suggestions and defers to
// fang for everything else. Exit errors without a cause print nothing.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		fmt.Fprintln(w, ErrorStyle.Render("Error: ")+ae.Format(false))
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// loadConfig loads the configuration and applies flag overrides. A broken
// configuration file is reported and replaced by the defaults.
func (a *App) loadConfig(ctx context.Context, flags *rootFlags) *config.Config {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, flags.verbose))
		cfg = config.DefaultConfig()
	}
	if flags.gameDir != "" {
		cfg.GameDir = flags.gameDir
	}
	if !flags.verbose {
		flags.verbose = cfg.UI.Verbose
	}
	return cfg
}

// newLogger returns the stderr logger for cfg. Verbose mode forces debug.
func (a *App) newLogger(cfg *config.Config, verbose bool) *log.Logger {
	level := cfg.LogLevel.Level()
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{Level: level})
}

// open loads the configuration and opens a session on it.
func (a *App) open(cmd *cobra.Command, flags *rootFlags) (*session.Session, error) {
	cfg := a.loadConfig(cmd.Context(), flags)
	return session.Open(cmd.Context(), cfg, a.newLogger(cfg, flags.verbose))
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
