// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/modsmith/modsmith/internal/issue"
	"github.com/modsmith/modsmith/internal/watch"
)

func newWatchCommand(app *App, flags *rootFlags) *cobra.Command {
	var (
		apply    bool
		debounce time.Duration
		ignore   []string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rescan packages whenever their files change",
		Long: `Rescan packages whenever their files change.

Each change rescans the package roots and prints the package status. With
--apply the active packages are also sorted and saved after every change,
and their optional content is rolled back when watching stops.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.open(cmd, flags)
			if err != nil {
				return err
			}

			refresh := func(ctx context.Context) error {
				if apply {
					s.Sort()
					res, err := s.Save(ctx)
					printToggleResult(app.stdout, res)
					if err != nil {
						return err
					}
				}
				printStatus(app.stdout, s, flags.verbose)
				return nil
			}
			if err := refresh(cmd.Context()); err != nil {
				fmt.Fprintln(app.stderr, WarningStyle.Render("! ")+formatErrorForDisplay(err, flags.verbose))
			}

			w, err := watch.New(watch.Config{
				Roots:    s.Config().Roots(),
				Ignore:   ignore,
				Debounce: debounce,
				Logger:   app.newLogger(s.Config(), flags.verbose).WithPrefix("watch"),
				OnChange: func(ctx context.Context, pkgs []string) error {
					for _, dir := range pkgs {
						fmt.Fprintf(app.stdout, "%s %s\n", VerboseStyle.Render("changed"), CmdStyle.Render(filepath.Base(dir)))
					}
					if err := s.Rescan(ctx); err != nil {
						return err
					}
					return refresh(ctx)
				},
			})
			if err != nil {
				return fmt.Errorf("failed to start watcher: %w", err)
			}

			fmt.Fprintf(app.stdout, "\n%s Watching %d root(s) for changes (Ctrl+C to stop)...\n\n",
				VerboseStyle.Render("→"), len(w.Roots()))
			runErr := w.Run(cmd.Context())
			var exhausted *watch.ExhaustedError
			if errors.As(runErr, &exhausted) {
				runErr = issue.NewErrorContext().
					WithOperation("watch package roots").
					WithSuggestion(exhausted.Hint).
					WithIssue(issue.WatchLimitId).
					Wrap(runErr).
					BuildError()
			}

			if apply {
				res, err := s.Shutdown()
				printToggleResult(app.stdout, res)
				if runErr == nil {
					runErr = err
				}
			}
			return runErr
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "sort and save after every change, roll back on exit")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet period before rescanning (default 750ms)")
	cmd.Flags().StringSliceVar(&ignore, "ignore", nil, "additional glob patterns to ignore, relative to each root")
	return cmd
}
