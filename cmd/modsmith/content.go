// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newApplyCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Switch optional package content to match the active list and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.open(cmd, flags)
			if err != nil {
				return err
			}
			res, err := s.Save(cmd.Context())
			printToggleResult(app.stdout, res)
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, SuccessStyle.Render("Applied "+res.String()))
			return nil
		},
	}
}

func newRollbackCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Return optional content of every package to its distributed state",
		Long: `Return optional content of every package to its distributed state.

Run this before uploading a package or when leaving modsmith-managed play.
The active list is not changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.open(cmd, flags)
			if err != nil {
				return err
			}
			res, err := s.Rollback(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, SuccessStyle.Render("Rolled back "+res.String()))
			return nil
		},
	}
}
