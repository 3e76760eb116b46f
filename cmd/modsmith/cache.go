// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modsmith/modsmith/internal/cache"
)

func newCacheCommand(app *App, flags *rootFlags) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the package cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the package cache so the next scan rebuilds every package",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.loadConfig(cmd.Context(), flags)
			path, err := cfg.CachePath()
			if err != nil {
				return err
			}
			cache.Open(path, app.newLogger(cfg, flags.verbose).WithPrefix("cache")).Clear()
			fmt.Fprintln(app.stdout, SuccessStyle.Render("Cleared "+path))
			return nil
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the package cache location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := app.loadConfig(cmd.Context(), flags).CachePath()
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	return cacheCmd
}
