// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/modsmith/modsmith/internal/config"
	"github.com/modsmith/modsmith/internal/issue"
)

// newConfigCommand creates the `modsmith config` command tree.
func newConfigCommand(app *App, flags *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage modsmith configuration",
		Long: `Manage modsmith configuration.

Configuration is stored in:
  - Linux: ~/.config/modsmith/config.cue
  - macOS: ~/Library/Application Support/modsmith/config.cue
  - Windows: %APPDATA%\modsmith\config.cue

Every setting can be overridden with a MODSMITH_<KEY> environment variable,
for example MODSMITH_GAME_DIR or MODSMITH_UI_VERBOSE.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := config.LoadWithPath(cmd.Context(), config.LoadOptions{ConfigFilePath: flags.configPath})
			if err != nil {
				if rendered, renderErr := issue.Get(issue.ConfigLoadFailedId).Render("auto"); renderErr == nil {
					fmt.Fprint(app.stderr, rendered)
				}
				return err
			}
			showConfig(app.stdout, cfg, path)
			return nil
		},
	})

	var initDir string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, created, err := config.CreateDefaultConfig(initDir)
			if err != nil {
				return fmt.Errorf("failed to create config: %w", err)
			}
			if !created {
				fmt.Fprintf(app.stdout, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
				return nil
			}
			fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&initDir, "dir", "", "directory to create config.cue in (default is the user config dir)")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
			fmt.Fprintf(app.stdout, "Config file: %s/%s.%s\n", cfgDir, config.ConfigFileName, config.ConfigFileExt)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: flags.configPath})
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(w io.Writer, cfg *config.Config, path string) {
	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	unset := SubtitleStyle.Render("(not set)")

	value := func(s string) string {
		if s == "" {
			return unset
		}
		return valueStyle.Render(s)
	}

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if path == "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), path)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("game_dir"), value(cfg.GameDir))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("workshop_sync_dir"), value(cfg.WorkshopSyncDir))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("steam_mod_dir"), value(cfg.SteamModDir))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("library_dir"), value(cfg.LibraryDir))
	cachePath, err := cfg.CachePath()
	if err != nil {
		cachePath = ""
	}
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("cache_file"), value(cachePath))
	workers := "auto"
	if cfg.Workers > 0 {
		workers = fmt.Sprint(cfg.Workers)
	}
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("workers"), valueStyle.Render(workers))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("log_level"), value(string(cfg.LogLevel)))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("language"), value(cfg.Language))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", value(string(cfg.UI.ColorScheme)))
	fmt.Fprintf(w, "  verbose: %s\n", valueStyle.Render(fmt.Sprint(cfg.UI.Verbose)))
}
