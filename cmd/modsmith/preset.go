// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newPresetCommand creates the `modsmith preset` command tree.
func newPresetCommand(app *App, flags *rootFlags) *cobra.Command {
	presetCmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage saved package lists",
		Long: `Manage saved package lists.

Presets are stored in the game's ModLists directory in the same format the
game uses, so they can be shared with the in-game mod list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	presetCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.open(cmd, flags)
			if err != nil {
				return err
			}
			names, err := s.Presets()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("No presets in "+s.PresetDir()))
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(app.stdout, CmdStyle.Render(name))
			}
			return nil
		},
	})

	presetCmd.AddCommand(&cobra.Command{
		Use:   "save <name>",
		Short: "Save the active list as a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.open(cmd, flags)
			if err != nil {
				return err
			}
			if err := s.SavePreset(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, SuccessStyle.Render("Saved preset "+args[0]))
			return nil
		},
	})

	presetCmd.AddCommand(&cobra.Command{
		Use:   "load <name>",
		Short: "Replace the active list with a preset and save it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.open(cmd, flags)
			if err != nil {
				return err
			}
			missing, res, err := s.LoadPreset(cmd.Context(), args[0])
			printToggleResult(app.stdout, res)
			if err != nil {
				return err
			}
			for _, name := range missing {
				fmt.Fprintln(app.stdout, WarningStyle.Render("Not installed: ")+name)
			}
			res, err = s.Save(cmd.Context())
			printToggleResult(app.stdout, res)
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, SuccessStyle.Render(fmt.Sprintf("Loaded preset %s (%d active)", args[0], len(s.Manager().ActiveIDs()))))
			return nil
		},
	})

	return presetCmd
}
