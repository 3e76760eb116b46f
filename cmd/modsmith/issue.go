// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modsmith/modsmith/internal/issue"
)

func newIssueCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "issue [name]",
		Short: "Explain a common problem and how to fix it",
		Long: `Explain a common problem and how to fix it.

Without a name, lists the available topics. Error messages name the topic
that applies to them.`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			var names []string
			for _, i := range issue.Values() {
				names = append(names, i.Name())
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(app.stdout, TitleStyle.Render("Topics"))
				for _, i := range issue.Values() {
					fmt.Fprintln(app.stdout, "  "+CmdStyle.Render(i.Name()))
				}
				return nil
			}

			page, ok := issue.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown topic %q (run 'modsmith issue' to list topics)", args[0])
			}
			cfg := app.loadConfig(cmd.Context(), flags)
			style := string(cfg.UI.ColorScheme)
			if style == "" {
				style = "auto"
			}
			rendered, err := page.Render(style)
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, rendered)
			return nil
		},
	}
}
