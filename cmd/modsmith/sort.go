// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modsmith/modsmith/internal/resolver"
)

func newSortCommand(app *App, flags *rootFlags) *cobra.Command {
	var (
		write  bool
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Sort the active packages so dependencies load first",
		Long: `Sort the active packages so dependencies load first.

Missing hard dependencies that are installed are activated. Dependency cycles
are broken by dropping soft constraints first; the sort never fails because of
a cycle. Use --strict to exit with status 2 when a cycle or conflict remains.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.open(cmd, flags)
			if err != nil {
				return err
			}

			report := s.Sort()
			printSortReport(app.stdout, report, flags.verbose)

			if write {
				res, err := s.Save(cmd.Context())
				printToggleResult(app.stdout, res)
				if err != nil {
					return err
				}
				fmt.Fprintln(app.stdout, SuccessStyle.Render("Saved to "+s.PlayerConfigPath()))
			}

			if strict && (report.Cyclic() || len(report.Conflicts) > 0) {
				return &ExitError{Code: ExitUnresolved}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "apply package content and write the new order")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with status 2 on cycles or conflicts")
	return cmd
}

func printSortReport(w io.Writer, r *resolver.SortReport, verbose bool) {
	fmt.Fprintln(w, TitleStyle.Render("Load order"))
	for i, id := range r.Order {
		fmt.Fprintln(w, orderStyle.Render(fmt.Sprint(i+1))+"  "+CmdStyle.Render(id))
	}

	if len(r.AutoActivated) > 0 {
		fmt.Fprintln(w, SuccessStyle.Render("Activated dependencies: ")+strings.Join(r.AutoActivated, ", "))
	}
	for _, pair := range r.Conflicts {
		fmt.Fprintln(w, ErrorStyle.Render("Conflict: ")+pair[0]+" conflicts with "+pair[1])
	}
	if r.Cyclic() {
		fmt.Fprintln(w, WarningStyle.Render(fmt.Sprintf(
			"Dependency cycle: dropped %d soft constraint(s), forced %d package(s), broke %d hard constraint(s)",
			r.SoftDropped, len(r.Forced), r.HardBroken)))
		if len(r.Cycle) > 0 {
			fmt.Fprintln(w, indentStyle.Render(strings.Join(r.Cycle, " -> ")))
		}
	}
	if verbose {
		fmt.Fprintln(w, VerboseStyle.Render(fmt.Sprintf("%d hard and %d soft constraint(s)", r.HardEdges, r.SoftEdges)))
	}
}
