// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	session "github.com/modsmith/modsmith/internal/app"
	"github.com/modsmith/modsmith/internal/discovery"
	"github.com/modsmith/modsmith/internal/toggle"
	"github.com/modsmith/modsmith/pkg/modunit"
)

func newListCommand(app *App, flags *rootFlags) *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active and inactive packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.open(cmd, flags)
			if err != nil {
				return err
			}

			fmt.Fprintln(app.stdout, TitleStyle.Render("Active packages"))
			for _, p := range s.Manager().Active() {
				printPackage(app.stdout, p, flags.verbose)
			}
			if activeOnly {
				return nil
			}

			fmt.Fprintln(app.stdout)
			fmt.Fprintln(app.stdout, TitleStyle.Render("Inactive packages"))
			for _, p := range s.Manager().Inactive() {
				printPackage(app.stdout, p, flags.verbose)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "list only the active packages")
	return cmd
}

func newStatusCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show errors and warnings of the active packages",
		Long: `Show errors and warnings of the active packages.

Exits with status 1 when any active package has an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.open(cmd, flags)
			if err != nil {
				return err
			}
			if printStatus(app.stdout, s, flags.verbose) {
				return &ExitError{Code: ExitProblems}
			}
			return nil
		},
	}
}

func newActivateCommand(app *App, flags *rootFlags) *cobra.Command {
	var noSave bool

	cmd := &cobra.Command{
		Use:   "activate <id>...",
		Short: "Activate packages and save the active list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.open(cmd, flags)
			if err != nil {
				return err
			}
			if err := s.Activate(args...); err != nil {
				return err
			}
			for _, id := range args {
				fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("+"), CmdStyle.Render(id))
			}
			if noSave {
				return nil
			}
			res, err := s.Save(cmd.Context())
			printToggleResult(app.stdout, res)
			return err
		},
	}
	cmd.Flags().BoolVar(&noSave, "no-save", false, "only report, do not write the active list")
	return cmd
}

func newDeactivateCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>...",
		Short: "Deactivate packages, restore their content and save the active list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.open(cmd, flags)
			if err != nil {
				return err
			}
			res, err := s.Deactivate(cmd.Context(), args...)
			printToggleResult(app.stdout, res)
			if err != nil {
				return err
			}
			for _, id := range args {
				fmt.Fprintf(app.stdout, "%s %s\n", WarningStyle.Render("-"), CmdStyle.Render(id))
			}
			res, err = s.Save(cmd.Context())
			printToggleResult(app.stdout, res)
			return err
		},
	}
}

// printPackage prints one list line: load order, id, name and markers.
func printPackage(w io.Writer, p *modunit.Package, verbose bool) {
	order := ""
	if p.LoadOrder > 0 {
		order = strconv.Itoa(p.LoadOrder)
	}

	var marks []string
	if p.Local {
		marks = append(marks, "local")
	}
	if p.HasToggleContent {
		marks = append(marks, "toggle")
	}
	if p.UsesLua {
		marks = append(marks, "lua")
	}
	if p.UsesCSharp {
		marks = append(marks, "cs")
	}

	line := orderStyle.Render(order) + "  " + CmdStyle.Render(p.ID())
	if p.Name != p.ID() {
		line += " " + p.Name
	}
	if len(marks) > 0 {
		line += " " + SubtitleStyle.Render("["+strings.Join(marks, ", ")+"]")
	}
	switch {
	case len(p.Metadata.Errors) > 0:
		line += " " + ErrorStyle.Render(fmt.Sprintf("%d error(s)", len(p.Metadata.Errors)))
	case len(p.Metadata.Warnings) > 0:
		line += " " + WarningStyle.Render(fmt.Sprintf("%d warning(s)", len(p.Metadata.Warnings)))
	}
	fmt.Fprintln(w, line)

	if verbose {
		fmt.Fprintln(w, indentStyle.Render(VerboseStyle.Render(p.Path)))
	}
}

// printStatus prints every active package with diagnostics, the scan
// diagnostics and unmatched player config entries. It reports whether any
// active package has an error.
func printStatus(w io.Writer, s *session.Session, verbose bool) bool {
	hasErrors := false
	scripting := s.Scripting()

	fmt.Fprintln(w, TitleStyle.Render("Package status"))
	clean := true
	for _, p := range s.Manager().Active() {
		errs := p.Metadata.Errors
		warns := p.Metadata.Warnings
		if p.UsesLua && !scripting.Lua {
			warns = append(warns[:len(warns):len(warns)], "uses Lua but the Lua scripting runtime is not installed")
		}
		if p.UsesCSharp && !scripting.CSharp {
			warns = append(warns[:len(warns):len(warns)], "uses C# but C# scripting is not enabled")
		}
		if len(errs) == 0 && len(warns) == 0 {
			continue
		}
		clean = false
		hasErrors = hasErrors || len(errs) > 0

		printPackage(w, p, false)
		for _, e := range errs {
			fmt.Fprintln(w, indentStyle.Render(ErrorStyle.Render("error: ")+e))
		}
		for _, warn := range warns {
			fmt.Fprintln(w, indentStyle.Render(WarningStyle.Render("warning: ")+warn))
		}
	}
	if clean {
		fmt.Fprintln(w, SuccessStyle.Render("All active packages are fine."))
	}

	if unmatched := s.Unmatched(); len(unmatched) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, WarningStyle.Render("Player config entries without a package:"))
		for _, name := range unmatched {
			fmt.Fprintln(w, indentStyle.Render(name))
		}
	}

	diags := s.Diagnostics()
	if len(diags) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, SubtitleStyle.Render(fmt.Sprintf("Scan reported %d problem(s)", len(diags))))
	}
	for _, d := range diags {
		if d.Code == discovery.CodeIdentityMissing && !verbose {
			continue
		}
		label := WarningStyle.Render(string(d.Severity) + ": ")
		if d.Severity == discovery.SeverityError {
			label = ErrorStyle.Render(string(d.Severity) + ": ")
		}
		fmt.Fprintln(w, indentStyle.Render(label+d.Message))
	}
	return hasErrors
}

func printToggleResult(w io.Writer, res *toggle.Result) {
	if res == nil || (len(res.Changed) == 0 && len(res.Renamed) == 0 && res.Failed == 0) {
		return
	}
	style := SubtitleStyle
	if res.Failed > 0 {
		style = WarningStyle
	}
	fmt.Fprintln(w, style.Render("Content: "+res.String()))
}
