// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Color palette shared by all CLI output, tuned for dark terminal backgrounds.
const (
	// ColorPrimary is purple, for titles and headers.
	ColorPrimary = lipgloss.Color("#7C3AED")

	// ColorMuted is gray, for secondary text.
	ColorMuted = lipgloss.Color("#6B7280")

	// ColorSuccess is green, for active packages and success states.
	ColorSuccess = lipgloss.Color("#10B981")

	// ColorError is red, for package errors and failures.
	ColorError = lipgloss.Color("#EF4444")

	// ColorWarning is amber, for package warnings.
	ColorWarning = lipgloss.Color("#F59E0B")

	// ColorHighlight is blue, for ids, paths and commands.
	ColorHighlight = lipgloss.Color("#3B82F6")

	// ColorVerbose is light gray, for verbose details.
	ColorVerbose = lipgloss.Color("#9CA3AF")
)

var (
	// TitleStyle is for primary headers and section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtitleStyle is for secondary headers and descriptions.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// SuccessStyle is for success messages and active markers.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// ErrorStyle is for error messages.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	// WarningStyle is for warning messages.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// CmdStyle is for ids, paths and command names.
	CmdStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight)

	// VerboseStyle is for supplementary information.
	VerboseStyle = lipgloss.NewStyle().
			Foreground(ColorVerbose)

	// orderStyle right-aligns load order numbers.
	orderStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Width(4).
			Align(lipgloss.Right)

	// indentStyle indents diagnostics below their package.
	indentStyle = lipgloss.NewStyle().
			PaddingLeft(6)
)
