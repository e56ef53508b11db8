package main

import "github.com/charmbracelet/lipgloss"

// Color palette shared by all command output.
const (
	// ColorPrimary is purple, used for titles and headers
	ColorPrimary = lipgloss.Color("#7C3AED")

	// ColorMuted is gray, used for labels and secondary text
	ColorMuted = lipgloss.Color("#6B7280")

	// ColorSuccess is green, used for passing checks
	ColorSuccess = lipgloss.Color("#10B981")

	// ColorError is red, used for failing checks
	ColorError = lipgloss.Color("#EF4444")

	// ColorWarning is amber, used for missing requirements
	ColorWarning = lipgloss.Color("#F59E0B")

	// ColorHighlight is blue, used for module names and values
	ColorHighlight = lipgloss.Color("#3B82F6")
)

var (
	// TitleStyle is for section headers.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// LabelStyle is for field names.
	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Width(18)

	// ValueStyle is for field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight)

	// SuccessStyle is for passing checks.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true)

	// ErrorStyle is for failing checks.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	// WarningStyle is for warnings.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)
)

// field renders a label/value line.
func field(label string, value any) string {
	return LabelStyle.Render(label) + ValueStyle.Render(fmtValue(value)) + "\n"
}
