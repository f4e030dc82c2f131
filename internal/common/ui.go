package common

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Out receives all user-facing output.
var Out io.Writer = os.Stdout

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorCyan   = lipgloss.Color("#06b6d4")
	colorDim    = lipgloss.Color("#6b7280")

	boldStyle    = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(colorGreen)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed)
	warningStyle = lipgloss.NewStyle().Foreground(colorYellow)
	infoStyle    = lipgloss.NewStyle().Foreground(colorCyan)
	dimStyle     = lipgloss.NewStyle().Foreground(colorDim)

	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorRed).
			Padding(0, 2)
)

// Header prints a section header
func Header(title string) {
	rule := strings.Repeat("=", 40)
	fmt.Fprintln(Out, rule)
	fmt.Fprintln(Out, boldStyle.Render(title))
	fmt.Fprintln(Out, rule)
	fmt.Fprintln(Out)
}

// Banner prints a bordered warning box.
func Banner(title string, lines ...string) {
	body := boldStyle.Render(title)
	if len(lines) > 0 {
		body += "\n\n" + strings.Join(lines, "\n")
	}
	fmt.Fprintln(Out, bannerStyle.Render(body))
	fmt.Fprintln(Out)
}

// Success prints a success message
func Success(msg string) {
	fmt.Fprintln(Out, successStyle.Render("✓ "+msg))
}

// Error prints an error message
func Error(msg string) {
	fmt.Fprintln(Out, errorStyle.Render("✗ "+msg))
}

// Warning prints a warning message
func Warning(msg string) {
	fmt.Fprintln(Out, warningStyle.Render("⚠ "+msg))
}

// Info prints an info message
func Info(msg string) {
	fmt.Fprintln(Out, infoStyle.Render("→ "+msg))
}

// Step prints a step header
func Step(num, total int, title string) {
	fmt.Fprintln(Out)
	fmt.Fprintln(Out, boldStyle.Render(fmt.Sprintf("Step %d/%d: %s", num, total, title)))
}

// Dim renders s in the muted color used for secondary output.
func Dim(s string) string {
	return dimStyle.Render(s)
}

// Highlight renders s in the accent color.
func Highlight(s string) string {
	return infoStyle.Render(s)
}
