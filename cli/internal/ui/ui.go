// Package ui formats command output. Status lines go to stderr so stdout
// carries only statements and result tables.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

var (
	AccentColor  = lipgloss.Color("#5FAFFF")
	SuccessColor = lipgloss.Color("#5FD787")
	WarningColor = lipgloss.Color("#FFAF00")
	ErrorColor   = lipgloss.Color("#FF5F5F")
	MutedColor   = lipgloss.Color("#8A8A8A")

	titleStyle   = lipgloss.NewStyle().Foreground(AccentColor).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(MutedColor)
	successStyle = lipgloss.NewStyle().Foreground(SuccessColor).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(AccentColor)
)

// Stderr receives status lines
var Stderr io.Writer = os.Stderr

// Header renders a rounded box with a title and a muted subtitle
func Header(title, subtitle string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(AccentColor).
		Padding(0, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), mutedStyle.Render(subtitle)))
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	fmt.Fprintln(Stderr, successStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	fmt.Fprintln(Stderr, errorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	fmt.Fprintln(Stderr, warningStyle.Render("⚠ "+fmt.Sprintf(format, args...)))
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	fmt.Fprintln(Stderr, infoStyle.Render("ℹ "+fmt.Sprintf(format, args...)))
}

// Table renders rows under a header line with pterm
func Table(headers []string, rows [][]string) (string, error) {
	data := pterm.TableData{headers}
	data = append(data, rows...)
	return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
}

// PrintTable writes a table to w
func PrintTable(w io.Writer, headers []string, rows [][]string) error {
	out, err := Table(headers, rows)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// RenderMarkdown renders markdown for the terminal
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(content)
}

// PrintParams lists statement parameters, one per line, in marker order
func PrintParams(w io.Writer, names []string, values []any) {
	name := color.New(color.FgCyan)
	value := color.New(color.FgYellow)
	for i, n := range names {
		fmt.Fprintf(w, "  %s = %s\n", name.Sprint(n), value.Sprint(Format(values[i])))
	}
}

// Format renders a value for table cells and parameter listings
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return fmt.Sprintf("%q", x)
	case []byte:
		return fmt.Sprintf("x'%x'", x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
