package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colors of terminal messages.
type Theme struct {
	Primary lipgloss.Color // success and headings
	Warn    lipgloss.Color
	Error   lipgloss.Color
	Dim     lipgloss.Color // info and help text
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Warn:    lipgloss.Color("#ffb86c"),
	Error:   lipgloss.Color("#ff5555"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Success: lipgloss.NewStyle().Foreground(t.Primary),
		Warning: lipgloss.NewStyle().Foreground(t.Warn),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		Info:    lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// Printer writes styled status messages. Status goes to Out, errors to
// Err.
type Printer struct {
	Out    io.Writer
	Err    io.Writer
	Styles Styles
}

// DefaultPrinter writes to stdout and stderr with DefaultTheme.
var DefaultPrinter = &Printer{Out: os.Stdout, Err: os.Stderr, Styles: NewStyles(DefaultTheme)}

// Title prints a bold heading.
func (p *Printer) Title(format string, args ...any) {
	fmt.Fprintln(p.Out, p.Styles.Title.Render(fmt.Sprintf(format, args...)))
}

// Success prints a success message with checkmark.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.Out, p.Styles.Success.Render("✓ "+fmt.Sprintf(format, args...)))
}

// Info prints an info message.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintln(p.Out, p.Styles.Info.Render("ℹ "+fmt.Sprintf(format, args...)))
}

// Warning prints a warning message.
func (p *Printer) Warning(format string, args ...any) {
	fmt.Fprintln(p.Out, p.Styles.Warning.Render("⚠ "+fmt.Sprintf(format, args...)))
}

// Error prints an error message to Err.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.Err, p.Styles.Error.Render("Error: "+fmt.Sprintf(format, args...)))
}

// PrintError prints an error to stderr with DefaultPrinter.
func PrintError(format string, args ...any) { DefaultPrinter.Error(format, args...) }
