package output

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds all lipgloss styles for human-mode terminal output.
var Styles = struct {
	OK      lipgloss.Style
	Warning lipgloss.Style
	Danger  lipgloss.Style
	Info    lipgloss.Style

	Timestamp lipgloss.Style
	Device    lipgloss.Style
	Session   lipgloss.Style
	Ref       lipgloss.Style
	Message   lipgloss.Style

	Header lipgloss.Style
	Label  lipgloss.Style
	Value  lipgloss.Style

	Title     lipgloss.Style
	StatusBar lipgloss.Style
	Selected  lipgloss.Style
	Help      lipgloss.Style
}{
	OK:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
	Danger:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),

	Timestamp: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	Device:    lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
	Session:   lipgloss.NewStyle().Foreground(lipgloss.Color("142")),
	Ref:       lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true),
	Message:   lipgloss.NewStyle(),

	Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).
		BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color("239")),
	Label: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	Value: lipgloss.NewStyle().Bold(true),

	Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1),
	StatusBar: lipgloss.NewStyle().Background(lipgloss.Color("236")).Foreground(lipgloss.Color("252")).Padding(0, 1),
	Selected:  lipgloss.NewStyle().Background(lipgloss.Color("236")).Foreground(lipgloss.Color("39")),
	Help:      lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
}

// ErrorCodeStyle returns the style used to render an error code badge.
func ErrorCodeStyle(code string) lipgloss.Style {
	switch code {
	case "UNAUTHORIZED", "INVALID_ARGS", "SESSION_NOT_FOUND", "UNSUPPORTED_OPERATION":
		return Styles.Warning
	default:
		return Styles.Danger
	}
}

// StatusText renders a short colored status word for a bool outcome.
func StatusText(ok bool) string {
	if ok {
		return Styles.OK.Render("OK")
	}
	return Styles.Danger.Render("FAILED")
}

// DiffLineStyle returns the style for a snapshot-diff line kind.
func DiffLineStyle(kind string) lipgloss.Style {
	switch kind {
	case "added":
		return Styles.OK
	case "removed":
		return Styles.Danger
	default:
		return Styles.Label
	}
}
