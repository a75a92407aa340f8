package cli

import "github.com/charmbracelet/lipgloss"

type tuiTheme struct {
	title    lipgloss.Style
	subtitle lipgloss.Style
	text     lipgloss.Style
	muted    lipgloss.Style
	ok       lipgloss.Style
	warn     lipgloss.Style
	danger   lipgloss.Style
	info     lipgloss.Style
	selected lipgloss.Style
	help     lipgloss.Style
	panel    lipgloss.Style
}

func newTUITheme() tuiTheme {
	return tuiTheme{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F2A65A")),
		subtitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#C0C8D4")),
		text: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D7DBE0")),
		muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6E7B88")),
		ok: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#63C17A")),
		warn: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E7B65A")),
		danger: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E06B75")),
		info: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#65B5FF")),
		selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#0E1116")).
			Background(lipgloss.Color("#F2A65A")),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8FA0B3")),
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3D4752")).
			Padding(0, 1),
	}
}

// statusStyle maps a project or chunk status to its display style.
func (t tuiTheme) statusStyle(status string) lipgloss.Style {
	switch status {
	case "completed", "stitched":
		return t.ok
	case "failed", "cancelled":
		return t.danger
	case "review", "cancelling":
		return t.warn
	case "processing", "normalizing":
		return t.info
	default:
		return t.muted
	}
}
