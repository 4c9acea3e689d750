package cli

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

// row renders cells padded to widths.
func row(widths []int, cells ...string) string {
	out := ""
	for i, c := range cells {
		if i < len(widths) && i < len(cells)-1 {
			out += lipgloss.NewStyle().Width(widths[i]).Render(c) + " "
			continue
		}
		out += c
	}
	return out
}
