package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/album-dl/internal/download"
)

// Palette
var (
	Coral = lipgloss.Color("#FF6B6B")
	Teal  = lipgloss.Color("#4ECDC4")
	Mint  = lipgloss.Color("#95E1A3")
	Amber = lipgloss.Color("#FFE66D")
	Ice   = lipgloss.Color("#A8DADC")
	Gold  = lipgloss.Color("#F8B500")
	Gray  = lipgloss.Color("#6C757D")
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(Coral).MarginBottom(1)
	promptStyle  = lipgloss.NewStyle().Foreground(Teal)
	okStyle      = lipgloss.NewStyle().Foreground(Mint)
	failStyle    = lipgloss.NewStyle().Foreground(Coral)
	warnStyle    = lipgloss.NewStyle().Foreground(Amber)
	noteStyle    = lipgloss.NewStyle().Foreground(Ice)
	mutedStyle   = lipgloss.NewStyle().Foreground(Gray)
	jobStyle     = lipgloss.NewStyle().Foreground(Gold)
	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Teal).
			Padding(1, 2)
)

// eventStyle returns the style and bullet for a progress level.
func eventStyle(level download.ProgressLevel) (lipgloss.Style, string) {
	switch level {
	case download.LevelError:
		return failStyle, "✗"
	case download.LevelWarning:
		return warnStyle, "!"
	case download.LevelSuccess:
		return okStyle, "✓"
	case download.LevelInfo:
		return noteStyle, "›"
	default:
		return mutedStyle, "•"
	}
}
