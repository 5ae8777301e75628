package tui

import "github.com/charmbracelet/lipgloss"

// Color palette. colorPrimary follows the selected theme.
var (
	colorPrimary   = lipgloss.Color("#6C63FF")
	colorSecondary = lipgloss.Color("#2EC4B6")
	colorAccent    = lipgloss.Color("#FF6B6B")
	colorMuted     = lipgloss.Color("#666666")
	colorSuccess   = lipgloss.Color("#2ECC71")
	colorWarning   = lipgloss.Color("#F39C12")
	colorError     = lipgloss.Color("#E74C3C")
	colorFg        = lipgloss.Color("#C0CAF5")
	colorSubtle    = lipgloss.Color("#414868")
	colorHighlight = lipgloss.Color("#7AA2F7")
	colorBank      = lipgloss.Color("#DB2777")
)

var themeAccents = map[string]lipgloss.Color{
	"yin":       "#6C63FF",
	"yang":      "#A1A1AA",
	"zen":       "#84A98C",
	"forest":    "#2D6A4F",
	"seafoam":   "#2EC4B6",
	"midnight":  "#3B82F6",
	"sunrise":   "#F97316",
	"volcano":   "#DC2626",
	"lavender":  "#A78BFA",
	"galactic":  "#7C3AED",
	"dune":      "#D4A373",
	"espresso":  "#8B5E3C",
	"hologram":  "#22D3EE",
	"cyberpunk": "#F0ABFC",
}

// Styles
var (
	// Tabs
	activeTabStyle   lipgloss.Style
	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Padding(0, 2)

	// Panels
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSubtle).
			Padding(1, 2)

	activePanelStyle lipgloss.Style

	// Timer
	timerStyle lipgloss.Style

	timerRunningStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorSuccess).
				Align(lipgloss.Center)

	timerPausedStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorWarning).
				Align(lipgloss.Center)

	// Text
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorFg)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	accentStyle = lipgloss.NewStyle().
			Foreground(colorAccent)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	highlightStyle = lipgloss.NewStyle().
			Foreground(colorHighlight)

	bankStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBank)

	tagStyle = lipgloss.NewStyle().
			Foreground(colorSecondary)

	// Header/footer
	headerStyle = lipgloss.NewStyle().
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	// List items
	selectedItemStyle lipgloss.Style

	normalItemStyle = lipgloss.NewStyle().
			Foreground(colorFg)
)

func init() {
	applyTheme("yin")
}

// applyTheme recolors the primary-colored styles. Unknown names keep the
// default accent.
func applyTheme(name string) {
	accent, ok := themeAccents[name]
	if !ok {
		accent = themeAccents["yin"]
	}
	colorPrimary = accent

	activeTabStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(colorPrimary).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(colorPrimary).
		Padding(0, 2)

	activePanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorPrimary).
		Padding(1, 2)

	timerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(colorPrimary).
		Align(lipgloss.Center)

	selectedItemStyle = lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true)
}
