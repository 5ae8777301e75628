package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/focussplit/internal/maintenance"
)

// viewState represents the currently active view.
type viewState int

const (
	viewPlanner viewState = iota
	viewSprint
	viewSummary
	viewReports
	viewSettings
)

var viewNames = []string{"Planner", "Sprint", "Summary", "Reports", "Settings"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

func errStatus(err error) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
	}
}

func status(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text} }
}

type tickMsg time.Time

// maintenanceMsg is delivered by the background maintenance runner.
type maintenanceMsg struct {
	report maintenance.Report
}

// MaintenanceMsg wraps a maintenance report for tea.Program.Send.
func MaintenanceMsg(r maintenance.Report) tea.Msg {
	return maintenanceMsg{report: r}
}

type sprintStartedMsg struct{}

// sprintEndedMsg asks the app to move to the session summary.
type sprintEndedMsg struct{}

type closeOutDoneMsg struct {
	rolled int
}

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatMillis(ms int64) string {
	return formatDuration(time.Duration(ms) * time.Millisecond)
}

// formatClock renders a countdown as MM:SS.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}

func formatHours(ms int64) string {
	h := float64(ms) / float64(time.Hour/time.Millisecond)
	return fmt.Sprintf("%.1fh", h)
}

// completionMessage grades a session by its total focus time.
func completionMessage(ms int64) string {
	mins := float64(ms) / 60000
	switch {
	case mins == 0:
		return "Ready to Start?"
	case mins < 15:
		return "Short & Sweet!"
	case mins < 45:
		return "Efficient Focus!"
	case mins < 90:
		return "Solid Work Session!"
	case mins < 180:
		return "Deep Work Achieved!"
	}
	return "Legendary Stamina!"
}
