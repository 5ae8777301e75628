package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/focussplit/internal/calendar"
	"github.com/sadopc/focussplit/internal/config"
	"github.com/sadopc/focussplit/internal/engine"
	"github.com/sadopc/focussplit/internal/export"
	"github.com/sadopc/focussplit/internal/logger"
	"github.com/sadopc/focussplit/internal/planner"
	"github.com/sadopc/focussplit/internal/sprint"
	"github.com/sadopc/focussplit/internal/store"
)

// Deps are the collaborators the app runs against. Today, Now and
// ExportDir default to the local calendar, the wall clock and the home
// directory.
type Deps struct {
	Store     *store.Store
	Planner   *planner.Planner
	Beeper    sprint.Beeper
	Today     func() string
	Now       func() time.Time
	ExportDir string
}

// App is the root Bubble Tea model.
type App struct {
	store     *store.Store
	today     func() string
	now       func() time.Time
	exportDir string
	width     int
	height    int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	planner  plannerModel
	sprint   sprintModel
	summary  summaryModel
	reports  reportsModel
	settings settingsModel

	help        help.Model
	status      string
	statusError bool
}

func NewApp(d Deps) App {
	if d.Today == nil {
		d.Today = calendar.Today
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Planner == nil {
		d.Planner = planner.New(d.Store)
	}
	if d.ExportDir == "" {
		d.ExportDir, _ = os.UserHomeDir()
	}

	h := help.New()
	h.ShowAll = false

	return App{
		store:      d.Store,
		today:      d.Today,
		now:        d.Now,
		exportDir:  d.ExportDir,
		activeView: viewPlanner,
		planner:    newPlannerModel(d.Store, d.Planner, d.Today),
		sprint:     newSprintModel(d.Store, d.Beeper, d.Now),
		summary:    newSummaryModel(d.Store, d.Planner),
		reports:    newReportsModel(d.Store, d.Today),
		settings:   newSettingsModel(d.Store),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.planner.Init(),
		a.settings.refresh(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(config.SprintTick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Close releases the running sprint, if any. Call it once the program has
// exited.
func (a App) Close() {
	a.sprint.stop()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.planner.setSize(a.width, contentHeight)
		a.sprint.setSize(a.width, contentHeight)
		a.summary.setSize(a.width, contentHeight)
		a.reports.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			a.sprint.stop()
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			return a.switchTo(viewPlanner)
		case key.Matches(msg, keys.Tab2):
			return a.switchTo(viewSprint)
		case key.Matches(msg, keys.Tab3):
			return a.switchTo(viewSummary)
		case key.Matches(msg, keys.Tab4):
			return a.switchTo(viewReports)
		case key.Matches(msg, keys.Tab5):
			return a.switchTo(viewSettings)
		case key.Matches(msg, keys.Tab):
			return a.switchTo((a.activeView + 1) % viewState(len(viewNames)))
		}

	case tickMsg:
		// The sprint clock runs whichever view is showing.
		var cmd tea.Cmd
		a.sprint, cmd = a.sprint.update(msg)
		return a, tea.Batch(tickCmd(), cmd)

	case tea.FocusMsg, tea.BlurMsg:
		var cmd tea.Cmd
		a.sprint, cmd = a.sprint.update(msg)
		return a, cmd

	case statusMsg:
		a.status = msg.text
		a.statusError = msg.isError
		return a, nil

	case sprintStartedMsg:
		var cmd tea.Cmd
		a.sprint, cmd = a.sprint.start(a.planner.openTasks())
		a.activeView = viewSprint
		return a, cmd

	case sprintEndedMsg:
		a.activeView = viewSummary
		sessionID := ""
		if sess, ok := a.planner.session(); ok {
			sessionID = sess.ID
		}
		return a, tea.Batch(a.summary.load(a.planner.date, sessionID), a.planner.refresh())

	case closeOutDoneMsg:
		a.status = "Session wrapped up"
		if msg.rolled > 0 {
			a.status = fmt.Sprintf("Session wrapped up, %d task(s) moved to tomorrow", msg.rolled)
		}
		a.statusError = false
		a.activeView = viewPlanner
		return a, a.planner.refresh()

	case maintenanceMsg:
		if msg.report.RolledOver > 0 {
			a.status = fmt.Sprintf("%d unfinished task(s) carried into today", msg.report.RolledOver)
			a.statusError = false
		}
		return a, a.planner.refresh()

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusError = false
		a.exportPicking = false
		return a, nil

	case plannerDataMsg:
		var cmd tea.Cmd
		a.planner, cmd = a.planner.update(msg)
		return a, cmd

	case summaryDataMsg:
		var cmd tea.Cmd
		a.summary, cmd = a.summary.update(msg)
		return a, cmd

	case reportsDataMsg:
		var cmd tea.Cmd
		a.reports, cmd = a.reports.update(msg)
		return a, cmd

	case settingsDataMsg:
		var cmd tea.Cmd
		a.settings, cmd = a.settings.update(msg)
		return a, cmd
	}

	return a.updateActiveView(msg)
}

func (a App) switchTo(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	return a, a.refreshCurrentView()
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewPlanner:
		a.planner, cmd = a.planner.update(msg)
	case viewSprint:
		a.sprint, cmd = a.sprint.update(msg)
	case viewSummary:
		a.summary, cmd = a.summary.update(msg)
	case viewReports:
		a.reports, cmd = a.reports.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewPlanner:
		return a.planner.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewPlanner:
		return a.planner.refresh()
	case viewReports:
		return a.reports.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewPlanner:
		content = a.planner.view()
	case viewSprint:
		content = a.sprint.view()
	case viewSummary:
		content = a.summary.view()
	case viewReports:
		content = a.reports.view()
	case viewSettings:
		content = a.settings.view()
	}

	contentHeight := max(1, a.height-lipgloss.Height(header)-lipgloss.Height(footer))

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render(config.AppName)
	gap := max(1, a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusError {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	// Sprint indicator in footer
	sprintInfo := ""
	if a.sprint.active() {
		st := a.sprint.st
		switch st.State {
		case sprint.Running:
			sprintInfo = successStyle.Render(" ● " + formatMillis(st.ElapsedMs))
		case sprint.OnBreak:
			sprintInfo = bankStyle.Render(" ☕ " + formatClock(st.BreakLeft))
		default:
			sprintInfo = warningStyle.Render(" ⏸ " + st.State.String())
		}
		sprintInfo += bankStyle.Render(" " + engine.FormatBank(st.Bank) + "m")
	}

	left := footerStyle.Render(helpView)
	right := sprintInfo + status

	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

var exportFormats = []string{"CSV", "JSON"}

func (a App) renderExportPicker() string {
	rows := []string{titleStyle.Render("Export Work Logs"), ""}
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		logs, err := a.store.ListWorkLogs(ctx)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		list, err := a.store.ListTasks(ctx)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		tasks := make(map[string]store.Task, len(list))
		for _, t := range list {
			tasks[t.ID] = t
		}

		base := filepath.Join(a.exportDir, fmt.Sprintf("%s-export-%s", config.AppName, a.today()))
		var path string
		if format == 0 {
			path = base + ".csv"
			err = export.ToCSV(logs, tasks, path)
		} else {
			path = base + ".json"
			err = export.ToJSON(logs, tasks, path)
		}
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		logger.Info("exported work logs", "path", path, "count", len(logs))
		return exportDoneMsg{path: path}
	}
}
