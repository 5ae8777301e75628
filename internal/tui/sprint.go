package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/focussplit/internal/engine"
	"github.com/sadopc/focussplit/internal/logger"
	"github.com/sadopc/focussplit/internal/sprint"
	"github.com/sadopc/focussplit/internal/store"
)

const (
	quickBreakMin     = 1
	quickBreakMax     = 15
	quickBreakDefault = 5
)

type breakOption int

const (
	breakPreset breakOption = iota
	breakQuick
	breakFree
)

type sprintModel struct {
	store  *store.Store
	beeper sprint.Beeper
	now    func() time.Time
	width  int
	height int

	run      *sprint.Sprint
	st       sprint.Status
	settings store.Settings

	menuCursor   breakOption
	quickMinutes int
}

func newSprintModel(s *store.Store, b sprint.Beeper, now func() time.Time) sprintModel {
	return sprintModel{
		store:        s,
		beeper:       b,
		now:          now,
		quickMinutes: quickBreakDefault,
	}
}

func (m *sprintModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m sprintModel) active() bool { return m.run != nil }

// start begins a sprint over tasks in the order given.
func (m sprintModel) start(tasks []store.Task) (sprintModel, tea.Cmd) {
	settings, err := m.store.GetSettings(context.Background())
	if err != nil {
		return m, errStatus(err)
	}
	m.stop()

	var opts []sprint.Option
	if m.beeper != nil {
		opts = append(opts, sprint.WithBeeper(m.beeper))
	}
	m.settings = settings
	m.run = sprint.New(m.store, tasks, settings, m.now(), opts...)
	m.st = m.run.Status(m.now())
	m.menuCursor = breakPreset
	logger.Info("sprint started", "tasks", len(tasks))
	return m, status(fmt.Sprintf("Sprint started with %d tasks", len(tasks)))
}

// stop abandons the running sprint. Uncommitted time is discarded.
func (m *sprintModel) stop() {
	if m.run != nil {
		m.run.Close()
		m.run = nil
	}
}

func (m sprintModel) update(msg tea.Msg) (sprintModel, tea.Cmd) {
	if m.run == nil {
		return m, nil
	}
	now := m.now()

	switch msg := msg.(type) {
	case tickMsg:
		m.run.Tick(now)
		m.run.BreakTick(now)
		m.st = m.run.Status(now)
		return m, nil

	case tea.BlurMsg:
		if m.run.FocusLost(now) {
			m.st = m.run.Status(now)
			return m, status("Focus lost: sprint paused")
		}
		return m, nil

	case tea.FocusMsg:
		m.run.FocusRegained(now)
		m.st = m.run.Status(now)
		return m, nil

	case tea.KeyMsg:
		var cmd tea.Cmd
		switch m.st.State {
		case sprint.Running:
			cmd = m.updateRunning(msg, now)
		case sprint.BreakMenuOpen:
			cmd = m.updateBreakMenu(msg, now)
		case sprint.OnBreak:
			cmd = m.updateOnBreak(msg, now)
		case sprint.Paused:
			if key.Matches(msg, keys.Stop) {
				cmd = m.finish()
			}
		case sprint.Complete:
			cmd = m.updateComplete(msg, now)
		}
		m.st = m.run.Status(now)
		return m, cmd
	}
	return m, nil
}

func (m *sprintModel) updateRunning(msg tea.KeyMsg, now time.Time) tea.Cmd {
	ctx := context.Background()
	switch {
	case key.Matches(msg, keys.Split):
		if err := m.run.Split(ctx, now); err != nil {
			return errStatus(err)
		}
	case key.Matches(msg, keys.Complete):
		if err := m.run.Complete(ctx, now); err != nil {
			return errStatus(err)
		}
		return status("Task complete")
	case key.Matches(msg, keys.Undo):
		return m.undo(now)
	case key.Matches(msg, keys.Break):
		if err := m.run.OpenBreakMenu(now); err != nil {
			if errors.Is(err, sprint.ErrBreaksDisabled) {
				return status("Breaks are disabled in settings")
			}
			return errStatus(err)
		}
		m.menuCursor = breakPreset
		if m.settings.CustomBreakMinutes <= 0 {
			m.menuCursor = breakQuick
		}
	case key.Matches(msg, keys.Stop):
		return m.finish()
	}
	return nil
}

func (m *sprintModel) updateBreakMenu(msg tea.KeyMsg, now time.Time) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Up):
		if m.menuCursor > breakPreset {
			m.menuCursor--
		}
	case key.Matches(msg, keys.Down):
		if m.menuCursor < breakFree {
			m.menuCursor++
		}
	case key.Matches(msg, keys.Left):
		m.quickMinutes = max(quickBreakMin, m.quickMinutes-1)
	case key.Matches(msg, keys.Right):
		m.quickMinutes = min(quickBreakMax, m.quickMinutes+1)
	case key.Matches(msg, keys.Back), key.Matches(msg, keys.Break):
		m.run.CloseBreakMenu(now)
	case key.Matches(msg, keys.Enter):
		minutes, funded := m.quickMinutes, true
		switch m.menuCursor {
		case breakPreset:
			minutes = m.settings.CustomBreakMinutes
		case breakFree:
			funded = false
		}
		ok, err := m.run.StartBreak(context.Background(), now, minutes, funded)
		if err != nil {
			return errStatus(err)
		}
		if !ok {
			return status("Insufficient bank")
		}
		return status(fmt.Sprintf("Enjoy your %d minute break", minutes))
	}
	return nil
}

func (m *sprintModel) updateOnBreak(msg tea.KeyMsg, now time.Time) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Back):
		if err := m.run.EndBreak(context.Background(), now); err != nil {
			return errStatus(err)
		}
		return status("Back to work")
	case key.Matches(msg, keys.Undo):
		return m.undo(now)
	}
	return nil
}

func (m *sprintModel) updateComplete(msg tea.KeyMsg, now time.Time) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Undo):
		return m.undo(now)
	case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Stop):
		return m.finish()
	}
	return nil
}

func (m *sprintModel) undo(now time.Time) tea.Cmd {
	ok, err := m.run.Undo(context.Background(), now)
	if err != nil {
		return errStatus(err)
	}
	if !ok {
		return status("Nothing to undo")
	}
	return status("Undone")
}

// finish ends the sprint and hands over to the session summary.
func (m *sprintModel) finish() tea.Cmd {
	m.stop()
	return func() tea.Msg { return sprintEndedMsg{} }
}

func (m sprintModel) view() string {
	w := m.width - 4

	if m.run == nil {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Sprint"),
			"",
			mutedStyle.Render("No sprint running. Press s in the planner to start one."),
		))
	}

	switch m.st.State {
	case sprint.OnBreak:
		return m.renderBreak(w)
	case sprint.BreakMenuOpen:
		return m.renderBreakMenu(w)
	case sprint.Complete:
		return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Center,
			successStyle.Bold(true).Render("All tasks done!"),
			"",
			m.renderProgress(),
			"",
			mutedStyle.Render("enter: summary  u: undo"),
		))
	}
	return m.renderTimer(w)
}

func (m sprintModel) renderTimer(w int) string {
	timeStr := formatMillis(m.st.ElapsedMs)
	var timeDisplay, indicator string
	panel := activePanelStyle
	if m.st.State == sprint.Paused {
		timeDisplay = timerPausedStyle.Width(w - 6).Render(timeStr)
		indicator = warningStyle.Render("⏸  PAUSED: focus lost")
		panel = panelStyle
	} else {
		timeDisplay = timerRunningStyle.Width(w - 6).Render(timeStr)
		indicator = successStyle.Render("●  FOCUS")
	}

	taskLine := highlightStyle.Render(m.st.Task.Title)
	if m.st.Task.TotalTimeMs > 0 {
		taskLine += mutedStyle.Render("  (" + formatMillis(m.st.Task.TotalTimeMs) + " so far)")
	}

	stats := mutedStyle.Render(fmt.Sprintf("earning %sm  ", engine.FormatBank(engine.CalculateEarnings(m.st.ElapsedMs, m.settings.EarningRatio)))) +
		bankStyle.Render("bank "+engine.FormatBank(m.st.Bank)+"m")
	if m.st.DistractionMs > 0 {
		stats += accentStyle.Render("  distracted " + formatMillis(m.st.DistractionMs))
	}

	controls := "space: split  c: complete  b: break  x: finish"
	if m.st.CanUndo {
		controls += "  u: undo"
	}

	return panel.Width(w).Render(lipgloss.JoinVertical(lipgloss.Center,
		taskLine,
		"",
		timeDisplay,
		indicator,
		"",
		stats,
		m.renderProgress(),
		"",
		mutedStyle.Render(controls),
	))
}

func (m sprintModel) renderBreak(w int) string {
	left := formatClock(m.st.BreakLeft)
	timeDisplay := timerStyle.Width(w - 6).Render(left)
	label := successStyle.Bold(true).Render("BREAK")
	if m.st.AlarmRinging {
		timeDisplay = errorStyle.Bold(true).Width(w - 6).Align(lipgloss.Center).Render(left)
		label = errorStyle.Bold(true).Render("BREAK OVER")
	}
	hint := "enter: skip break"
	if m.st.BreakFunded {
		label += bankStyle.Render("  TIME BANK ACTIVE")
		hint = "enter: stop and refund remaining"
	}
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Center,
		label,
		"",
		timeDisplay,
		"",
		bankStyle.Render("bank "+engine.FormatBank(m.st.Bank)+"m"),
		"",
		mutedStyle.Render(hint+"  u: undo last split"),
	))
}

func (m sprintModel) renderBreakMenu(w int) string {
	type option struct {
		label string
		cost  float64
	}
	options := []option{
		{fmt.Sprintf("%dm preset (banked)", m.settings.CustomBreakMinutes), float64(m.settings.CustomBreakMinutes)},
		{fmt.Sprintf("%dm quick break (banked)  ←/→ adjust", m.quickMinutes), float64(m.quickMinutes)},
		{fmt.Sprintf("%dm standard break (free)", m.quickMinutes), 0},
	}

	var rows []string
	rows = append(rows, titleStyle.Render("Break Dashboard"), "")
	rows = append(rows, bankStyle.Render("bank "+engine.FormatBank(m.st.Bank)+"m"), "")
	for i, o := range options {
		cursor := "  "
		style := normalItemStyle
		if breakOption(i) == m.menuCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		line := style.Render(cursor + o.label)
		if o.cost > m.st.Bank {
			line += " " + errorStyle.Render("insufficient bank")
		}
		if breakOption(i) == breakPreset && m.settings.CustomBreakMinutes <= 0 {
			line = mutedStyle.Render(cursor + "no preset configured")
		}
		rows = append(rows, line)
	}
	rows = append(rows, "", mutedStyle.Render("  enter: start  esc: back to work"))

	return activePanelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (m sprintModel) renderProgress() string {
	var parts []string
	for i := 0; i < m.st.Total; i++ {
		if i < m.st.Done {
			parts = append(parts, successStyle.Render("●"))
		} else {
			parts = append(parts, mutedStyle.Render("○"))
		}
	}
	counter := mutedStyle.Render(fmt.Sprintf("  %d/%d", m.st.Done, m.st.Total))
	return strings.Join(parts, " ") + counter
}
