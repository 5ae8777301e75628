package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/focussplit/internal/planner"
	"github.com/sadopc/focussplit/internal/store"
)

const progressStep = 10

// outcomeState is the pending end-of-session decision for one task.
type outcomeState struct {
	progress  int
	completed bool
	rollOver  bool
}

type summaryModel struct {
	store   *store.Store
	planner *planner.Planner
	width   int
	height  int

	date      string
	sessionID string
	tasks     []store.Task
	states    []outcomeState
	cursor    int
}

func newSummaryModel(s *store.Store, p *planner.Planner) summaryModel {
	return summaryModel{store: s, planner: p}
}

func (m *summaryModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type summaryDataMsg struct {
	date      string
	sessionID string
	tasks     []store.Task
}

func (m summaryModel) load(date, sessionID string) tea.Cmd {
	return func() tea.Msg {
		tasks, err := m.store.TasksFor(context.Background(), date, sessionID)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}
		return summaryDataMsg{
			date:      date,
			sessionID: sessionID,
			tasks:     planner.ActiveTasks(tasks, date, sessionID),
		}
	}
}

// initialState defaults unfinished tasks to rolling over and finished
// ones to staying put.
func initialState(t store.Task) outcomeState {
	st := outcomeState{progress: t.Progress, completed: t.IsCompleted, rollOver: !t.IsCompleted}
	if t.IsCompleted {
		st.progress = 100
	}
	return st
}

func (m summaryModel) update(msg tea.Msg) (summaryModel, tea.Cmd) {
	switch msg := msg.(type) {
	case summaryDataMsg:
		m.date = msg.date
		m.sessionID = msg.sessionID
		m.tasks = msg.tasks
		m.states = make([]outcomeState, len(msg.tasks))
		for i, t := range msg.tasks {
			m.states[i] = initialState(t)
		}
		m.cursor = 0
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Wrap) {
			return m, m.apply()
		}
		if len(m.tasks) == 0 {
			return m, nil
		}
		st := &m.states[m.cursor]
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.tasks)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Left):
			st.setProgress(st.progress - progressStep)
		case key.Matches(msg, keys.Right):
			st.setProgress(st.progress + progressStep)
		case key.Matches(msg, keys.Toggle):
			st.toggleCompleted()
		case key.Matches(msg, keys.Rollover):
			st.toggleRollover()
		}
	}
	return m, nil
}

func (st *outcomeState) setProgress(p int) {
	st.progress = min(100, max(0, p))
	st.completed = st.progress == 100
}

func (st *outcomeState) toggleCompleted() {
	st.completed = !st.completed
	switch {
	case st.completed:
		st.progress = 100
	case st.progress == 100:
		st.progress = 0
	}
	st.rollOver = !st.completed
}

func (st *outcomeState) toggleRollover() {
	st.rollOver = !st.rollOver
	if st.rollOver {
		st.progress = 0
		st.completed = false
	}
}

// outcomes lists rollovers plus any task whose completion or progress
// changed.
func (m summaryModel) outcomes() []planner.Outcome {
	var out []planner.Outcome
	for i, t := range m.tasks {
		st := m.states[i]
		if !st.rollOver && st.completed == t.IsCompleted && st.progress == t.Progress {
			continue
		}
		out = append(out, planner.Outcome{
			TaskID:    t.ID,
			Progress:  st.progress,
			Completed: st.completed,
			RollOver:  st.rollOver,
		})
	}
	return out
}

func (m summaryModel) apply() tea.Cmd {
	outcomes := m.outcomes()
	rolled := 0
	for _, o := range outcomes {
		if o.RollOver {
			rolled++
		}
	}
	return func() tea.Msg {
		if err := m.planner.CloseOut(context.Background(), m.date, outcomes); err != nil {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}
		return closeOutDoneMsg{rolled: rolled}
	}
}

func (m summaryModel) view() string {
	w := m.width - 4

	var total int64
	done := 0
	for i, t := range m.tasks {
		total += t.TotalTimeMs
		if m.states[i].completed {
			done++
		}
	}

	header := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(completionMessage(total)),
		mutedStyle.Render(fmt.Sprintf("%s  focused %s  %d/%d done", m.date, formatMillis(total), done, len(m.tasks))),
	)

	if len(m.tasks) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			header, "", mutedStyle.Render("Nothing planned in this session."),
		))
	}

	var rows []string
	rows = append(rows, header, "")
	for i, t := range m.tasks {
		st := m.states[i]
		cursor := "  "
		style := normalItemStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		check := "○"
		if st.completed {
			check = successStyle.Render("●")
		}
		move := ""
		if st.rollOver {
			move = warningStyle.Render("  → tomorrow")
		}
		rows = append(rows, fmt.Sprintf("%s%s %-28s %s %s%s",
			cursor, check, style.Render(t.Title), renderProgressBar(st.progress, 20),
			mutedStyle.Render(formatMillis(t.TotalTimeMs)), move,
		))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  ←/→: progress  enter: done  r: roll over  w: save & close  1: back"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func renderProgressBar(pct, width int) string {
	filled := pct * width / 100
	bar := successStyle.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %3d%%", bar, pct)
}
