package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/focussplit/internal/engine"
	"github.com/sadopc/focussplit/internal/planner"
	"github.com/sadopc/focussplit/internal/store"
)

const estimateStep = 5

type plannerModel struct {
	store   *store.Store
	planner *planner.Planner
	today   func() string
	width   int
	height  int

	date       string
	sessions   []store.Session
	sessionIdx int
	tasks      []store.Task
	cursor     int
	bank       float64

	formActive bool
	form       *huh.Form
	formType   string // "task", "rename"

	// Form field pointer (survives value copies)
	formValue *string
}

func newPlannerModel(s *store.Store, p *planner.Planner, today func() string) plannerModel {
	v := ""
	return plannerModel{
		store:     s,
		planner:   p,
		today:     today,
		formValue: &v,
	}
}

func (p plannerModel) Init() tea.Cmd {
	return p.refresh()
}

func (p *plannerModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

// session returns the selected session, if the day has any.
func (p plannerModel) session() (store.Session, bool) {
	if p.sessionIdx < 0 || p.sessionIdx >= len(p.sessions) {
		return store.Session{}, false
	}
	return p.sessions[p.sessionIdx], true
}

// openTasks are the unfinished tasks of the selected session, in sprint order.
func (p plannerModel) openTasks() []store.Task {
	var open []store.Task
	for _, t := range p.tasks {
		if !t.IsCompleted {
			open = append(open, t)
		}
	}
	return open
}

type plannerDataMsg struct {
	date     string
	sessions []store.Session
	tasks    []store.Task
	bank     float64
	selectID string
}

func (p plannerModel) refresh() tea.Cmd {
	sel := ""
	if sess, ok := p.session(); ok {
		sel = sess.ID
	}
	return p.load(sel)
}

// load reads the day's sessions and the tasks of selectID, defaulting to
// the first session.
func (p plannerModel) load(selectID string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		date := p.today()
		if _, err := p.planner.EnsureSession(ctx, date); err != nil {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}
		sessions, err := p.store.SessionsForDate(ctx, date)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}

		msg := plannerDataMsg{date: date, sessions: sessions, selectID: selectID}
		sessionID := ""
		for _, s := range sessions {
			if s.ID == selectID {
				sessionID = s.ID
			}
		}
		if sessionID == "" && len(sessions) > 0 {
			sessionID = sessions[0].ID
			msg.selectID = sessionID
		}

		tasks, err := p.store.TasksFor(ctx, date, sessionID)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}
		msg.tasks = planner.ActiveTasks(tasks, date, sessionID)

		if settings, err := p.store.GetSettings(ctx); err == nil {
			msg.bank = settings.TimeBankMinutes
		}
		return msg
	}
}

func (p plannerModel) update(msg tea.Msg) (plannerModel, tea.Cmd) {
	if p.formActive && p.form != nil {
		return p.updateForm(msg)
	}

	switch msg := msg.(type) {
	case plannerDataMsg:
		p.date = msg.date
		p.sessions = msg.sessions
		p.tasks = msg.tasks
		p.bank = msg.bank
		p.sessionIdx = 0
		for i, s := range p.sessions {
			if s.ID == msg.selectID {
				p.sessionIdx = i
			}
		}
		if p.cursor >= len(p.tasks) {
			p.cursor = max(0, len(p.tasks)-1)
		}
		return p, nil

	case tea.KeyMsg:
		return p.updateKeys(msg)
	}
	return p, nil
}

func (p plannerModel) updateKeys(msg tea.KeyMsg) (plannerModel, tea.Cmd) {
	ctx := context.Background()

	switch {
	case key.Matches(msg, keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(msg, keys.Down):
		if p.cursor < len(p.tasks)-1 {
			p.cursor++
		}
	case key.Matches(msg, keys.New):
		return p.showForm("task", "")
	case key.Matches(msg, keys.Rename):
		if sess, ok := p.session(); ok {
			return p.showForm("rename", sess.Name)
		}
	case key.Matches(msg, keys.NewSession):
		sess, err := p.planner.NewSession(ctx, p.date)
		if err != nil {
			return p, errStatus(err)
		}
		p.cursor = 0
		return p, tea.Batch(p.load(sess.ID), status("Created "+sess.Name))
	case key.Matches(msg, keys.PrevSession), key.Matches(msg, keys.NextSession):
		if len(p.sessions) < 2 {
			return p, nil
		}
		step := 1
		if key.Matches(msg, keys.PrevSession) {
			step = len(p.sessions) - 1
		}
		p.sessionIdx = (p.sessionIdx + step) % len(p.sessions)
		p.cursor = 0
		return p, p.refresh()
	}

	if len(p.tasks) == 0 {
		if key.Matches(msg, keys.Start) {
			return p, status("No tasks yet. Press n to add one.")
		}
		return p, nil
	}
	task := p.tasks[p.cursor]

	switch {
	case key.Matches(msg, keys.Toggle):
		if err := p.planner.ToggleCompletion(ctx, task.ID); err != nil {
			return p, errStatus(err)
		}
		return p, p.refresh()
	case key.Matches(msg, keys.Delete):
		if err := p.store.DeleteTask(ctx, task.ID); err != nil {
			return p, errStatus(err)
		}
		return p, tea.Batch(p.refresh(), status("Deleted "+task.Title))
	case key.Matches(msg, keys.MoreTime):
		if err := p.planner.AdjustEstimate(ctx, task.ID, estimateStep); err != nil {
			return p, errStatus(err)
		}
		return p, p.refresh()
	case key.Matches(msg, keys.LessTime):
		if err := p.planner.AdjustEstimate(ctx, task.ID, -estimateStep); err != nil {
			return p, errStatus(err)
		}
		return p, p.refresh()
	case key.Matches(msg, keys.Start):
		if len(p.openTasks()) == 0 {
			return p, status("Every task is done. Add one or wrap up.")
		}
		return p, func() tea.Msg { return sprintStartedMsg{} }
	case key.Matches(msg, keys.Wrap):
		return p, func() tea.Msg { return sprintEndedMsg{} }
	}
	return p, nil
}

func (p plannerModel) showForm(kind, initial string) (plannerModel, tea.Cmd) {
	*p.formValue = initial
	p.formType = kind

	title := "Task (use #tags)"
	if kind == "rename" {
		title = "Session name"
	}
	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title(title).Value(p.formValue),
		),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func (p plannerModel) updateForm(msg tea.Msg) (plannerModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			p.formActive = false
			p.form = nil
			return p, nil
		}
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	if p.form.State != huh.StateCompleted {
		return p, cmd
	}
	p.formActive = false
	sess, ok := p.session()
	if !ok {
		return p, p.refresh()
	}

	ctx := context.Background()
	switch p.formType {
	case "task":
		if strings.TrimSpace(*p.formValue) == "" {
			return p, nil
		}
		if _, err := p.planner.AddTask(ctx, sess.ID, *p.formValue); err != nil {
			return p, errStatus(err)
		}
	case "rename":
		if err := p.planner.RenameSession(ctx, sess.ID, *p.formValue); err != nil {
			return p, errStatus(err)
		}
	}
	return p, p.refresh()
}

func (p plannerModel) view() string {
	w := p.width - 4

	if p.formActive && p.form != nil {
		title := titleStyle.Render("New Task")
		if p.formType == "rename" {
			title = titleStyle.Render("Rename Session")
		}
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", p.form.View()),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		p.renderSessionBar(w),
		p.renderTaskList(w),
	)
}

func (p plannerModel) renderSessionBar(w int) string {
	var tabs []string
	for i, s := range p.sessions {
		if i == p.sessionIdx {
			tabs = append(tabs, activeTabStyle.Render(s.Name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(s.Name))
		}
	}
	left := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	var total int64
	done := 0
	for _, t := range p.tasks {
		total += t.TotalTimeMs
		if t.IsCompleted {
			done++
		}
	}
	right := fmt.Sprintf("%s  %s  %s",
		mutedStyle.Render(p.date),
		highlightStyle.Render(fmt.Sprintf("%d/%d done  %s", done, len(p.tasks), formatMillis(total))),
		bankStyle.Render("bank "+engine.FormatBank(p.bank)+"m"),
	)
	gap := max(1, w-lipgloss.Width(left)-lipgloss.Width(right)-4)
	return panelStyle.Width(w).Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, left, strings.Repeat(" ", gap), right),
	)
}

func (p plannerModel) renderTaskList(w int) string {
	title := titleStyle.Render("Today")
	if len(p.tasks) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No tasks yet. Press n to add one."),
		))
	}

	var rows []string
	rows = append(rows, title, "")
	for i, t := range p.tasks {
		cursor := "  "
		style := normalItemStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		check := "○"
		if t.IsCompleted {
			check = successStyle.Render("●")
			if i != p.cursor {
				style = mutedStyle
			}
		}
		row := fmt.Sprintf("%s%s %s", cursor, check, style.Render(t.Title))
		rows = append(rows, row+renderTaskMeta(t))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  enter: done  d: delete  +/-: estimate  s: sprint  w: wrap up  N/[/]/R: sessions"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func renderTaskMeta(t store.Task) string {
	var parts []string
	if t.TotalTimeMs > 0 {
		parts = append(parts, formatMillis(t.TotalTimeMs))
	}
	if t.EstimatedMinutes != nil {
		parts = append(parts, fmt.Sprintf("~%dm", *t.EstimatedMinutes))
	}
	if t.Progress > 0 && !t.IsCompleted {
		parts = append(parts, fmt.Sprintf("%d%%", t.Progress))
	}
	if t.IsRollover {
		parts = append(parts, warningStyle.Render(fmt.Sprintf("↻%d", t.RolloverCount)))
	}
	meta := ""
	if len(parts) > 0 {
		meta = "  " + mutedStyle.Render(strings.Join(parts, "  "))
	}
	for _, tag := range t.Tags {
		meta += " " + tagStyle.Render("#"+tag)
	}
	return meta
}
