package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/focussplit/internal/engine"
	"github.com/sadopc/focussplit/internal/store"
)

type settingsModel struct {
	store  *store.Store
	width  int
	height int

	settings   store.Settings
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	ratio        *string
	enableBreaks *bool
	breakMinutes *string
	focusGuard   *bool
	allowedApps  *string
	theme        *string
	darkMode     *bool
}

func newSettingsModel(s *store.Store) settingsModel {
	ratio, breakMins, apps, theme := "", "", "", ""
	breaks, guard, dark := false, false, false
	return settingsModel{
		store:        s,
		settings:     store.DefaultSettings(),
		ratio:        &ratio,
		enableBreaks: &breaks,
		breakMinutes: &breakMins,
		focusGuard:   &guard,
		allowedApps:  &apps,
		theme:        &theme,
		darkMode:     &dark,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings store.Settings
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		settings, err := s.store.GetSettings(context.Background())
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}
		return settingsDataMsg{settings: settings}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		applyTheme(s.settings.Theme)
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.New):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	cur := s.settings
	*s.ratio = strconv.Itoa(cur.EarningRatio)
	*s.enableBreaks = cur.EnableBreaks
	*s.breakMinutes = strconv.Itoa(cur.CustomBreakMinutes)
	*s.focusGuard = cur.EnforceFocusGuard
	*s.allowedApps = strings.Join(cur.AllowedApps, ", ")
	*s.theme = cur.Theme
	*s.darkMode = cur.DarkMode

	themeOptions := make([]huh.Option[string], len(store.Themes))
	for i, t := range store.Themes {
		themeOptions[i] = huh.NewOption(t, t)
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Earning ratio (focus minutes per break minute)").
				Value(s.ratio).Validate(positiveInt),
			huh.NewConfirm().Title("Enable breaks").Value(s.enableBreaks),
			huh.NewInput().Title("Custom break (min)").
				Value(s.breakMinutes).Validate(positiveInt),
		).Title("Time bank"),
		huh.NewGroup(
			huh.NewConfirm().Title("Pause when the terminal loses focus").Value(s.focusGuard),
			huh.NewInput().Title("Allowed apps (comma-separated)").Value(s.allowedApps),
		).Title("Focus guard"),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Theme").Options(themeOptions...).Value(s.theme),
			huh.NewConfirm().Title("Dark mode").Value(s.darkMode),
		).Title("Appearance"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func positiveInt(v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return fmt.Errorf("enter a whole number of at least 1")
	}
	return nil
}

func splitApps(v string) []string {
	apps := []string{}
	for _, a := range strings.Split(v, ",") {
		if a = strings.TrimSpace(a); a != "" {
			apps = append(apps, a)
		}
	}
	return apps
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		s.form = nil
		if err := s.save(); err != nil {
			return s, errStatus(err)
		}
		return s, tea.Batch(s.refresh(), status("Settings saved"))
	}

	return s, cmd
}

func (s settingsModel) save() error {
	ratio, _ := strconv.Atoi(strings.TrimSpace(*s.ratio))
	breakMins, _ := strconv.Atoi(strings.TrimSpace(*s.breakMinutes))
	_, err := s.store.UpdateSettings(context.Background(), func(st *store.Settings) {
		st.EarningRatio = ratio
		st.EnableBreaks = *s.enableBreaks
		st.CustomBreakMinutes = breakMins
		st.EnforceFocusGuard = *s.focusGuard
		st.AllowedApps = splitApps(*s.allowedApps)
		st.Theme = *s.theme
		st.DarkMode = *s.darkMode
	})
	return err
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	cur := s.settings
	apps := "none"
	if len(cur.AllowedApps) > 0 {
		apps = strings.Join(cur.AllowedApps, ", ")
	}
	tier := engine.Tier(cur.EarningRatio)

	fields := [][2]string{
		{"Earning ratio", fmt.Sprintf("%d:1 (%s)", cur.EarningRatio, tier.Label)},
		{"Time bank", engine.FormatBank(cur.TimeBankMinutes) + " min"},
		{"Breaks", onOff(cur.EnableBreaks)},
		{"Custom break", fmt.Sprintf("%d min", cur.CustomBreakMinutes)},
		{"Focus guard", onOff(cur.EnforceFocusGuard)},
		{"Allowed apps", apps},
		{"Theme", cur.Theme},
		{"Dark mode", onOff(cur.DarkMode)},
	}

	rows := []string{title, ""}
	for _, f := range fields {
		label := lipgloss.NewStyle().Width(24).Render(f[0])
		rows = append(rows, fmt.Sprintf("  %s %s", label, highlightStyle.Render(f[1])))
	}
	rows = append(rows, "", mutedStyle.Render("Press enter to edit settings"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
