package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/focussplit/internal/analytics"
	"github.com/sadopc/focussplit/internal/calendar"
	"github.com/sadopc/focussplit/internal/engine"
	"github.com/sadopc/focussplit/internal/store"
)

const maxTags = 5

type reportsModel struct {
	store  *store.Store
	today  func() string
	width  int
	height int

	rangeIdx int
	summary  analytics.Summary
	streak   analytics.Streak
	archive  store.ArchiveStats
	settings store.Settings

	chart barchart.Model
}

func newReportsModel(s *store.Store, today func() string) reportsModel {
	return reportsModel{
		store:    s,
		today:    today,
		settings: store.DefaultSettings(),
		chart:    barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
	r.buildChart()
}

func (r reportsModel) currentRange() analytics.Range {
	return analytics.Ranges[r.rangeIdx]
}

type reportsDataMsg struct {
	summary  analytics.Summary
	streak   analytics.Streak
	archive  store.ArchiveStats
	settings store.Settings
}

func (r reportsModel) refresh() tea.Cmd {
	rng := r.currentRange()
	return func() tea.Msg {
		ctx := context.Background()
		today := r.today()
		tasks, err := r.store.ListTasks(ctx)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}
		logs, err := r.store.ListWorkLogs(ctx)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}
		sum, err := analytics.Summarize(tasks, logs, rng, today)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}
		archive, _ := r.store.GetArchive(ctx)
		settings, _ := r.store.GetSettings(ctx)
		return reportsDataMsg{
			summary:  sum,
			streak:   analytics.StreakOf(logs, today),
			archive:  archive,
			settings: settings,
		}
	}
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		r.summary = msg.summary
		r.streak = msg.streak
		r.archive = msg.archive
		r.settings = msg.settings
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.rangeIdx = (r.rangeIdx + len(analytics.Ranges) - 1) % len(analytics.Ranges)
			return r, r.refresh()
		case key.Matches(msg, keys.Right):
			r.rangeIdx = (r.rangeIdx + 1) % len(analytics.Ranges)
			return r, r.refresh()
		}
	}
	return r, nil
}

func (r *reportsModel) buildChart() {
	chartWidth := max(20, r.width-8)
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}
	r.chart = barchart.New(chartWidth, chartHeight)

	// Long ranges only show the most recent days that fit.
	days := r.summary.Activity
	if fit := chartWidth / 4; len(days) > fit {
		days = days[len(days)-fit:]
	}

	style := lipgloss.NewStyle().Foreground(colorPrimary)
	var bars []barchart.BarData
	for _, d := range days {
		bars = append(bars, barchart.BarData{
			Label: dayLabel(d.Date, r.summary.Range),
			Values: []barchart.BarValue{{
				Name:  "focus",
				Value: float64(d.Minutes),
				Style: style,
			}},
		})
	}
	if len(bars) == 0 {
		return
	}
	r.chart.PushAll(bars)
	r.chart.Draw()
}

func dayLabel(day string, rng analytics.Range) string {
	t, err := calendar.Parse(day)
	if err != nil {
		return day
	}
	switch rng {
	case analytics.Week:
		return t.Format("Mon")
	case analytics.Month:
		return t.Format("02")
	}
	return t.Format("01/02")
}

func (r reportsModel) view() string {
	w := r.width - 4

	var tabs []string
	for i, rng := range analytics.Ranges {
		label := strings.ToUpper(string(rng[:1])) + string(rng[1:])
		if i == r.rangeIdx {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Reports"), "  ", lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...),
	)

	chartView := mutedStyle.Render("  No focus time in this period")
	if r.summary.TotalFocusMs > 0 {
		chartView = r.chart.View()
	}

	nav := mutedStyle.Render("  ←/→: change range")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", chartView, "", r.renderStats(), "", r.renderTags(), "", r.renderArchive(), "", nav,
		),
	)
}

func (r reportsModel) renderStats() string {
	tier := engine.Tier(r.settings.EarningRatio)
	rows := []string{
		fmt.Sprintf("  %-18s %s", "Focus time", highlightStyle.Render(formatHours(r.summary.TotalFocusMs))),
		fmt.Sprintf("  %-18s %s", "Tasks completed", highlightStyle.Render(fmt.Sprint(r.summary.TasksCompleted))),
		fmt.Sprintf("  %-18s %s", "Streak", highlightStyle.Render(fmt.Sprintf("%d days (best %d)", r.streak.Current, r.streak.Best))),
		fmt.Sprintf("  %-18s %s", "Time bank", bankStyle.Render(engine.FormatBank(r.settings.TimeBankMinutes)+"m")),
		fmt.Sprintf("  %-18s %s", "Earning ratio", highlightStyle.Render(fmt.Sprintf("%d:1 %s", r.settings.EarningRatio, tier.Label))),
	}
	return strings.Join(rows, "\n")
}

func (r reportsModel) renderTags() string {
	if len(r.summary.Tags) == 0 {
		return ""
	}
	rows := []string{subtitleStyle.Render("  Top tags")}
	for i, t := range r.summary.Tags {
		if i == maxTags {
			break
		}
		rows = append(rows, fmt.Sprintf("  %s %dm", tagStyle.Render(fmt.Sprintf("%-16s", "#"+t.Tag)), t.Minutes))
	}
	return strings.Join(rows, "\n")
}

func (r reportsModel) renderArchive() string {
	if r.archive.LastPrunedDate == "" {
		return ""
	}
	return mutedStyle.Render(fmt.Sprintf("  Archived: %s focus, %d tasks, %sm earned (pruned %s)",
		formatHours(r.archive.TotalFocusMs),
		r.archive.TotalTasksCompleted,
		engine.FormatBank(r.archive.TotalEarnedMinutes),
		r.archive.LastPrunedDate,
	))
}
