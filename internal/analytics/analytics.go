// Package analytics derives historical review figures from tasks and work
// logs: totals over a range, per-day activity, tag distribution and
// streaks.
package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/sadopc/focussplit/internal/calendar"
	"github.com/sadopc/focussplit/internal/store"
)

type Range string

const (
	Week  Range = "week"
	Month Range = "month"
	Year  Range = "year"
	All   Range = "all"
)

// Ranges lists the ranges in display order.
var Ranges = []Range{Week, Month, Year, All}

func ParseRange(s string) (Range, error) {
	for _, r := range Ranges {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown range %q", s)
}

// Uncategorized collects time from untagged or deleted tasks.
const Uncategorized = "uncategorized"

type DayTotal struct {
	Date    string
	Minutes int
}

type TagTotal struct {
	Tag     string
	Minutes int
}

type Summary struct {
	Range          Range
	Start          string // empty for All
	TotalFocusMs   int64
	TasksCompleted int
	Activity       []DayTotal
	Tags           []TagTotal
}

// Start returns the first day included in r when looking back from today.
func (r Range) Start(today string) (string, error) {
	t, err := calendar.Parse(today)
	if err != nil {
		return "", err
	}
	switch r {
	case Week:
		return calendar.Format(t.AddDate(0, 0, -7)), nil
	case Month:
		return calendar.Format(t.AddDate(0, -1, 0)), nil
	case Year:
		return calendar.Format(t.AddDate(-1, 0, 0)), nil
	case All:
		return "", nil
	}
	return "", fmt.Errorf("unknown range %q", r)
}

// fillDays is how many trailing days get a zero-filled activity row.
func (r Range) fillDays() int {
	switch r {
	case Week:
		return 7
	case Month:
		return 30
	}
	return 0
}

func toMinutes(ms int64) int {
	return int(math.Round(float64(ms) / 60000))
}

// Summarize aggregates the logs dated inside r. Completed tasks are counted
// by their scheduled day.
func Summarize(tasks []store.Task, logs []store.WorkLog, r Range, today string) (Summary, error) {
	start, err := r.Start(today)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Range: r, Start: start}

	byID := make(map[string]store.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
		if t.IsCompleted && t.Date >= start && t.Date <= today {
			sum.TasksCompleted++
		}
	}

	perDay := map[string]int64{}
	perTag := map[string]int64{}
	for _, l := range logs {
		if l.Date < start || l.Date > today {
			continue
		}
		sum.TotalFocusMs += l.DurationMs
		perDay[l.Date] += l.DurationMs

		t, ok := byID[l.TaskID]
		if !ok || len(t.Tags) == 0 {
			perTag[Uncategorized] += l.DurationMs
			continue
		}
		for _, tag := range t.Tags {
			perTag[tag] += l.DurationMs
		}
	}

	if n := r.fillDays(); n > 0 {
		days, err := calendar.Between(calendar.MustAddDays(today, -(n-1)), today)
		if err != nil {
			return Summary{}, err
		}
		for _, d := range days {
			sum.Activity = append(sum.Activity, DayTotal{Date: d, Minutes: toMinutes(perDay[d])})
		}
	} else {
		for d, ms := range perDay {
			sum.Activity = append(sum.Activity, DayTotal{Date: d, Minutes: toMinutes(ms)})
		}
		sort.Slice(sum.Activity, func(i, j int) bool { return sum.Activity[i].Date < sum.Activity[j].Date })
	}

	for tag, ms := range perTag {
		sum.Tags = append(sum.Tags, TagTotal{Tag: tag, Minutes: toMinutes(ms)})
	}
	sort.Slice(sum.Tags, func(i, j int) bool {
		if sum.Tags[i].Minutes != sum.Tags[j].Minutes {
			return sum.Tags[i].Minutes > sum.Tags[j].Minutes
		}
		return sum.Tags[i].Tag < sum.Tags[j].Tag
	})
	return sum, nil
}

type Streak struct {
	Current int
	Best    int
}

// StreakOf counts runs of consecutive days with net positive focus time.
// The current streak is live only if its last day is today or yesterday.
func StreakOf(logs []store.WorkLog, today string) Streak {
	net := map[string]int64{}
	for _, l := range logs {
		net[l.Date] += l.DurationMs
	}
	var days []string
	for d, ms := range net {
		if ms > 0 && calendar.Valid(d) {
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		return Streak{}
	}
	sort.Strings(days)

	run, best := 1, 1
	for i := 1; i < len(days); i++ {
		if calendar.MustAddDays(days[i-1], 1) == days[i] {
			run++
		} else {
			run = 1
		}
		best = max(best, run)
	}

	last := days[len(days)-1]
	if last == today || calendar.MustAddDays(last, 1) == today {
		return Streak{Current: run, Best: best}
	}
	return Streak{Best: best}
}
