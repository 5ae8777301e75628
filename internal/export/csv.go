// Package export writes work logs to CSV or JSON files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sadopc/focussplit/internal/engine"
	"github.com/sadopc/focussplit/internal/store"
)

const unknownTask = "(deleted task)"

func ToCSV(logs []store.WorkLog, tasks map[string]store.Task, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"ID", "Date", "Task", "Tags", "Timestamp", "Duration (ms)", "Duration", "Earned (min)"}); err != nil {
		return err
	}

	for _, l := range logs {
		title, tags := unknownTask, ""
		if t, ok := tasks[l.TaskID]; ok {
			title = t.Title
			tags = strings.Join(t.Tags, " ")
		}

		row := []string{
			l.ID,
			l.Date,
			title,
			tags,
			l.Timestamp.Local().Format(time.RFC3339),
			strconv.FormatInt(l.DurationMs, 10),
			formatDuration(l.DurationMs),
			engine.FormatBank(l.EarnedMinutes),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// formatDuration renders milliseconds as HH:MM:SS. Undo entries are negative.
func formatDuration(ms int64) string {
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}
	secs := ms / 1000
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, h, m, s)
}
