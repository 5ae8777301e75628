package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/focussplit/internal/store"
)

type jsonExport struct {
	ExportedAt string      `json:"exported_at"`
	Count      int         `json:"count"`
	TotalMs    int64       `json:"total_ms"`
	WorkLogs   []jsonEntry `json:"work_logs"`
}

type jsonEntry struct {
	ID            string   `json:"id"`
	Date          string   `json:"date"`
	TaskID        string   `json:"task_id"`
	Task          string   `json:"task"`
	Tags          []string `json:"tags,omitempty"`
	Timestamp     string   `json:"timestamp"`
	DurationMs    int64    `json:"duration_ms"`
	Duration      string   `json:"duration"`
	EarnedMinutes float64  `json:"earned_minutes"`
}

func ToJSON(logs []store.WorkLog, tasks map[string]store.Task, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(logs),
	}

	for _, l := range logs {
		title := unknownTask
		var tags []string
		if t, ok := tasks[l.TaskID]; ok {
			title = t.Title
			tags = t.Tags
		}
		export.TotalMs += l.DurationMs

		export.WorkLogs = append(export.WorkLogs, jsonEntry{
			ID:            l.ID,
			Date:          l.Date,
			TaskID:        l.TaskID,
			Task:          title,
			Tags:          tags,
			Timestamp:     l.Timestamp.Local().Format(time.RFC3339),
			DurationMs:    l.DurationMs,
			Duration:      formatDuration(l.DurationMs),
			EarnedMinutes: l.EarnedMinutes,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
