package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/focussplit/internal/store"
)

func sampleData() ([]store.WorkLog, map[string]store.Task) {
	now := time.Now().UTC()

	logs := []store.WorkLog{
		{
			ID:            "log-1",
			TaskID:        "task-a",
			Date:          "2024-05-10",
			DurationMs:    3600 * 1000,
			Timestamp:     now.Add(-1 * time.Hour),
			EarnedMinutes: 30,
		},
		{
			ID:            "log-2",
			TaskID:        "task-b",
			Date:          "2024-05-10",
			DurationMs:    1800 * 1000,
			Timestamp:     now.Add(-30 * time.Minute),
			EarnedMinutes: 15,
		},
		{
			ID:            "log-3",
			TaskID:        "task-b",
			Date:          "2024-05-10",
			DurationMs:    -1800 * 1000, // undone
			Timestamp:     now,
			EarnedMinutes: -15,
		},
	}

	tasks := map[string]store.Task{
		"task-a": {ID: "task-a", Title: "Write report", Tags: []string{"work", "deep"}},
		"task-b": {ID: "task-b", Title: "Inbox"},
	}

	return logs, tasks
}

// ============================================================
// CSV
// ============================================================

func TestToCSV(t *testing.T) {
	logs, tasks := sampleData()
	path := filepath.Join(t.TempDir(), "test.csv")

	err := ToCSV(logs, tasks, path)
	if err != nil {
		t.Fatalf("ToCSV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	// header + 3 data rows
	if len(records) != 4 {
		t.Fatalf("expected 4 rows (1 header + 3 data), got %d", len(records))
	}

	header := records[0]
	expectedHeader := []string{"ID", "Date", "Task", "Tags", "Timestamp", "Duration (ms)", "Duration", "Earned (min)"}
	for i, h := range expectedHeader {
		if header[i] != h {
			t.Fatalf("header[%d] = %q, want %q", i, header[i], h)
		}
	}

	row := records[1]
	if row[0] != "log-1" {
		t.Fatalf("ID = %q, want log-1", row[0])
	}
	if row[2] != "Write report" {
		t.Fatalf("Task = %q, want Write report", row[2])
	}
	if row[3] != "work deep" {
		t.Fatalf("Tags = %q, want 'work deep'", row[3])
	}
	if row[5] != "3600000" {
		t.Fatalf("Duration (ms) = %q, want 3600000", row[5])
	}
	if row[6] != "01:00:00" {
		t.Fatalf("Duration = %q, want 01:00:00", row[6])
	}
	if row[7] != "30.00" {
		t.Fatalf("Earned = %q, want 30.00", row[7])
	}

	undo := records[3]
	if undo[6] != "-00:30:00" {
		t.Fatalf("undo duration = %q, want -00:30:00", undo[6])
	}
	if undo[7] != "-15.00" {
		t.Fatalf("undo earned = %q, want -15.00", undo[7])
	}
}

func TestToCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")

	err := ToCSV(nil, nil, path)
	if err != nil {
		t.Fatal(err)
	}

	f, _ := os.Open(path)
	defer f.Close()
	records, _ := csv.NewReader(f).ReadAll()
	if len(records) != 1 {
		t.Fatalf("expected 1 row (header only), got %d", len(records))
	}
}

func TestToCSVDeletedTask(t *testing.T) {
	logs := []store.WorkLog{
		{ID: "x", TaskID: "gone", Date: "2024-05-10", Timestamp: time.Now(), DurationMs: 60000},
	}
	path := filepath.Join(t.TempDir(), "unknown.csv")

	err := ToCSV(logs, map[string]store.Task{}, path)
	if err != nil {
		t.Fatal(err)
	}

	f, _ := os.Open(path)
	defer f.Close()
	records, _ := csv.NewReader(f).ReadAll()
	if records[1][2] != unknownTask {
		t.Fatalf("expected %q for missing task, got %q", unknownTask, records[1][2])
	}
}

func TestToCSVBadPath(t *testing.T) {
	err := ToCSV(nil, nil, "/nonexistent/dir/file.csv")
	if err == nil {
		t.Fatal("expected error for bad path")
	}
}

func TestToCSVSpecialCharacters(t *testing.T) {
	logs := []store.WorkLog{
		{ID: "x", TaskID: "t", Date: "2024-05-10", Timestamp: time.Now(), DurationMs: 60000},
	}
	tasks := map[string]store.Task{
		"t": {ID: "t", Title: `Task "Special", with commas`},
	}
	path := filepath.Join(t.TempDir(), "special.csv")

	if err := ToCSV(logs, tasks, path); err != nil {
		t.Fatal(err)
	}

	f, _ := os.Open(path)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("CSV should be valid even with special chars: %v", err)
	}
	if records[1][2] != `Task "Special", with commas` {
		t.Fatalf("task title mangled: %q", records[1][2])
	}
}

// ============================================================
// JSON
// ============================================================

func TestToJSON(t *testing.T) {
	logs, tasks := sampleData()
	path := filepath.Join(t.TempDir(), "test.json")

	err := ToJSON(logs, tasks, path)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var result jsonExport
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if result.Count != 3 {
		t.Fatalf("count = %d, want 3", result.Count)
	}
	if result.TotalMs != 3600*1000 {
		t.Fatalf("total_ms = %d, want 3600000", result.TotalMs)
	}
	if result.ExportedAt == "" {
		t.Fatal("exported_at should not be empty")
	}

	e := result.WorkLogs[0]
	if e.Task != "Write report" {
		t.Fatalf("Task = %q, want Write report", e.Task)
	}
	if len(e.Tags) != 2 {
		t.Fatalf("Tags = %v, want 2 tags", e.Tags)
	}
	if e.Duration != "01:00:00" {
		t.Fatalf("Duration = %q, want 01:00:00", e.Duration)
	}
	if e.EarnedMinutes != 30 {
		t.Fatalf("EarnedMinutes = %v, want 30", e.EarnedMinutes)
	}
	if result.WorkLogs[1].Tags != nil {
		t.Fatalf("untagged task should omit tags, got %v", result.WorkLogs[1].Tags)
	}
}

func TestToJSONEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")

	if err := ToJSON(nil, nil, path); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	var result jsonExport
	json.Unmarshal(data, &result)

	if result.Count != 0 {
		t.Fatalf("count = %d, want 0", result.Count)
	}
	if result.WorkLogs != nil {
		t.Fatal("work_logs should be nil/null for empty export")
	}
}

func TestToJSONBadPath(t *testing.T) {
	err := ToJSON(nil, nil, "/nonexistent/dir/file.json")
	if err == nil {
		t.Fatal("expected error for bad path")
	}
}

func TestToJSONPrettyPrinted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pretty.json")
	ToJSON(nil, nil, path)

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "\n  ") {
		t.Fatal("JSON should be pretty-printed and indented")
	}
}

func TestToJSONValidTimestamps(t *testing.T) {
	logs, tasks := sampleData()
	path := filepath.Join(t.TempDir(), "ts.json")
	ToJSON(logs, tasks, path)

	data, _ := os.ReadFile(path)
	var result jsonExport
	json.Unmarshal(data, &result)

	if _, err := time.Parse(time.RFC3339, result.ExportedAt); err != nil {
		t.Fatalf("exported_at is not valid RFC3339: %q", result.ExportedAt)
	}
	for _, e := range result.WorkLogs {
		if _, err := time.Parse(time.RFC3339, e.Timestamp); err != nil {
			t.Fatalf("timestamp is not valid RFC3339: %q", e.Timestamp)
		}
	}
}

// ============================================================
// formatDuration (internal helper)
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "00:00:00"},
		{999, "00:00:00"},
		{1000, "00:00:01"},
		{60 * 1000, "00:01:00"},
		{3661 * 1000, "01:01:01"},
		{90061 * 1000, "25:01:01"},
		{-90 * 1000, "-00:01:30"},
	}

	for _, tt := range tests {
		got := formatDuration(tt.ms)
		if got != tt.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}
