package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/focussplit/internal/maintenance"
	"github.com/sadopc/focussplit/internal/planner"
	"github.com/sadopc/focussplit/internal/store"
)

const testDay = "2024-05-10"

func setupTestContext(t *testing.T) (*Context, *bytes.Buffer) {
	t.Helper()
	s, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	var out bytes.Buffer
	return &Context{
		Context:       context.Background(),
		Store:         s,
		Planner:       planner.New(s),
		Routine:       maintenance.New(s, 30),
		RetentionDays: 30,
		Out:           &out,
		Today:         func() string { return testDay },
	}, &out
}

func addTask(t *testing.T, ctx *Context, title string) store.Task {
	t.Helper()
	require.NoError(t, (&TaskAddCmd{Title: title}).Run(ctx))
	tasks, err := ctx.Store.ListTasks(ctx)
	require.NoError(t, err)
	for _, tk := range tasks {
		if strings.HasPrefix(title, tk.Title) {
			return tk
		}
	}
	t.Fatalf("task %q not found", title)
	return store.Task{}
}

// ============================================================
// Tasks
// ============================================================

func TestTaskAddCmd(t *testing.T) {
	ctx, out := setupTestContext(t)

	cmd := &TaskAddCmd{Title: "write report #Work", Estimate: 25}
	require.NoError(t, cmd.Validate())
	require.NoError(t, cmd.Run(ctx))
	assert.Contains(t, out.String(), "Added task: write report")
	assert.Contains(t, out.String(), "Main Focus")

	tasks, err := ctx.Store.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, testDay, tasks[0].Date)
	assert.Equal(t, []string{"work"}, tasks[0].Tags)
	require.NotNil(t, tasks[0].EstimatedMinutes)
	assert.Equal(t, 25, *tasks[0].EstimatedMinutes)
}

func TestTaskAddCmdValidation(t *testing.T) {
	ctx, _ := setupTestContext(t)

	assert.Error(t, (&TaskAddCmd{Title: "x", Estimate: -1}).Validate())
	assert.Error(t, (&TaskAddCmd{Title: "x", Date: "10/05/2024"}).Run(ctx))
	assert.Error(t, (&TaskAddCmd{Title: "x", Session: "missing"}).Run(ctx))
	assert.ErrorIs(t, (&TaskAddCmd{Title: "   "}).Run(ctx), planner.ErrEmptyTitle)
}

func TestTaskAddCmdNamedSession(t *testing.T) {
	ctx, _ := setupTestContext(t)
	require.NoError(t, (&SessionNewCmd{}).Run(ctx))
	require.NoError(t, (&TaskAddCmd{Title: "afternoon", Session: "session 1"}).Run(ctx))

	sessions, err := ctx.Store.SessionsForDate(ctx, testDay)
	require.NoError(t, err)
	tasks, _ := ctx.Store.ListTasks(ctx)
	require.Len(t, tasks, 1)
	for _, s := range sessions {
		if s.ID == tasks[0].SessionID {
			assert.Equal(t, "Session 1", s.Name)
		}
	}
}

func TestTaskListCmd(t *testing.T) {
	ctx, out := setupTestContext(t)
	addTask(t, ctx, "alpha")
	beta := addTask(t, ctx, "beta #deep")
	require.NoError(t, (&TaskDoneCmd{ID: beta.ID}).Run(ctx))
	out.Reset()

	require.NoError(t, (&TaskListCmd{}).Run(ctx))
	text := out.String()
	assert.Contains(t, text, "Main Focus")
	assert.Contains(t, text, "[x] "+shortID(beta.ID)+"  beta #deep")
	assert.Less(t, strings.Index(text, "alpha"), strings.Index(text, "beta"), "open tasks come first")

	out.Reset()
	require.NoError(t, (&TaskListCmd{Open: true}).Run(ctx))
	assert.NotContains(t, out.String(), "beta")
}

func TestTaskListCmdEmptyDay(t *testing.T) {
	ctx, out := setupTestContext(t)
	require.NoError(t, (&TaskListCmd{Date: "2024-01-01"}).Run(ctx))
	assert.Contains(t, out.String(), "No sessions on 2024-01-01")
}

func TestTaskDoneCmd(t *testing.T) {
	ctx, out := setupTestContext(t)
	task := addTask(t, ctx, "finish me")

	require.NoError(t, (&TaskDoneCmd{ID: task.ID[:6]}).Run(ctx))
	got, err := ctx.Store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	assert.Equal(t, 100, got.Progress)

	require.NoError(t, (&TaskDoneCmd{ID: task.ID}).Run(ctx))
	assert.Contains(t, out.String(), "Already done")

	assert.Error(t, (&TaskDoneCmd{ID: "zzzz-no-such"}).Run(ctx))
}

func TestTaskRmCmd(t *testing.T) {
	ctx, _ := setupTestContext(t)
	task := addTask(t, ctx, "doomed")
	_, err := ctx.Store.AddWorkLog(ctx, store.WorkLog{TaskID: task.ID, Date: testDay, DurationMs: 1000})
	require.NoError(t, err)

	require.NoError(t, (&TaskRmCmd{ID: task.ID}).Run(ctx))
	_, err = ctx.Store.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	logs, _ := ctx.Store.ListWorkLogs(ctx)
	assert.Empty(t, logs)
}

// ============================================================
// Sessions
// ============================================================

func TestSessionCommands(t *testing.T) {
	ctx, out := setupTestContext(t)

	require.NoError(t, (&SessionNewCmd{}).Run(ctx))
	require.NoError(t, (&SessionNewCmd{}).Run(ctx))
	sessions, err := ctx.Store.SessionsForDate(ctx, testDay)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	out.Reset()
	require.NoError(t, (&SessionListCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "Session 1")
	assert.Contains(t, out.String(), "Session 2")

	target := sessions[0]
	require.NoError(t, (&SessionRenameCmd{ID: target.ID, Name: "Deep Work"}).Run(ctx))
	got, err := ctx.Store.GetSession(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, "Deep Work", got.Name)

	assert.Error(t, (&SessionRenameCmd{ID: target.ID, Name: "  "}).Validate())

	require.NoError(t, (&SessionRmCmd{ID: target.ID}).Run(ctx))
	sessions, _ = ctx.Store.SessionsForDate(ctx, testDay)
	assert.Len(t, sessions, 1)
}

// ============================================================
// Maintenance
// ============================================================

func TestMaintainCmd(t *testing.T) {
	ctx, out := setupTestContext(t)
	require.NoError(t, (&TaskAddCmd{Title: "stale", Date: "2024-05-08"}).Run(ctx))
	out.Reset()

	require.NoError(t, (&MaintainCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "Maintenance for "+testDay)
	assert.Contains(t, out.String(), "rolled over 1 unfinished task(s)")

	tasks, _ := ctx.Store.ListTasks(ctx)
	require.Len(t, tasks, 1)
	assert.Equal(t, testDay, tasks[0].Date)
	assert.True(t, tasks[0].IsRollover)

	assert.Error(t, (&MaintainCmd{Date: "tomorrow"}).Run(ctx))
}

func TestPruneCmd(t *testing.T) {
	ctx, out := setupTestContext(t)
	require.NoError(t, (&TaskAddCmd{Title: "old", Date: "2024-01-01"}).Run(ctx))
	out.Reset()

	require.NoError(t, (&PruneCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "before 2024-04-10")
	tasks, _ := ctx.Store.ListTasks(ctx)
	assert.Empty(t, tasks)

	out.Reset()
	require.NoError(t, (&PruneCmd{Days: 7}).Run(ctx))
	assert.Contains(t, out.String(), "Nothing older than 2024-05-03")
}

func TestResetCmdNeedsConfirmation(t *testing.T) {
	ctx, _ := setupTestContext(t)
	addTask(t, ctx, "keep me")

	assert.Error(t, (&ResetCmd{}).Run(ctx))
	tasks, _ := ctx.Store.ListTasks(ctx)
	assert.Len(t, tasks, 1)

	require.NoError(t, (&ResetCmd{Yes: true}).Run(ctx))
	tasks, _ = ctx.Store.ListTasks(ctx)
	assert.Empty(t, tasks)
}

const legacyBlob = `{
	"version": 5,
	"sessions": [{"id": "s1", "name": "Main Focus", "date": "2024-04-30", "createdAt": 1714460000000}],
	"tasks": [
		{"id": "t1", "title": "alpha", "isCompleted": true, "totalTime": 120000, "date": "2024-04-30", "sessionId": "s1"},
		{"id": "t2", "title": "orphan", "isCompleted": false, "totalTime": 0, "date": "2024-04-30", "sessionId": "gone"}
	],
	"workLogs": [
		{"id": "l1", "taskId": "t1", "date": "2024-04-30", "duration": 120000, "timestamp": 1714460100000, "earnedMinutes": 1}
	],
	"settings": {"timeBankMinutes": 4, "earningRatio": 3}
}`

func TestImportCmd(t *testing.T) {
	ctx, out := setupTestContext(t)
	path := filepath.Join(t.TempDir(), "legacy.json")
	require.NoError(t, os.WriteFile(path, []byte(legacyBlob), 0o644))

	require.NoError(t, (&ImportCmd{File: path}).Run(ctx))
	assert.Contains(t, out.String(), "Imported 1 session(s), 1 task(s), 1 work log(s)")
	assert.Contains(t, out.String(), "Dropped 1 orphaned task(s)")

	out.Reset()
	require.NoError(t, (&ImportCmd{File: path}).Run(ctx))
	assert.Contains(t, out.String(), "Skipped")
}

// ============================================================
// Stats, bank, export
// ============================================================

func TestStatsCmd(t *testing.T) {
	ctx, out := setupTestContext(t)
	task := addTask(t, ctx, "deep work #writing")
	_, err := ctx.Store.AddWorkLog(ctx, store.WorkLog{TaskID: task.ID, Date: testDay, DurationMs: 90 * 60000})
	require.NoError(t, err)

	require.NoError(t, (&StatsCmd{Range: "week"}).Run(ctx))
	text := out.String()
	assert.Contains(t, text, "Focus time:      1h30m")
	assert.Contains(t, text, "Streak:          1 day(s), best 1")
	assert.Contains(t, text, "#writing")

	assert.Error(t, (&StatsCmd{Range: "decade"}).Run(ctx))
}

func TestBankCmd(t *testing.T) {
	ctx, out := setupTestContext(t)
	_, err := ctx.Store.DepositBank(ctx, 12.5)
	require.NoError(t, err)

	require.NoError(t, (&BankCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "Time bank: 12.50 min")
	assert.Contains(t, out.String(), "Earning ratio: 2:1 (Balanced)")
}

func TestExportCmd(t *testing.T) {
	ctx, out := setupTestContext(t)
	task := addTask(t, ctx, "exported")
	_, err := ctx.Store.AddWorkLog(ctx, store.WorkLog{TaskID: task.ID, Date: testDay, DurationMs: 60000})
	require.NoError(t, err)

	dir := t.TempDir()
	for _, format := range []string{"csv", "json"} {
		path := filepath.Join(dir, "out."+format)
		require.NoError(t, (&ExportCmd{Format: format, Path: path}).Run(ctx))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "exported")
	}
	assert.Contains(t, out.String(), "Exported 1 work log(s)")
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "0m", formatMinutes(0))
	assert.Equal(t, "45m", formatMinutes(45*60000))
	assert.Equal(t, "2h05m", formatMinutes(125*60000))
}

func TestProgramExitOnSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	killed := fmt.Errorf("%w: %w", tea.ErrProgramKilled, context.Canceled)

	assert.ErrorIs(t, programExit(ctx, killed), tea.ErrProgramKilled, "a kill with a live context is an error")
	cancel()
	assert.NoError(t, programExit(ctx, killed))
	assert.NoError(t, programExit(ctx, nil))

	other := errors.New("render failed")
	assert.ErrorIs(t, programExit(ctx, other), other)
}
