package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/focussplit/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addTask(t *testing.T, s *store.Store, date string, task store.Task) store.Task {
	t.Helper()
	ctx := context.Background()
	sess, _, err := s.EnsureSession(ctx, date, "Main Focus")
	require.NoError(t, err)
	task.SessionID = sess.ID
	added, err := s.AddTask(ctx, task)
	require.NoError(t, err)
	return added
}

func snapshot(t *testing.T, s *store.Store) ([]store.Task, []store.Session, []store.WorkLog, store.ArchiveStats) {
	t.Helper()
	ctx := context.Background()
	tasks, err := s.ListTasks(ctx)
	require.NoError(t, err)
	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	logs, err := s.ListWorkLogs(ctx)
	require.NoError(t, err)
	archive, err := s.GetArchive(ctx)
	require.NoError(t, err)
	return tasks, sessions, logs, archive
}

// ============================================================
// Perform
// ============================================================

func TestPerformCreatesTodaySession(t *testing.T) {
	s := newTestStore(t)
	r := New(s, 180)

	rep, err := r.Perform(context.Background(), "2024-05-10")
	require.NoError(t, err)
	assert.True(t, rep.SessionCreated)

	sessions, err := s.SessionsForDate(context.Background(), "2024-05-10")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "Main Focus", sessions[0].Name)
}

func TestPerformRollsOverUnfinishedTasks(t *testing.T) {
	s := newTestStore(t)
	r := New(s, 180)
	ctx := context.Background()

	stale := addTask(t, s, "2024-05-08", store.Task{Title: "stale", RolloverCount: 2})
	done := addTask(t, s, "2024-05-08", store.Task{Title: "done", IsCompleted: true})
	carried := addTask(t, s, "2024-05-08", store.Task{Title: "carried", WasRolledOver: true})
	future := addTask(t, s, "2024-05-11", store.Task{Title: "future"})

	rep, err := r.Perform(ctx, "2024-05-10")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.RolledOver)

	today, err := s.SessionsForDate(ctx, "2024-05-10")
	require.NoError(t, err)
	require.Len(t, today, 1)

	got, _ := s.GetTask(ctx, stale.ID)
	assert.Equal(t, "2024-05-10", got.Date)
	assert.Equal(t, today[0].ID, got.SessionID)
	assert.True(t, got.IsRollover)
	assert.Equal(t, 2, got.RolloverCount, "automatic rollover leaves the count alone")

	for _, id := range []string{done.ID, carried.ID} {
		got, _ := s.GetTask(ctx, id)
		assert.Equal(t, "2024-05-08", got.Date)
	}
	got, _ = s.GetTask(ctx, future.ID)
	assert.Equal(t, "2024-05-11", got.Date)
}

func TestPerformIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	r := New(s, 30)
	ctx := context.Background()

	addTask(t, s, "2024-05-08", store.Task{Title: "stale"})
	old := addTask(t, s, "2024-01-01", store.Task{Title: "ancient", IsCompleted: true})
	_, err := s.AddWorkLog(ctx, store.WorkLog{TaskID: old.ID, Date: "2024-01-01", DurationMs: 60000})
	require.NoError(t, err)

	_, err = r.Perform(ctx, "2024-05-10")
	require.NoError(t, err)
	tasks1, sessions1, logs1, archive1 := snapshot(t, s)

	rep, err := r.Perform(ctx, "2024-05-10")
	require.NoError(t, err)
	assert.False(t, rep.SessionCreated)
	assert.Zero(t, rep.RolledOver)
	assert.True(t, rep.Prune.Empty())

	tasks2, sessions2, logs2, archive2 := snapshot(t, s)
	assert.Equal(t, tasks1, tasks2)
	assert.Equal(t, sessions1, sessions2)
	assert.Equal(t, logs1, logs2)
	assert.Equal(t, archive1, archive2)
}

func TestPerformRejectsBadDay(t *testing.T) {
	r := New(newTestStore(t), 180)
	_, err := r.Perform(context.Background(), "10/05/2024")
	assert.Error(t, err)
}

// ============================================================
// Prune
// ============================================================

func TestPruneArchivesOldHistory(t *testing.T) {
	s := newTestStore(t)
	r := New(s, 180)
	ctx := context.Background()

	old := addTask(t, s, "2023-06-01", store.Task{Title: "old", IsCompleted: true})
	for _, mins := range []int64{10, 15, 20} {
		_, err := s.AddWorkLog(ctx, store.WorkLog{
			TaskID: old.ID, Date: "2023-06-01", DurationMs: mins * 60000, EarnedMinutes: 0.5,
		})
		require.NoError(t, err)
	}
	recent := addTask(t, s, "2024-05-01", store.Task{Title: "recent"})
	_, err := s.AddWorkLog(ctx, store.WorkLog{TaskID: recent.ID, Date: "2024-05-01", DurationMs: 1000})
	require.NoError(t, err)

	rep, err := r.Prune(ctx, "2024-05-10", 180)
	require.NoError(t, err)
	assert.Equal(t, "2023-11-12", rep.Cutoff)
	assert.Equal(t, 3, rep.WorkLogs)
	assert.Equal(t, 1, rep.Tasks)
	assert.Equal(t, 1, rep.Sessions)

	archive, err := s.GetArchive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(45*60000), archive.TotalFocusMs)
	assert.Equal(t, 1, archive.TotalTasksCompleted)
	assert.Equal(t, 1.5, archive.TotalEarnedMinutes)
	assert.Equal(t, "2024-05-10", archive.LastPrunedDate)

	tasks, _, logs, _ := snapshot(t, s)
	require.Len(t, tasks, 1)
	assert.Equal(t, recent.ID, tasks[0].ID)
	require.Len(t, logs, 1)

	again, err := r.Prune(ctx, "2024-05-11", 180)
	require.NoError(t, err)
	assert.True(t, again.Empty())
	archive2, _ := s.GetArchive(ctx)
	assert.Equal(t, archive, archive2, "a repeat prune changes nothing")
}

func TestPruneCountsLogsRemovedByCascade(t *testing.T) {
	s := newTestStore(t)
	r := New(s, 180)
	ctx := context.Background()

	old := addTask(t, s, "2023-01-01", store.Task{Title: "old"})
	_, err := s.AddWorkLog(ctx, store.WorkLog{TaskID: old.ID, Date: "2024-05-01", DurationMs: 7000})
	require.NoError(t, err)

	rep, err := r.Prune(ctx, "2024-05-10", 180)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), rep.FocusMs)

	archive, _ := s.GetArchive(ctx)
	assert.Equal(t, int64(7000), archive.TotalFocusMs)
}

func TestPruneNothingIsNoop(t *testing.T) {
	s := newTestStore(t)
	r := New(s, 180)
	rep, err := r.Prune(context.Background(), "2024-05-10", 180)
	require.NoError(t, err)
	assert.True(t, rep.Empty())

	archive, _ := s.GetArchive(context.Background())
	assert.Equal(t, store.ArchiveStats{}, archive)
}

// ============================================================
// Runner
// ============================================================

func TestRunnerStopsOnCancel(t *testing.T) {
	s := newTestStore(t)
	rn := NewRunner(New(s, 180), 5*time.Millisecond)
	rn.today = func() string { return "2024-05-10" }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rn.Run(ctx) }()

	require.Eventually(t, func() bool {
		sessions, err := s.SessionsForDate(context.Background(), "2024-05-10")
		return err == nil && len(sessions) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}

	sessions, _ := s.SessionsForDate(context.Background(), "2024-05-10")
	assert.Len(t, sessions, 1, "repeated passes never duplicate the default session")
}

func TestRunnerReportsPasses(t *testing.T) {
	s := newTestStore(t)
	rn := NewRunner(New(s, 180), time.Hour)
	rn.today = func() string { return "2024-05-10" }

	reports := make(chan Report, 1)
	rn.OnPass(func(r Report) {
		select {
		case reports <- r:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rn.Run(ctx)

	select {
	case r := <-reports:
		assert.Equal(t, "2024-05-10", r.Today)
		assert.True(t, r.SessionCreated)
	case <-time.After(time.Second):
		t.Fatal("no pass reported")
	}
}
