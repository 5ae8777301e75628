package sprint

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/focussplit/internal/store"
)

var t0 = time.Date(2024, 5, 10, 9, 0, 0, 0, time.Local)

func at(d time.Duration) time.Time { return t0.Add(d) }

type countingBeeper struct{ n atomic.Int32 }

func (b *countingBeeper) Beep() error {
	b.n.Add(1)
	return nil
}

func newFixture(t *testing.T, bank float64, titles ...string) (*store.Store, []store.Task, store.Settings) {
	t.Helper()
	ctx := context.Background()
	s, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	settings := store.DefaultSettings()
	settings.TimeBankMinutes = bank
	require.NoError(t, s.PutSettings(ctx, settings))

	sess, _, err := s.EnsureSession(ctx, "2024-05-10", "Main Focus")
	require.NoError(t, err)
	var tasks []store.Task
	for _, title := range titles {
		task, err := s.AddTask(ctx, store.Task{Title: title, SessionID: sess.ID})
		require.NoError(t, err)
		tasks = append(tasks, task)
	}
	return s, tasks, settings
}

func bankOf(t *testing.T, s *store.Store) float64 {
	t.Helper()
	got, err := s.GetSettings(context.Background())
	require.NoError(t, err)
	return got.TimeBankMinutes
}

// ============================================================
// Rotation and commits
// ============================================================

func TestSplitRotatesRoundRobin(t *testing.T) {
	s, tasks, settings := newFixture(t, 0, "A", "B", "C")
	ctx := context.Background()
	sp := New(s, tasks, settings, t0)
	defer sp.Close()

	require.NoError(t, sp.Split(ctx, at(10*time.Minute)))
	assert.Equal(t, "B", sp.Status(at(10*time.Minute)).Task.Title)

	require.NoError(t, sp.Complete(ctx, at(20*time.Minute)))
	assert.Equal(t, "C", sp.Status(at(20*time.Minute)).Task.Title)

	require.NoError(t, sp.Split(ctx, at(25*time.Minute)))
	st := sp.Status(at(25 * time.Minute))
	assert.Equal(t, "A", st.Task.Title, "completed B is skipped")
	assert.Equal(t, 1, st.Done)

	a, err := s.GetTask(ctx, tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10*60*1000), a.TotalTimeMs)
	assert.False(t, a.IsCompleted)

	b, err := s.GetTask(ctx, tasks[1].ID)
	require.NoError(t, err)
	assert.True(t, b.IsCompleted)

	// 25 minutes of work at ratio 2.
	assert.Equal(t, 12.5, bankOf(t, s))
	assert.Equal(t, 12.5, st.Bank)
}

func TestCompletingEveryTaskEndsSprint(t *testing.T) {
	s, tasks, settings := newFixture(t, 0, "A", "B")
	ctx := context.Background()
	sp := New(s, tasks, settings, t0)
	defer sp.Close()

	require.NoError(t, sp.Complete(ctx, at(time.Minute)))
	require.NoError(t, sp.Complete(ctx, at(2*time.Minute)))
	assert.Equal(t, Complete, sp.Status(at(2*time.Minute)).State)
	assert.ErrorIs(t, sp.Split(ctx, at(3*time.Minute)), ErrNotRunning)
}

func TestNewWithNoOpenTasksIsComplete(t *testing.T) {
	s, tasks, settings := newFixture(t, 0, "A")
	tasks[0].IsCompleted = true
	sp := New(s, tasks, settings, t0)
	defer sp.Close()

	st := sp.Status(t0)
	assert.Equal(t, Complete, st.State)
	assert.False(t, st.HasTask)
}

func TestCommitOnDeletedTaskSkipsIt(t *testing.T) {
	s, tasks, settings := newFixture(t, 0, "A", "B")
	ctx := context.Background()
	sp := New(s, tasks, settings, t0)
	defer sp.Close()

	require.NoError(t, s.DeleteTask(ctx, tasks[0].ID))
	require.NoError(t, sp.Split(ctx, at(5*time.Minute)))

	st := sp.Status(at(5 * time.Minute))
	assert.Equal(t, "B", st.Task.Title)
	assert.False(t, st.CanUndo)
	assert.Zero(t, bankOf(t, s))
}

// ============================================================
// Undo
// ============================================================

func TestUndoRestoresTaskAndBank(t *testing.T) {
	s, tasks, settings := newFixture(t, 0, "A", "B")
	ctx := context.Background()
	sp := New(s, tasks, settings, t0)
	defer sp.Close()

	require.NoError(t, sp.Complete(ctx, at(20*time.Minute)))
	assert.Equal(t, 10.0, bankOf(t, s))

	ok, err := sp.Undo(ctx, at(21*time.Minute))
	require.NoError(t, err)
	require.True(t, ok)

	st := sp.Status(at(21 * time.Minute))
	assert.Equal(t, Running, st.State)
	assert.Equal(t, "A", st.Task.Title)
	assert.Zero(t, st.ElapsedMs)
	assert.False(t, st.CanUndo)
	assert.Zero(t, st.Bank)

	a, err := s.GetTask(ctx, tasks[0].ID)
	require.NoError(t, err)
	assert.False(t, a.IsCompleted)
	assert.Zero(t, a.TotalTimeMs)
	assert.Zero(t, bankOf(t, s))

	logs, err := s.WorkLogsForTask(ctx, tasks[0].ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	var sum int64
	for _, l := range logs {
		sum += l.DurationMs
	}
	assert.Zero(t, sum)

	ok, err = sp.Undo(ctx, at(22*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUndoRevivesCompletedSprint(t *testing.T) {
	s, tasks, settings := newFixture(t, 0, "A")
	ctx := context.Background()
	sp := New(s, tasks, settings, t0)
	defer sp.Close()

	require.NoError(t, sp.Complete(ctx, at(time.Minute)))
	require.Equal(t, Complete, sp.Status(at(time.Minute)).State)

	ok, err := sp.Undo(ctx, at(2*time.Minute))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Running, sp.Status(at(2*time.Minute)).State)
}

func TestUndoDuringFundedBreakRefunds(t *testing.T) {
	s, tasks, settings := newFixture(t, 0, "A", "B")
	ctx := context.Background()
	sp := New(s, tasks, settings, t0)
	defer sp.Close()

	require.NoError(t, sp.Split(ctx, at(40*time.Minute))) // earns 20
	started, err := sp.StartBreak(ctx, at(40*time.Minute), 10, true)
	require.NoError(t, err)
	require.True(t, started)
	assert.Equal(t, 10.0, bankOf(t, s))

	_, err = sp.Undo(ctx, at(42*time.Minute))
	require.NoError(t, err)

	// The 8 unused break minutes come back before the 20 earned are reversed.
	assert.Equal(t, 0.0, bankOf(t, s))
	st := sp.Status(at(42 * time.Minute))
	assert.Equal(t, Running, st.State)
	assert.Equal(t, "A", st.Task.Title)
}

// ============================================================
// Breaks
// ============================================================

func TestFundedBreakConservesBank(t *testing.T) {
	s, tasks, settings := newFixture(t, 12, "A")
	ctx := context.Background()
	sp := New(s, tasks, settings, t0)
	defer sp.Close()

	started, err := sp.StartBreak(ctx, t0, 10, true)
	require.NoError(t, err)
	require.True(t, started)
	assert.Equal(t, 2.0, bankOf(t, s))
	assert.True(t, sp.Status(at(time.Minute)).BreakFunded)
	assert.Equal(t, 6*time.Minute, sp.BreakTick(at(4*time.Minute)))

	require.NoError(t, sp.EndBreak(ctx, at(4*time.Minute)))
	assert.Equal(t, 8.0, bankOf(t, s))
	assert.Equal(t, 8.0, sp.Status(at(4*time.Minute)).Bank)
	assert.Equal(t, Running, sp.Status(at(4*time.Minute)).State)
}

func TestFundedBreakNeedsBalance(t *testing.T) {
	s, tasks, settings := newFixture(t, 5, "A")
	ctx := context.Background()
	sp := New(s, tasks, settings, t0)
	defer sp.Close()

	started, err := sp.StartBreak(ctx, t0, 20, true)
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, Running, sp.Status(t0).State)
	assert.Equal(t, 5.0, bankOf(t, s))
}

func TestBreakMenuFreezesElapsed(t *testing.T) {
	s, tasks, settings := newFixture(t, 0, "A")
	sp := New(s, tasks, settings, t0)
	defer sp.Close()

	require.NoError(t, sp.OpenBreakMenu(at(5*time.Minute)))
	assert.Equal(t, BreakMenuOpen, sp.Status(at(6*time.Minute)).State)
	assert.Equal(t, int64(5*60*1000), sp.Tick(at(7*time.Minute)))

	sp.CloseBreakMenu(at(8 * time.Minute))
	assert.Equal(t, int64(6*60*1000), sp.Tick(at(9*time.Minute)))
}

func TestEndBreakStartsFreshSegment(t *testing.T) {
	s, tasks, settings := newFixture(t, 0, "A")
	ctx := context.Background()
	sp := New(s, tasks, settings, t0)
	defer sp.Close()

	assert.Equal(t, int64(10*60*1000), sp.Tick(at(10*time.Minute)))
	started, err := sp.StartBreak(ctx, at(10*time.Minute), 5, false)
	require.NoError(t, err)
	require.True(t, started)
	require.NoError(t, sp.EndBreak(ctx, at(15*time.Minute)))

	assert.Zero(t, sp.Tick(at(15*time.Minute)))
	assert.Equal(t, int64(60*1000), sp.Tick(at(16*time.Minute)))
	assert.Zero(t, bankOf(t, s))
}

func TestSplitBeforeBreakKeepsWork(t *testing.T) {
	s, tasks, settings := newFixture(t, 0, "A")
	ctx := context.Background()
	sp := New(s, tasks, settings, t0)
	defer sp.Close()

	require.NoError(t, sp.Split(ctx, at(10*time.Minute)))
	_, err := sp.StartBreak(ctx, at(10*time.Minute), 5, false)
	require.NoError(t, err)
	require.NoError(t, sp.EndBreak(ctx, at(15*time.Minute)))

	a, err := s.GetTask(ctx, tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10*60*1000), a.TotalTimeMs)
	assert.Zero(t, sp.Tick(at(15*time.Minute)))
}

func TestBreaksDisabled(t *testing.T) {
	s, tasks, settings := newFixture(t, 10, "A")
	settings.EnableBreaks = false
	sp := New(s, tasks, settings, t0)
	defer sp.Close()

	assert.ErrorIs(t, sp.OpenBreakMenu(t0), ErrBreaksDisabled)
	_, err := sp.StartBreak(context.Background(), t0, 5, true)
	assert.ErrorIs(t, err, ErrBreaksDisabled)
}

func TestAlarmRingsUntilBreakEnds(t *testing.T) {
	s, tasks, settings := newFixture(t, 0, "A")
	ctx := context.Background()
	beeper := &countingBeeper{}
	sp := New(s, tasks, settings, t0, WithBeeper(beeper), WithAlarmInterval(5*time.Millisecond))
	defer sp.Close()

	_, err := sp.StartBreak(ctx, t0, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, sp.BreakTick(at(30*time.Second)))
	assert.Zero(t, beeper.n.Load())

	assert.Zero(t, sp.BreakTick(at(2*time.Minute)))
	assert.True(t, sp.Status(at(2*time.Minute)).AlarmRinging)
	require.Eventually(t, func() bool { return beeper.n.Load() >= 2 }, time.Second, time.Millisecond)

	require.NoError(t, sp.EndBreak(ctx, at(2*time.Minute)))
	assert.False(t, sp.Status(at(2*time.Minute)).AlarmRinging)
	rung := beeper.n.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, rung, beeper.n.Load())
}

// ============================================================
// Focus guard
// ============================================================

func TestFocusGuardPausesAndCountsDistraction(t *testing.T) {
	s, tasks, settings := newFixture(t, 0, "A")
	settings.EnforceFocusGuard = true
	sp := New(s, tasks, settings, t0)
	defer sp.Close()

	require.True(t, sp.FocusLost(at(10*time.Minute)))
	assert.Equal(t, Paused, sp.Status(at(10*time.Minute)).State)
	assert.Equal(t, int64(10*60*1000), sp.Tick(at(10*time.Minute+20*time.Second)))

	sp.FocusRegained(at(10*time.Minute + 30*time.Second))
	st := sp.Status(at(10*time.Minute + 30*time.Second))
	assert.Equal(t, Running, st.State)
	assert.Equal(t, int64(30*1000), st.DistractionMs)
	assert.Equal(t, int64(11*60*1000), sp.Tick(at(11*time.Minute+30*time.Second)))

	require.NoError(t, sp.Split(context.Background(), at(11*time.Minute+30*time.Second)))
	a, err := s.GetTask(context.Background(), tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30*1000), a.DistractionMs)
	assert.Equal(t, int64(11*60*1000), a.TotalTimeMs)
}

func TestUndoWhilePausedStaysPaused(t *testing.T) {
	s, tasks, settings := newFixture(t, 0, "A", "B")
	settings.EnforceFocusGuard = true
	ctx := context.Background()
	sp := New(s, tasks, settings, t0)
	defer sp.Close()

	require.NoError(t, sp.Split(ctx, at(10*time.Minute)))
	require.True(t, sp.FocusLost(at(12*time.Minute)))

	undone, err := sp.Undo(ctx, at(13*time.Minute))
	require.NoError(t, err)
	require.True(t, undone)
	st := sp.Status(at(13 * time.Minute))
	assert.Equal(t, Paused, st.State)
	assert.Equal(t, "A", st.Task.Title)

	sp.FocusRegained(at(20 * time.Minute))
	st = sp.Status(at(20 * time.Minute))
	assert.Equal(t, Running, st.State)
	assert.Equal(t, int64(7*60*1000), st.DistractionMs)
	assert.Zero(t, sp.Tick(at(20*time.Minute)))
	assert.Equal(t, int64(60*1000), sp.Tick(at(21*time.Minute)))
}

func TestFocusGuardIgnoredWithAllowedApps(t *testing.T) {
	s, tasks, settings := newFixture(t, 0, "A")
	settings.EnforceFocusGuard = true
	settings.AllowedApps = []string{"editor"}
	sp := New(s, tasks, settings, t0)
	defer sp.Close()

	assert.False(t, sp.FocusLost(at(time.Minute)))
	assert.Equal(t, Running, sp.Status(at(time.Minute)).State)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "on break", OnBreak.String())
	assert.Equal(t, "State(9)", State(9).String())
}
