// Package sprint runs a focus sprint over an ordered list of tasks. It
// turns elapsed time into committed work logs and bank minutes, handles
// focus-loss pauses, funded and free breaks, and a stack of undoable
// commits.
//
// All methods take the current time explicitly so callers drive the clock.
package sprint

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sadopc/focussplit/internal/calendar"
	"github.com/sadopc/focussplit/internal/config"
	"github.com/sadopc/focussplit/internal/engine"
	"github.com/sadopc/focussplit/internal/logger"
	"github.com/sadopc/focussplit/internal/store"
)

type State int

const (
	Running State = iota
	Paused
	OnBreak
	BreakMenuOpen
	Complete
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case OnBreak:
		return "on break"
	case BreakMenuOpen:
		return "break menu"
	case Complete:
		return "complete"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	ErrNotRunning     = errors.New("sprint is not running")
	ErrBreaksDisabled = errors.New("breaks are disabled")
)

// Ledger persists sprint results. *store.Store implements it.
type Ledger interface {
	CommitSegment(ctx context.Context, seg store.Segment) (store.WorkLog, error)
	UndoWorkLog(ctx context.Context, r store.Reversal) error
	WithdrawBank(ctx context.Context, minutes float64) (bool, error)
	DepositBank(ctx context.Context, minutes float64) (float64, error)
}

type Option func(*Sprint)

// WithBeeper sets the sound played when a break runs out. Without one the
// break simply ends silently.
func WithBeeper(b Beeper) Option {
	return func(s *Sprint) { s.beeper = b }
}

// WithAlarmInterval overrides the gap between alarm beeps.
func WithAlarmInterval(d time.Duration) Option {
	return func(s *Sprint) {
		if d > 0 {
			s.alarmEvery = d
		}
	}
}

type commit struct {
	index     int
	taskID    string
	date      string
	durMs     int64
	earned    float64
	completed bool
}

type Sprint struct {
	mu       sync.Mutex
	ledger   Ledger
	settings store.Settings
	tasks    []store.Task
	current  int
	state    State
	bank     float64

	segmentStart  time.Time
	elapsedMs     int64
	pausedAt      time.Time
	distractionMs int64

	breakEnd    time.Time
	breakFunded bool

	undo []commit

	beeper     Beeper
	alarmEvery time.Duration
	alarm      *alarm
}

// New starts a sprint at now over tasks, in the given order. Completed tasks
// are skipped; a list without open tasks starts out Complete.
func New(ledger Ledger, tasks []store.Task, settings store.Settings, now time.Time, opts ...Option) *Sprint {
	s := &Sprint{
		ledger:       ledger,
		settings:     settings,
		tasks:        append([]store.Task(nil), tasks...),
		bank:         settings.TimeBankMinutes,
		segmentStart: now,
		alarmEvery:   config.AlarmEvery,
	}
	for _, o := range opts {
		o(s)
	}
	s.current = s.nextOpen(-1)
	if s.current < 0 {
		s.state = Complete
	}
	return s
}

// nextOpen finds the first unfinished task after from in list order,
// wrapping around. It may return from itself.
func (s *Sprint) nextOpen(from int) int {
	n := len(s.tasks)
	for i := 1; i <= n; i++ {
		j := (from + i) % n
		if !s.tasks[j].IsCompleted {
			return j
		}
	}
	return -1
}

func (s *Sprint) guardActive() bool {
	return s.settings.EnforceFocusGuard && len(s.settings.AllowedApps) == 0
}

// Tick advances the clock while running and returns the segment's elapsed
// milliseconds.
func (s *Sprint) Tick(now time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick(now)
	return s.elapsedMs
}

func (s *Sprint) tick(now time.Time) {
	if s.state == Running {
		s.elapsedMs = max(0, now.Sub(s.segmentStart).Milliseconds())
	}
}

// FocusLost pauses the sprint when the focus guard is enforced with no
// allowed apps. It reports whether the sprint paused.
func (s *Sprint) FocusLost(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running || !s.guardActive() {
		return false
	}
	s.tick(now)
	s.pausedAt = now
	s.state = Paused
	return true
}

// FocusRegained resumes a paused sprint. The time away counts as
// distraction and is excluded from elapsed.
func (s *Sprint) FocusRegained(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Paused {
		return
	}
	gap := max(0, now.Sub(s.pausedAt))
	s.distractionMs += gap.Milliseconds()
	s.segmentStart = s.segmentStart.Add(gap)
	s.state = Running
	s.tick(now)
}

// Split commits the elapsed time to the current task and rotates to the
// next unfinished task.
func (s *Sprint) Split(ctx context.Context, now time.Time) error {
	return s.commit(ctx, now, false)
}

// Complete commits the elapsed time and marks the current task done. The
// sprint completes once no unfinished tasks remain.
func (s *Sprint) Complete(ctx context.Context, now time.Time) error {
	return s.commit(ctx, now, true)
}

func (s *Sprint) commit(ctx context.Context, now time.Time, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running {
		return ErrNotRunning
	}
	s.tick(now)

	task := s.tasks[s.current]
	c := commit{
		index:     s.current,
		taskID:    task.ID,
		date:      calendar.Format(now),
		durMs:     s.elapsedMs,
		earned:    engine.CalculateEarnings(s.elapsedMs, s.settings.EarningRatio),
		completed: completed,
	}
	_, err := s.ledger.CommitSegment(ctx, store.Segment{
		TaskID:        c.taskID,
		Date:          c.date,
		DurationMs:    c.durMs,
		DistractionMs: s.distractionMs,
		Completed:     completed,
		EarnedMinutes: c.earned,
		At:            now,
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		logger.Warn("sprint task disappeared, skipping it", "task", task.ID)
		s.tasks[s.current].IsCompleted = true
		s.resetSegment(now)
		s.advance()
		return nil
	case err != nil:
		return fmt.Errorf("commit segment: %w", err)
	}

	s.undo = append(s.undo, c)
	s.bank = engine.RoundMinutes(s.bank + c.earned)
	s.tasks[s.current].TotalTimeMs += c.durMs
	if completed {
		s.tasks[s.current].IsCompleted = true
	}
	s.resetSegment(now)
	s.advance()
	return nil
}

func (s *Sprint) resetSegment(now time.Time) {
	s.segmentStart = now
	s.elapsedMs = 0
	s.distractionMs = 0
}

func (s *Sprint) advance() {
	next := s.nextOpen(s.current)
	if next < 0 {
		s.state = Complete
		return
	}
	s.current = next
}

// Undo reverses the most recent commit, reselects its task and cancels any
// break in progress. It reports false when there is nothing to undo.
func (s *Sprint) Undo(ctx context.Context, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.undo) == 0 {
		return false, nil
	}
	c := s.undo[len(s.undo)-1]

	// Settle the break first so its refund is netted against the reversal.
	if s.state == OnBreak {
		if err := s.finishBreak(ctx, now); err != nil {
			return false, err
		}
	}
	paused := s.state == Paused

	err := s.ledger.UndoWorkLog(ctx, store.Reversal{
		TaskID:        c.taskID,
		Date:          c.date,
		DurationMs:    c.durMs,
		EarnedMinutes: c.earned,
		At:            now,
	})
	if err != nil {
		return false, fmt.Errorf("undo commit: %w", err)
	}
	s.undo = s.undo[:len(s.undo)-1]
	s.bank = max(0, engine.RoundMinutes(s.bank-c.earned))

	t := &s.tasks[c.index]
	t.IsCompleted = false
	t.TotalTimeMs = max(0, t.TotalTimeMs-c.durMs)
	s.current = c.index
	s.resetSegment(now)
	s.state = Running
	if paused {
		// Still away: time until focus returns is distraction.
		s.pausedAt = now
		s.state = Paused
	}
	return true, nil
}

// OpenBreakMenu freezes the main clock while the user picks a break.
func (s *Sprint) OpenBreakMenu(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.settings.EnableBreaks {
		return ErrBreaksDisabled
	}
	if s.state != Running {
		return ErrNotRunning
	}
	s.tick(now)
	s.state = BreakMenuOpen
	return nil
}

// CloseBreakMenu resumes the sprint without taking a break.
func (s *Sprint) CloseBreakMenu(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != BreakMenuOpen {
		return
	}
	s.resume(now)
}

// resume restarts the clock so that elapsed continues from where it froze.
func (s *Sprint) resume(now time.Time) {
	s.segmentStart = now.Add(-time.Duration(s.elapsedMs) * time.Millisecond)
	s.state = Running
}

// StartBreak begins a break of the given minutes. A funded break is paid
// from the bank first; it reports false without changing anything when the
// balance is too small.
func (s *Sprint) StartBreak(ctx context.Context, now time.Time, minutes int, funded bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.settings.EnableBreaks {
		return false, ErrBreaksDisabled
	}
	if s.state != Running && s.state != BreakMenuOpen {
		return false, ErrNotRunning
	}
	if minutes <= 0 {
		return false, nil
	}
	if funded {
		ok, err := s.ledger.WithdrawBank(ctx, float64(minutes))
		if err != nil {
			return false, fmt.Errorf("withdraw break: %w", err)
		}
		if !ok {
			return false, nil
		}
		s.bank = max(0, engine.RoundMinutes(s.bank-float64(minutes)))
	}
	s.tick(now)
	s.breakEnd = now.Add(time.Duration(minutes) * time.Minute)
	s.breakFunded = funded
	s.state = OnBreak
	return true, nil
}

// BreakTick returns the break time left and starts the alarm once it runs
// out.
func (s *Sprint) BreakTick(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != OnBreak {
		return 0
	}
	remaining := max(0, s.breakEnd.Sub(now))
	if remaining == 0 && s.alarm == nil && s.beeper != nil {
		s.alarm = startAlarm(s.beeper, s.alarmEvery)
	}
	return remaining
}

// EndBreak stops the alarm, refunds the unused part of a funded break and
// starts a fresh segment at now. Uncommitted time from before the break is
// dropped; split before breaking to keep it.
func (s *Sprint) EndBreak(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != OnBreak {
		return nil
	}
	err := s.finishBreak(ctx, now)
	s.segmentStart = now
	s.elapsedMs = 0
	s.state = Running
	return err
}

func (s *Sprint) finishBreak(ctx context.Context, now time.Time) error {
	s.stopAlarm()
	funded := s.breakFunded
	s.breakFunded = false
	if !funded {
		return nil
	}
	unused := max(0, s.breakEnd.Sub(now))
	refund := engine.RoundMinutes(float64(unused.Milliseconds()) / 60000)
	if refund <= 0 {
		return nil
	}
	bal, err := s.ledger.DepositBank(ctx, refund)
	if err != nil {
		return fmt.Errorf("refund break: %w", err)
	}
	s.bank = bal
	return nil
}

func (s *Sprint) stopAlarm() {
	if s.alarm != nil {
		s.alarm.Stop()
		s.alarm = nil
	}
}

// Close releases the alarm goroutine. The sprint must not be used after.
func (s *Sprint) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopAlarm()
}

// Status is a point-in-time view of the sprint for rendering.
type Status struct {
	State         State
	Task          store.Task
	HasTask       bool
	ElapsedMs     int64
	DistractionMs int64
	BreakLeft     time.Duration
	BreakFunded   bool
	AlarmRinging  bool
	Bank          float64
	CanUndo       bool
	Done          int
	Total         int
}

func (s *Sprint) Status(now time.Time) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		State:         s.state,
		ElapsedMs:     s.elapsedMs,
		DistractionMs: s.distractionMs,
		AlarmRinging:  s.alarm != nil,
		Bank:          s.bank,
		CanUndo:       len(s.undo) > 0,
		Total:         len(s.tasks),
	}
	if s.state == OnBreak {
		st.BreakLeft = max(0, s.breakEnd.Sub(now))
		st.BreakFunded = s.breakFunded
	}
	if s.current >= 0 && s.current < len(s.tasks) {
		st.Task = s.tasks[s.current]
		st.HasTask = true
	}
	for _, t := range s.tasks {
		if t.IsCompleted {
			st.Done++
		}
	}
	return st
}

// Tasks returns the sprint's local copy of its tasks.
func (s *Sprint) Tasks() []store.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Task(nil), s.tasks...)
}
