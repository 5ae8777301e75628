// Package maintenance keeps the store consistent with the passage of days:
// it makes sure today has a session, pulls unfinished past work forward
// and archives history that fell out of the retention window.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sadopc/focussplit/internal/calendar"
	"github.com/sadopc/focussplit/internal/config"
	"github.com/sadopc/focussplit/internal/engine"
	"github.com/sadopc/focussplit/internal/logger"
	"github.com/sadopc/focussplit/internal/store"
)

// Report summarizes one maintenance pass.
type Report struct {
	Today          string
	SessionCreated bool
	RolledOver     int
	Prune          PruneReport
}

// PruneReport summarizes what pruning moved into the archive.
type PruneReport struct {
	Cutoff         string
	WorkLogs       int
	Tasks          int
	Sessions       int
	FocusMs        int64
	TasksCompleted int
	EarnedMinutes  float64
}

// Empty reports whether the prune touched nothing.
func (r PruneReport) Empty() bool {
	return r.WorkLogs == 0 && r.Tasks == 0 && r.Sessions == 0
}

type Routine struct {
	store         *store.Store
	sessionName   string
	retentionDays int
	group         singleflight.Group
}

// New builds a routine with the default session name. Retention days below
// one fall back to the default window.
func New(s *store.Store, retentionDays int) *Routine {
	if retentionDays < 1 {
		retentionDays = config.DefaultRetentionDays
	}
	return &Routine{
		store:         s,
		sessionName:   config.DefaultSessionName,
		retentionDays: retentionDays,
	}
}

// Perform runs the daily pass for today. It is idempotent, and concurrent
// calls for the same day share one execution.
func (r *Routine) Perform(ctx context.Context, today string) (Report, error) {
	if !calendar.Valid(today) {
		return Report{}, fmt.Errorf("perform maintenance: invalid day %q", today)
	}
	v, err, _ := r.group.Do(today, func() (any, error) {
		return r.perform(ctx, today)
	})
	if err != nil {
		return Report{}, err
	}
	return v.(Report), nil
}

func (r *Routine) perform(ctx context.Context, today string) (Report, error) {
	rep := Report{Today: today}

	err := r.store.InTx(ctx, func(tx *store.Tx) error {
		sess, created, err := tx.EnsureSession(ctx, today, r.sessionName)
		if err != nil {
			return err
		}
		rep.SessionCreated = created

		stale, err := tx.IncompleteBefore(ctx, today)
		if err != nil {
			return err
		}
		rolled := true
		for _, t := range stale {
			err := tx.UpdateTask(ctx, t.ID, store.TaskChanges{
				Date:       &today,
				SessionID:  &sess.ID,
				IsRollover: &rolled,
			})
			if err != nil {
				return err
			}
		}
		rep.RolledOver = len(stale)
		return nil
	})
	if err != nil {
		return rep, fmt.Errorf("perform maintenance for %s: %w", today, err)
	}

	rep.Prune, err = r.Prune(ctx, today, r.retentionDays)
	if err != nil {
		return rep, err
	}

	if rep.SessionCreated || rep.RolledOver > 0 || !rep.Prune.Empty() {
		logger.Info("maintenance finished",
			"today", today,
			"session_created", rep.SessionCreated,
			"rolled_over", rep.RolledOver,
			"pruned_logs", rep.Prune.WorkLogs,
			"pruned_tasks", rep.Prune.Tasks,
			"pruned_sessions", rep.Prune.Sessions,
		)
	}
	return rep, nil
}

// Prune archives and deletes everything dated more than days before today.
// Logs and tasks that deleting an old task or session would take with it are
// counted too, so the archive totals never lose history. Nothing old means
// nothing changes, including the last-pruned date.
func (r *Routine) Prune(ctx context.Context, today string, days int) (PruneReport, error) {
	if days < 0 {
		days = 0
	}
	cutoff, err := calendar.AddDays(today, -days)
	if err != nil {
		return PruneReport{}, fmt.Errorf("prune: %w", err)
	}
	rep := PruneReport{Cutoff: cutoff}

	err = r.store.InTx(ctx, func(tx *store.Tx) error {
		logs, err := tx.WorkLogsBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		tasks, err := tx.TasksBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		sessions, err := tx.SessionsBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		if len(logs) == 0 && len(tasks) == 0 && len(sessions) == 0 {
			return nil
		}

		logIDs := make([]string, len(logs))
		for i, l := range logs {
			logIDs[i] = l.ID
			rep.FocusMs += l.DurationMs
			rep.EarnedMinutes += l.EarnedMinutes
		}
		taskIDs := make([]string, len(tasks))
		for i, t := range tasks {
			taskIDs[i] = t.ID
			if t.IsCompleted {
				rep.TasksCompleted++
			}
		}
		sessionIDs := make([]string, len(sessions))
		for i, s := range sessions {
			sessionIDs[i] = s.ID
		}

		archive, err := tx.GetArchive(ctx)
		if err != nil {
			return err
		}
		archive.TotalFocusMs += rep.FocusMs
		archive.TotalTasksCompleted += rep.TasksCompleted
		archive.TotalEarnedMinutes = engine.RoundMinutes(archive.TotalEarnedMinutes + rep.EarnedMinutes)
		archive.LastPrunedDate = today
		if err := tx.PutArchive(ctx, archive); err != nil {
			return err
		}

		if _, err := tx.DeleteWorkLogs(ctx, logIDs); err != nil {
			return err
		}
		if _, err := tx.DeleteTasks(ctx, taskIDs); err != nil {
			return err
		}
		if _, err := tx.DeleteSessions(ctx, sessionIDs); err != nil {
			return err
		}

		rep.WorkLogs, rep.Tasks, rep.Sessions = len(logs), len(tasks), len(sessions)
		return nil
	})
	if err != nil {
		return PruneReport{}, fmt.Errorf("prune before %s: %w", cutoff, err)
	}
	if !rep.Empty() {
		logger.Info("pruned history", "cutoff", cutoff, "logs", rep.WorkLogs, "tasks", rep.Tasks,
			"sessions", rep.Sessions, "focus_ms", rep.FocusMs)
	}
	return rep, nil
}

// Runner repeats the routine on a fixed interval until its context ends.
type Runner struct {
	routine  *Routine
	interval time.Duration
	today    func() string
	onPass   func(Report)
}

func NewRunner(r *Routine, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = config.MaintenanceInterval
	}
	return &Runner{routine: r, interval: interval, today: calendar.Today}
}

// Run performs one pass immediately, then one per interval. Failed passes
// are logged and retried on the next tick. It returns when ctx is done.
func (rn *Runner) Run(ctx context.Context) error {
	rn.tick(ctx)

	ticker := time.NewTicker(rn.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rn.tick(ctx)
		}
	}
}

// OnPass registers fn to receive the report of every successful pass.
// Call it before Run.
func (rn *Runner) OnPass(fn func(Report)) {
	rn.onPass = fn
}

func (rn *Runner) tick(ctx context.Context) {
	rep, err := rn.routine.Perform(ctx, rn.today())
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("maintenance failed", "err", err)
		}
		return
	}
	if rn.onPass != nil {
		rn.onPass(rep)
	}
}
