// Package planner derives the visible task list for a session and performs
// the planning-side mutations: creating tasks and sessions, progress and
// estimate edits, and carrying unfinished work over to the next day.
package planner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/sadopc/focussplit/internal/calendar"
	"github.com/sadopc/focussplit/internal/config"
	"github.com/sadopc/focussplit/internal/logger"
	"github.com/sadopc/focussplit/internal/store"
)

var ErrEmptyTitle = errors.New("task title is empty")

// Score ranks a task by urgency (double weight) and importance.
func Score(t store.Task) int {
	return t.Urgency.Weight()*2 + t.Importance.Weight()
}

// ActiveTasks returns the tasks of one session on one date: unfinished
// before finished, fresh before carried-forward, then by descending score.
// Ties keep their input order.
func ActiveTasks(tasks []store.Task, date, sessionID string) []store.Task {
	var out []store.Task
	for _, t := range tasks {
		if t.Date == date && t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsCompleted != b.IsCompleted {
			return !a.IsCompleted
		}
		if a.IsRollover != b.IsRollover {
			return !a.IsRollover
		}
		return Score(a) > Score(b)
	})
	return out
}

var tagPattern = regexp.MustCompile(`#(\w+)`)

// ParseTitle strips #tags out of a task title. Tags are lowercased. A title
// made only of tags is kept as typed.
func ParseTitle(input string) (string, []string) {
	tags := []string{}
	clean := tagPattern.ReplaceAllStringFunc(input, func(m string) string {
		tags = append(tags, strings.ToLower(m[1:]))
		return ""
	})
	clean = strings.Join(strings.Fields(clean), " ")
	if clean == "" {
		clean = strings.TrimSpace(input)
	}
	return clean, tags
}

type Planner struct {
	store       *store.Store
	sessionName string
}

func New(s *store.Store) *Planner {
	return &Planner{store: s, sessionName: config.DefaultSessionName}
}

// EnsureSession returns the default session of date, creating it on the
// first visit.
func (p *Planner) EnsureSession(ctx context.Context, date string) (store.Session, error) {
	sess, created, err := p.store.EnsureSession(ctx, date, p.sessionName)
	if err != nil {
		return store.Session{}, err
	}
	if created {
		logger.Debug("created default session", "date", date, "id", sess.ID)
	}
	return sess, nil
}

// NewSession adds another session to date, named after its position.
func (p *Planner) NewSession(ctx context.Context, date string) (store.Session, error) {
	var sess store.Session
	err := p.store.InTx(ctx, func(tx *store.Tx) error {
		existing, err := tx.SessionsForDate(ctx, date)
		if err != nil {
			return err
		}
		sess, err = tx.AddSession(ctx, store.Session{
			Name: fmt.Sprintf("Session %d", len(existing)+1),
			Date: date,
		})
		return err
	})
	return sess, err
}

// RenameSession ignores blank names.
func (p *Planner) RenameSession(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return p.store.UpdateSession(ctx, id, store.SessionChanges{Name: &name})
}

// AddTask creates a task in a session from raw input such as
// "write report #work".
func (p *Planner) AddTask(ctx context.Context, sessionID, input string) (store.Task, error) {
	if strings.TrimSpace(input) == "" {
		return store.Task{}, ErrEmptyTitle
	}
	title, tags := ParseTitle(input)
	return p.store.AddTask(ctx, store.Task{Title: title, SessionID: sessionID, Tags: tags})
}

// ToggleCompletion flips a task between done and not done without logging
// any time. Un-completing a fully progressed task resets its progress.
func (p *Planner) ToggleCompletion(ctx context.Context, id string) error {
	return p.store.InTx(ctx, func(tx *store.Tx) error {
		t, err := tx.GetTask(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		done := !t.IsCompleted
		progress := t.Progress
		if done {
			progress = 100
		} else if progress == 100 {
			progress = 0
		}
		return tx.UpdateTask(ctx, id, store.TaskChanges{IsCompleted: &done, Progress: &progress})
	})
}

// SetProgress commits a progress value. Reaching 100 completes the task and
// clears its estimate; otherwise a set estimate shrinks in proportion to the
// work that remains.
func (p *Planner) SetProgress(ctx context.Context, id string, progress int) error {
	progress = min(100, max(0, progress))
	return p.store.InTx(ctx, func(tx *store.Tx) error {
		t, err := tx.GetTask(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if progress >= 100 {
			done, none := true, 0
			return tx.UpdateTask(ctx, id, store.TaskChanges{
				IsCompleted: &done, Progress: &progress, EstimatedMinutes: &none,
			})
		}

		notDone := false
		changes := store.TaskChanges{Progress: &progress, IsCompleted: &notDone}
		if base := baseEstimate(t); base > 0 {
			est := int(math.Round(base * (1 - float64(progress)/100)))
			changes.EstimatedMinutes = &est
		}
		return tx.UpdateTask(ctx, id, changes)
	})
}

// baseEstimate recovers the full-task estimate from the remaining estimate
// and current progress.
func baseEstimate(t store.Task) float64 {
	if t.EstimatedMinutes == nil {
		return 0
	}
	est := float64(*t.EstimatedMinutes)
	remaining := 1 - float64(t.Progress)/100
	if remaining > 0.01 {
		return est / remaining
	}
	return est
}

// AdjustEstimate adds delta minutes to a task's estimate, flooring at zero.
func (p *Planner) AdjustEstimate(ctx context.Context, id string, delta int) error {
	return p.store.InTx(ctx, func(tx *store.Tx) error {
		t, err := tx.GetTask(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		current := 0
		if t.EstimatedMinutes != nil {
			current = *t.EstimatedMinutes
		}
		next := max(0, current+delta)
		return tx.UpdateTask(ctx, id, store.TaskChanges{EstimatedMinutes: &next})
	})
}

// RolloverItem selects a task to carry forward and the progress it carries.
type RolloverItem struct {
	TaskID        string
	FinalProgress int
}

// RollOverToTomorrow moves tasks into the first session of the day after
// fromDate, creating that session if needed. Every moved task is marked as
// a rollover, reopened, and has its rollover count bumped.
func (p *Planner) RollOverToTomorrow(ctx context.Context, fromDate string, items []RolloverItem) error {
	if len(items) == 0 {
		return nil
	}
	return p.store.InTx(ctx, func(tx *store.Tx) error {
		return p.rollOver(ctx, tx, fromDate, items)
	})
}

func (p *Planner) rollOver(ctx context.Context, tx *store.Tx, fromDate string, items []RolloverItem) error {
	tomorrow, err := calendar.AddDays(fromDate, 1)
	if err != nil {
		return err
	}
	sess, _, err := tx.EnsureSession(ctx, tomorrow, p.sessionName)
	if err != nil {
		return err
	}
	for _, it := range items {
		t, err := tx.GetTask(ctx, it.TaskID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		notDone, rolled := false, true
		count := t.RolloverCount + 1
		progress := it.FinalProgress
		err = tx.UpdateTask(ctx, it.TaskID, store.TaskChanges{
			Date:          &tomorrow,
			SessionID:     &sess.ID,
			IsCompleted:   &notDone,
			IsRollover:    &rolled,
			RolloverCount: &count,
			Progress:      &progress,
		})
		if err != nil {
			return err
		}
	}
	logger.Info("rolled tasks over", "from", fromDate, "to", tomorrow, "count", len(items))
	return nil
}

// Outcome is the end-of-session decision for one task.
type Outcome struct {
	TaskID    string
	Progress  int
	Completed bool
	RollOver  bool
}

// CloseOut applies the end-of-session review in one transaction: tasks
// kept on fromDate get their final progress and completion, the rest move
// to tomorrow.
func (p *Planner) CloseOut(ctx context.Context, fromDate string, outcomes []Outcome) error {
	return p.store.InTx(ctx, func(tx *store.Tx) error {
		var carry []RolloverItem
		for _, o := range outcomes {
			if o.RollOver {
				carry = append(carry, RolloverItem{TaskID: o.TaskID, FinalProgress: o.Progress})
				continue
			}
			done, progress := o.Completed, o.Progress
			if err := tx.UpdateTask(ctx, o.TaskID, store.TaskChanges{IsCompleted: &done, Progress: &progress}); err != nil {
				return err
			}
		}
		if len(carry) == 0 {
			return nil
		}
		return p.rollOver(ctx, tx, fromDate, carry)
	})
}
