package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const taskColumns = `id, session_id, title, is_completed, total_time_ms, date, distraction_ms,
	tags, description, estimated_minutes, due_date, due_time, urgency, importance,
	progress, is_rollover, was_rolled_over, rollover_count, created_at`

func scanTask(sc interface{ Scan(...any) error }) (Task, error) {
	var t Task
	var tags string
	var est sql.NullInt64
	var urgency, importance string
	var created int64
	err := sc.Scan(&t.ID, &t.SessionID, &t.Title, &t.IsCompleted, &t.TotalTimeMs, &t.Date,
		&t.DistractionMs, &tags, &t.Description, &est, &t.DueDate, &t.DueTime, &urgency,
		&importance, &t.Progress, &t.IsRollover, &t.WasRolledOver, &t.RolloverCount, &created)
	if err != nil {
		return Task{}, err
	}
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return Task{}, fmt.Errorf("decode tags of task %s: %w", t.ID, err)
	}
	if est.Valid {
		m := int(est.Int64)
		t.EstimatedMinutes = &m
	}
	t.Urgency = Priority(urgency)
	t.Importance = Priority(importance)
	t.CreatedAt = time.UnixMilli(created)
	return t, nil
}

func (tx *Tx) queryTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := tx.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// normalize clamps a task back into its invariants.
func normalize(t *Task) {
	t.TotalTimeMs = max(0, t.TotalTimeMs)
	t.DistractionMs = max(0, t.DistractionMs)
	t.Progress = min(100, max(0, t.Progress))
	if t.IsCompleted {
		t.Progress = 100
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.EstimatedMinutes != nil && *t.EstimatedMinutes <= 0 {
		t.EstimatedMinutes = nil
	}
	if !t.Urgency.Valid() {
		t.Urgency = PriorityUnset
	}
	if !t.Importance.Valid() {
		t.Importance = PriorityUnset
	}
	t.RolloverCount = max(0, t.RolloverCount)
}

func (tx *Tx) insertTask(ctx context.Context, t Task) error {
	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	var est any
	if t.EstimatedMinutes != nil {
		est = *t.EstimatedMinutes
	}
	_, err = tx.q.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.SessionID, t.Title, t.IsCompleted, t.TotalTimeMs, t.Date, t.DistractionMs,
		string(tags), t.Description, est, t.DueDate, t.DueTime, string(t.Urgency),
		string(t.Importance), t.Progress, t.IsRollover, t.WasRolledOver, t.RolloverCount,
		t.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (tx *Tx) writeTask(ctx context.Context, t Task) error {
	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	var est any
	if t.EstimatedMinutes != nil {
		est = *t.EstimatedMinutes
	}
	_, err = tx.q.ExecContext(ctx,
		`UPDATE tasks SET session_id = ?, title = ?, is_completed = ?, total_time_ms = ?, date = ?,
			distraction_ms = ?, tags = ?, description = ?, estimated_minutes = ?, due_date = ?,
			due_time = ?, urgency = ?, importance = ?, progress = ?, is_rollover = ?,
			was_rolled_over = ?, rollover_count = ?
		WHERE id = ?`,
		t.SessionID, t.Title, t.IsCompleted, t.TotalTimeMs, t.Date, t.DistractionMs, string(tags),
		t.Description, est, t.DueDate, t.DueTime, string(t.Urgency), string(t.Importance),
		t.Progress, t.IsRollover, t.WasRolledOver, t.RolloverCount, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task %s: %w", t.ID, err)
	}
	return nil
}

// AddTask inserts a task into its session. An empty date is taken from the
// session; a date that disagrees with the session is rejected.
func (tx *Tx) AddTask(ctx context.Context, t Task) (Task, error) {
	sess, err := tx.GetSession(ctx, t.SessionID)
	if err != nil {
		return Task{}, fmt.Errorf("add task: %w", err)
	}
	if t.Date == "" {
		t.Date = sess.Date
	}
	if t.Date != sess.Date {
		return Task{}, fmt.Errorf("add task %q: %w", t.Title, ErrDateMismatch)
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = tx.now()
	}
	normalize(&t)
	if err := tx.insertTask(ctx, t); err != nil {
		return Task{}, err
	}
	return t, nil
}

func (tx *Tx) GetTask(ctx context.Context, id string) (Task, error) {
	t, err := scanTask(tx.q.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, fmt.Errorf("get task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Task{}, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

func (tx *Tx) ListTasks(ctx context.Context) ([]Task, error) {
	tasks, err := tx.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// TasksFor returns the tasks of one session on one date in creation order.
func (tx *Tx) TasksFor(ctx context.Context, date, sessionID string) ([]Task, error) {
	tasks, err := tx.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE date = ? AND session_id = ? ORDER BY created_at, rowid`,
		date, sessionID)
	if err != nil {
		return nil, fmt.Errorf("tasks for %s/%s: %w", date, sessionID, err)
	}
	return tasks, nil
}

// IncompleteBefore returns unfinished tasks dated before date that have not
// already been carried forward.
func (tx *Tx) IncompleteBefore(ctx context.Context, date string) ([]Task, error) {
	tasks, err := tx.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks
		WHERE date < ? AND is_completed = 0 AND was_rolled_over = 0
		ORDER BY created_at, rowid`, date)
	if err != nil {
		return nil, fmt.Errorf("incomplete tasks before %s: %w", date, err)
	}
	return tasks, nil
}

// TasksBefore returns tasks dated before date plus any task owned by a
// session dated before date, since deleting those sessions removes them too.
func (tx *Tx) TasksBefore(ctx context.Context, date string) ([]Task, error) {
	tasks, err := tx.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks
		WHERE date < ? OR session_id IN (SELECT id FROM sessions WHERE date < ?)
		ORDER BY created_at, rowid`, date, date)
	if err != nil {
		return nil, fmt.Errorf("tasks before %s: %w", date, err)
	}
	return tasks, nil
}

// UpdateTask applies changes to a task and clamps the result. A missing
// task is a no-op. Moving a task to another session without a date takes
// the session's date.
func (tx *Tx) UpdateTask(ctx context.Context, id string, changes TaskChanges) error {
	t, err := tx.GetTask(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	apply(&t, changes)
	if changes.SessionID != nil || changes.Date != nil {
		sess, err := tx.GetSession(ctx, t.SessionID)
		if err != nil {
			return fmt.Errorf("update task %s: %w", id, err)
		}
		if changes.Date == nil {
			t.Date = sess.Date
		}
		if t.Date != sess.Date {
			return fmt.Errorf("update task %s: %w", id, ErrDateMismatch)
		}
	}
	normalize(&t)
	return tx.writeTask(ctx, t)
}

func apply(t *Task, c TaskChanges) {
	if c.Title != nil {
		t.Title = *c.Title
	}
	if c.IsCompleted != nil {
		t.IsCompleted = *c.IsCompleted
	}
	if c.TotalTimeMs != nil {
		t.TotalTimeMs = *c.TotalTimeMs
	}
	if c.Date != nil {
		t.Date = *c.Date
	}
	if c.SessionID != nil {
		t.SessionID = *c.SessionID
	}
	if c.DistractionMs != nil {
		t.DistractionMs = *c.DistractionMs
	}
	if c.Tags != nil {
		t.Tags = append([]string(nil), (*c.Tags)...)
	}
	if c.Description != nil {
		t.Description = *c.Description
	}
	if c.EstimatedMinutes != nil {
		m := *c.EstimatedMinutes
		t.EstimatedMinutes = &m
	}
	if c.DueDate != nil {
		t.DueDate = *c.DueDate
	}
	if c.DueTime != nil {
		t.DueTime = *c.DueTime
	}
	if c.Urgency != nil {
		t.Urgency = *c.Urgency
	}
	if c.Importance != nil {
		t.Importance = *c.Importance
	}
	if c.Progress != nil {
		t.Progress = *c.Progress
	}
	if c.IsRollover != nil {
		t.IsRollover = *c.IsRollover
	}
	if c.WasRolledOver != nil {
		t.WasRolledOver = *c.WasRolledOver
	}
	if c.RolloverCount != nil {
		t.RolloverCount = *c.RolloverCount
	}
}

// DeleteTask removes a task and its work logs.
func (tx *Tx) DeleteTask(ctx context.Context, id string) error {
	if _, err := tx.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// DeleteTasks bulk-deletes tasks and their logs.
func (tx *Tx) DeleteTasks(ctx context.Context, ids []string) (int64, error) {
	return deleteIn(ctx, tx.q, "tasks", ids)
}

func (s *Store) AddTask(ctx context.Context, t Task) (Task, error) {
	var added Task
	err := s.InTx(ctx, func(tx *Tx) error {
		var err error
		added, err = tx.AddTask(ctx, t)
		return err
	})
	return added, err
}

func (s *Store) GetTask(ctx context.Context, id string) (Task, error) {
	return s.view().GetTask(ctx, id)
}

func (s *Store) ListTasks(ctx context.Context) ([]Task, error) {
	return s.view().ListTasks(ctx)
}

func (s *Store) TasksFor(ctx context.Context, date, sessionID string) ([]Task, error) {
	return s.view().TasksFor(ctx, date, sessionID)
}

func (s *Store) UpdateTask(ctx context.Context, id string, changes TaskChanges) error {
	return s.InTx(ctx, func(tx *Tx) error {
		return tx.UpdateTask(ctx, id, changes)
	})
}

// BatchUpdateTasks applies every update or none of them.
func (s *Store) BatchUpdateTasks(ctx context.Context, updates []TaskUpdate) error {
	return s.InTx(ctx, func(tx *Tx) error {
		for _, u := range updates {
			if err := tx.UpdateTask(ctx, u.ID, u.Changes); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return s.view().DeleteTask(ctx, id)
}
