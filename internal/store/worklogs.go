package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const workLogColumns = `id, task_id, date, duration_ms, timestamp, earned_minutes`

func (tx *Tx) queryWorkLogs(ctx context.Context, query string, args ...any) ([]WorkLog, error) {
	rows, err := tx.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []WorkLog
	for rows.Next() {
		var l WorkLog
		var ts int64
		if err := rows.Scan(&l.ID, &l.TaskID, &l.Date, &l.DurationMs, &ts, &l.EarnedMinutes); err != nil {
			return nil, err
		}
		l.Timestamp = time.UnixMilli(ts)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// AddWorkLog appends a log entry. Entries are never updated afterwards.
func (tx *Tx) AddWorkLog(ctx context.Context, l WorkLog) (WorkLog, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Timestamp.IsZero() {
		l.Timestamp = tx.now()
	}
	_, err := tx.q.ExecContext(ctx,
		`INSERT INTO work_logs (`+workLogColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.TaskID, l.Date, l.DurationMs, l.Timestamp.UnixMilli(), l.EarnedMinutes,
	)
	if err != nil {
		return WorkLog{}, fmt.Errorf("insert work log for task %s: %w", l.TaskID, err)
	}
	return l, nil
}

func (tx *Tx) ListWorkLogs(ctx context.Context) ([]WorkLog, error) {
	logs, err := tx.queryWorkLogs(ctx,
		`SELECT `+workLogColumns+` FROM work_logs ORDER BY timestamp, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list work logs: %w", err)
	}
	return logs, nil
}

func (tx *Tx) WorkLogsForTask(ctx context.Context, taskID string) ([]WorkLog, error) {
	logs, err := tx.queryWorkLogs(ctx,
		`SELECT `+workLogColumns+` FROM work_logs WHERE task_id = ? ORDER BY timestamp, rowid`, taskID)
	if err != nil {
		return nil, fmt.Errorf("work logs for task %s: %w", taskID, err)
	}
	return logs, nil
}

// WorkLogsBefore returns logs dated before date together with every log
// whose task TasksBefore would return, because removing those tasks
// removes their logs as well.
func (tx *Tx) WorkLogsBefore(ctx context.Context, date string) ([]WorkLog, error) {
	logs, err := tx.queryWorkLogs(ctx,
		`SELECT `+workLogColumns+` FROM work_logs
		WHERE date < ? OR task_id IN (
			SELECT id FROM tasks
			WHERE date < ? OR session_id IN (SELECT id FROM sessions WHERE date < ?)
		)
		ORDER BY timestamp, rowid`, date, date, date)
	if err != nil {
		return nil, fmt.Errorf("work logs before %s: %w", date, err)
	}
	return logs, nil
}

func (tx *Tx) DeleteWorkLogs(ctx context.Context, ids []string) (int64, error) {
	return deleteIn(ctx, tx.q, "work_logs", ids)
}

func (s *Store) AddWorkLog(ctx context.Context, l WorkLog) (WorkLog, error) {
	return s.view().AddWorkLog(ctx, l)
}

func (s *Store) ListWorkLogs(ctx context.Context) ([]WorkLog, error) {
	return s.view().ListWorkLogs(ctx)
}

func (s *Store) WorkLogsForTask(ctx context.Context, taskID string) ([]WorkLog, error) {
	return s.view().WorkLogsForTask(ctx, taskID)
}
