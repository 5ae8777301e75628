package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetArchive returns the archived totals, or zeroes before the first prune.
func (tx *Tx) GetArchive(ctx context.Context) (ArchiveStats, error) {
	var a ArchiveStats
	err := tx.q.QueryRowContext(ctx,
		`SELECT total_focus_ms, total_tasks_completed, total_earned_minutes, last_pruned_date
		FROM archive WHERE id = 1`,
	).Scan(&a.TotalFocusMs, &a.TotalTasksCompleted, &a.TotalEarnedMinutes, &a.LastPrunedDate)
	if errors.Is(err, sql.ErrNoRows) {
		return ArchiveStats{}, nil
	}
	if err != nil {
		return ArchiveStats{}, fmt.Errorf("get archive: %w", err)
	}
	return a, nil
}

func (tx *Tx) PutArchive(ctx context.Context, a ArchiveStats) error {
	_, err := tx.q.ExecContext(ctx,
		`INSERT INTO archive (id, total_focus_ms, total_tasks_completed, total_earned_minutes, last_pruned_date)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			total_focus_ms = excluded.total_focus_ms,
			total_tasks_completed = excluded.total_tasks_completed,
			total_earned_minutes = excluded.total_earned_minutes,
			last_pruned_date = excluded.last_pruned_date`,
		a.TotalFocusMs, a.TotalTasksCompleted, a.TotalEarnedMinutes, a.LastPrunedDate,
	)
	if err != nil {
		return fmt.Errorf("put archive: %w", err)
	}
	return nil
}

func (s *Store) GetArchive(ctx context.Context) (ArchiveStats, error) {
	return s.view().GetArchive(ctx)
}

func (s *Store) PutArchive(ctx context.Context, a ArchiveStats) error {
	return s.view().PutArchive(ctx, a)
}
