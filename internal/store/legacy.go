package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

const legacyImportKey = "legacy_import"

// legacyState is the single-blob layout written by older versions.
type legacyState struct {
	Tasks    []legacyTask    `json:"tasks"`
	Sessions []legacySession `json:"sessions"`
	WorkLogs []legacyWorkLog `json:"workLogs"`
	Settings *legacySettings `json:"settings"`
	Archive  *legacyArchive  `json:"archive"`
	Version  int             `json:"version"`
}

type legacyTask struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	IsCompleted     bool     `json:"isCompleted"`
	TotalTime       float64  `json:"totalTime"`
	Date            string   `json:"date"`
	SessionID       string   `json:"sessionId"`
	DistractionTime float64  `json:"distractionTime"`
	IsRollover      bool     `json:"isRollover"`
	WasRolledOver   bool     `json:"wasRolledOver"`
	RolloverCount   int      `json:"rolloverCount"`
	Tags            []string `json:"tags"`
	Description     string   `json:"description"`
	EstimatedTime   *int     `json:"estimatedTime"`
	DueDate         string   `json:"dueDate"`
	DueTime         string   `json:"dueTime"`
	Urgency         string   `json:"urgency"`
	Importance      string   `json:"importance"`
	Progress        *int     `json:"progress"`
}

type legacySession struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Date      string `json:"date"`
	CreatedAt int64  `json:"createdAt"`
}

type legacyWorkLog struct {
	ID            string  `json:"id"`
	TaskID        string  `json:"taskId"`
	Date          string  `json:"date"`
	Duration      float64 `json:"duration"`
	Timestamp     int64   `json:"timestamp"`
	EarnedMinutes float64 `json:"earnedMinutes"`
}

type legacySettings struct {
	EnableBreaks       *bool    `json:"enableBreaks"`
	CustomBreakMinutes int      `json:"customBreakMinutes"`
	AllowedApps        []string `json:"allowedApps"`
	EnforceFocusGuard  bool     `json:"enforceFocusGuard"`
	Theme              string   `json:"theme"`
	DarkMode           bool     `json:"darkMode"`
	TimeBankMinutes    float64  `json:"timeBankMinutes"`
	EarningRatio       int      `json:"earningRatio"`
	Alarms             []Alarm  `json:"alarms"`
	Language           string   `json:"language"`
}

type legacyArchive struct {
	TotalFocusMs        float64 `json:"totalFocusMs"`
	TotalTasksCompleted int     `json:"totalTasksCompleted"`
	LastPrunedDate      string  `json:"lastPrunedDate"`
}

// LegacyImportResult counts what ImportLegacy wrote and dropped.
type LegacyImportResult struct {
	Imported        bool
	Sessions        int
	Tasks           int
	WorkLogs        int
	DroppedTasks    int
	DroppedWorkLogs int
}

// ImportLegacy migrates a legacy single-blob JSON export into the tables.
// It runs at most once: it is skipped when the import marker is set or any
// table already has data. Tasks without a known session and logs without a
// known task are dropped.
func (s *Store) ImportLegacy(ctx context.Context, r io.Reader) (LegacyImportResult, error) {
	var res LegacyImportResult

	var state legacyState
	if err := json.NewDecoder(r).Decode(&state); err != nil {
		return res, fmt.Errorf("decode legacy state: %w", err)
	}

	err := s.InTx(ctx, func(tx *Tx) error {
		empty, err := tx.pristine(ctx)
		if err != nil || !empty {
			return err
		}

		sessions := make(map[string]string, len(state.Sessions))
		for _, ls := range state.Sessions {
			created := time.UnixMilli(ls.CreatedAt)
			if ls.CreatedAt == 0 {
				created = tx.now()
			}
			sess, err := tx.AddSession(ctx, Session{ID: ls.ID, Name: ls.Name, Date: ls.Date, CreatedAt: created})
			if err != nil {
				return err
			}
			sessions[sess.ID] = sess.Date
			res.Sessions++
		}

		tasks := make(map[string]bool, len(state.Tasks))
		for i, lt := range state.Tasks {
			sessDate, ok := sessions[lt.SessionID]
			if lt.SessionID == "" || !ok {
				res.DroppedTasks++
				continue
			}
			t := lt.toTask()
			t.Date = sessDate
			// Preserve blob order for tasks sharing a creation time.
			t.CreatedAt = tx.now().Add(time.Duration(i) * time.Millisecond)
			normalize(&t)
			if err := tx.insertTask(ctx, t); err != nil {
				return err
			}
			tasks[t.ID] = true
			res.Tasks++
		}

		for _, ll := range state.WorkLogs {
			if !tasks[ll.TaskID] {
				res.DroppedWorkLogs++
				continue
			}
			_, err := tx.AddWorkLog(ctx, WorkLog{
				ID:            ll.ID,
				TaskID:        ll.TaskID,
				Date:          ll.Date,
				DurationMs:    int64(ll.Duration),
				Timestamp:     time.UnixMilli(ll.Timestamp),
				EarnedMinutes: ll.EarnedMinutes,
			})
			if err != nil {
				return err
			}
			res.WorkLogs++
		}

		if state.Settings != nil {
			if err := tx.PutSettings(ctx, state.Settings.toSettings()); err != nil {
				return err
			}
		}
		if state.Archive != nil {
			err := tx.PutArchive(ctx, ArchiveStats{
				TotalFocusMs:        int64(state.Archive.TotalFocusMs),
				TotalTasksCompleted: state.Archive.TotalTasksCompleted,
				LastPrunedDate:      dayPrefix(state.Archive.LastPrunedDate),
			})
			if err != nil {
				return err
			}
		}

		res.Imported = true
		return tx.markLegacyImported(ctx, state.Version)
	})
	if err != nil {
		return LegacyImportResult{}, fmt.Errorf("import legacy state: %w", err)
	}
	return res, nil
}

// LegacyImported reports whether a legacy import already ran.
func (s *Store) LegacyImported(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM meta WHERE key = ?`, legacyImportKey).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("read legacy marker: %w", err)
	}
	return n > 0, nil
}

// pristine reports whether the store has never held data nor been imported.
func (tx *Tx) pristine(ctx context.Context) (bool, error) {
	var n int
	err := tx.q.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM meta WHERE key = ?) +
		(SELECT COUNT(*) FROM settings) +
		(SELECT COUNT(*) FROM sessions) +
		(SELECT COUNT(*) FROM tasks) +
		(SELECT COUNT(*) FROM work_logs)`, legacyImportKey).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check store is empty: %w", err)
	}
	return n == 0, nil
}

func (tx *Tx) markLegacyImported(ctx context.Context, version int) error {
	_, err := tx.q.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		legacyImportKey, fmt.Sprintf("v%d@%s", version, tx.now().UTC().Format(time.RFC3339)),
	)
	if err != nil {
		return fmt.Errorf("write legacy marker: %w", err)
	}
	return nil
}

func (lt legacyTask) toTask() Task {
	t := Task{
		ID:               lt.ID,
		Title:            lt.Title,
		IsCompleted:      lt.IsCompleted,
		TotalTimeMs:      int64(lt.TotalTime),
		SessionID:        lt.SessionID,
		DistractionMs:    int64(lt.DistractionTime),
		Tags:             lt.Tags,
		Description:      lt.Description,
		EstimatedMinutes: lt.EstimatedTime,
		DueDate:          lt.DueDate,
		DueTime:          lt.DueTime,
		Urgency:          Priority(lt.Urgency),
		Importance:       Priority(lt.Importance),
		IsRollover:       lt.IsRollover,
		WasRolledOver:    lt.WasRolledOver,
		RolloverCount:    lt.RolloverCount,
	}
	if lt.Progress != nil {
		t.Progress = *lt.Progress
	}
	return t
}

func (ls legacySettings) toSettings() Settings {
	s := DefaultSettings()
	if ls.EnableBreaks != nil {
		s.EnableBreaks = *ls.EnableBreaks
	}
	if ls.CustomBreakMinutes > 0 {
		s.CustomBreakMinutes = ls.CustomBreakMinutes
	}
	if ls.AllowedApps != nil {
		s.AllowedApps = ls.AllowedApps
	}
	s.EnforceFocusGuard = ls.EnforceFocusGuard
	if ls.Theme != "" {
		s.Theme = ls.Theme
	}
	s.DarkMode = ls.DarkMode
	s.TimeBankMinutes = ls.TimeBankMinutes
	if ls.EarningRatio > 0 {
		s.EarningRatio = ls.EarningRatio
	}
	if ls.Alarms != nil {
		s.Alarms = ls.Alarms
	}
	if ls.Language != "" {
		s.Language = ls.Language
	}
	return s
}

// dayPrefix trims an ISO timestamp down to its YYYY-MM-DD day.
func dayPrefix(s string) string {
	if len(s) >= 10 {
		return s[:10]
	}
	return s
}
