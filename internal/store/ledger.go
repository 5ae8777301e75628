package store

import (
	"context"
	"errors"
	"time"

	"github.com/sadopc/focussplit/internal/engine"
)

// Segment is one committed stretch of sprint work on a task.
type Segment struct {
	TaskID        string
	Date          string
	DurationMs    int64
	DistractionMs int64
	Completed     bool
	EarnedMinutes float64
	At            time.Time
}

// Reversal undoes a previously committed Segment.
type Reversal struct {
	TaskID        string
	Date          string
	DurationMs    int64
	EarnedMinutes float64
	At            time.Time
}

// CommitSegment records a segment in one transaction: the work log, the
// task's time and completion, and the bank credit. Committing against a
// deleted task returns ErrNotFound and changes nothing.
func (s *Store) CommitSegment(ctx context.Context, seg Segment) (WorkLog, error) {
	var logged WorkLog
	err := s.InTx(ctx, func(tx *Tx) error {
		t, err := tx.GetTask(ctx, seg.TaskID)
		if err != nil {
			return err
		}

		if seg.DurationMs != 0 {
			logged, err = tx.AddWorkLog(ctx, WorkLog{
				TaskID:        seg.TaskID,
				Date:          seg.Date,
				DurationMs:    seg.DurationMs,
				Timestamp:     seg.At,
				EarnedMinutes: seg.EarnedMinutes,
			})
			if err != nil {
				return err
			}
		}

		t.TotalTimeMs += seg.DurationMs
		t.DistractionMs += seg.DistractionMs
		t.IsCompleted = seg.Completed
		if !seg.Completed && t.Progress == 100 {
			t.Progress = 0
		}
		normalize(&t)
		if err := tx.writeTask(ctx, t); err != nil {
			return err
		}

		if seg.EarnedMinutes > 0 {
			bal, err := tx.BankBalance(ctx)
			if err != nil {
				return err
			}
			return tx.setBank(ctx, engine.RoundMinutes(bal+seg.EarnedMinutes))
		}
		return nil
	})
	return logged, err
}

// UndoWorkLog reverses a segment by appending a compensating log with the
// negated duration and earnings. The task loses the time (never below zero)
// and becomes incomplete; the bank is debited (never below zero). When the
// task no longer exists only the bank is reversed.
func (s *Store) UndoWorkLog(ctx context.Context, r Reversal) error {
	return s.InTx(ctx, func(tx *Tx) error {
		t, err := tx.GetTask(ctx, r.TaskID)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		default:
			if r.DurationMs != 0 {
				_, err := tx.AddWorkLog(ctx, WorkLog{
					TaskID:        r.TaskID,
					Date:          r.Date,
					DurationMs:    -r.DurationMs,
					Timestamp:     r.At,
					EarnedMinutes: -r.EarnedMinutes,
				})
				if err != nil {
					return err
				}
			}
			t.TotalTimeMs -= r.DurationMs
			t.IsCompleted = false
			if t.Progress == 100 {
				t.Progress = 0
			}
			normalize(&t)
			if err := tx.writeTask(ctx, t); err != nil {
				return err
			}
		}

		if r.EarnedMinutes > 0 {
			bal, err := tx.BankBalance(ctx)
			if err != nil {
				return err
			}
			return tx.setBank(ctx, engine.RoundMinutes(bal-r.EarnedMinutes))
		}
		return nil
	})
}

// WithdrawBank debits minutes from the bank. It reports false and leaves the
// balance alone when the balance is too small.
func (s *Store) WithdrawBank(ctx context.Context, minutes float64) (bool, error) {
	minutes = engine.RoundMinutes(minutes)
	var ok bool
	err := s.InTx(ctx, func(tx *Tx) error {
		bal, err := tx.BankBalance(ctx)
		if err != nil {
			return err
		}
		if bal < minutes {
			return nil
		}
		ok = true
		if minutes <= 0 {
			return nil
		}
		return tx.setBank(ctx, engine.RoundMinutes(bal-minutes))
	})
	return ok, err
}

// DepositBank credits minutes to the bank and returns the new balance.
func (s *Store) DepositBank(ctx context.Context, minutes float64) (float64, error) {
	minutes = engine.RoundMinutes(minutes)
	var bal float64
	err := s.InTx(ctx, func(tx *Tx) error {
		var err error
		bal, err = tx.BankBalance(ctx)
		if err != nil || minutes <= 0 {
			return err
		}
		bal = engine.RoundMinutes(bal + minutes)
		return tx.setBank(ctx, bal)
	})
	return bal, err
}
