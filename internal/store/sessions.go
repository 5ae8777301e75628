package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const sessionColumns = `id, name, date, created_at`

func scanSession(sc interface{ Scan(...any) error }) (Session, error) {
	var sess Session
	var created int64
	if err := sc.Scan(&sess.ID, &sess.Name, &sess.Date, &created); err != nil {
		return Session{}, err
	}
	sess.CreatedAt = time.UnixMilli(created)
	return sess, nil
}

func (tx *Tx) querySessions(ctx context.Context, query string, args ...any) ([]Session, error) {
	rows, err := tx.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// AddSession inserts a session, assigning an id and creation time when they
// are unset.
func (tx *Tx) AddSession(ctx context.Context, sess Session) (Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = tx.now()
	}
	_, err := tx.q.ExecContext(ctx,
		`INSERT INTO sessions (id, name, date, created_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.Name, sess.Date, sess.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

func (tx *Tx) GetSession(ctx context.Context, id string) (Session, error) {
	sess, err := scanSession(tx.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("get session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return sess, nil
}

func (tx *Tx) ListSessions(ctx context.Context) ([]Session, error) {
	sessions, err := tx.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY date, created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// SessionsForDate returns the sessions of one day in creation order. The
// first one is that day's default session.
func (tx *Tx) SessionsForDate(ctx context.Context, date string) ([]Session, error) {
	sessions, err := tx.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE date = ? ORDER BY created_at, rowid`, date)
	if err != nil {
		return nil, fmt.Errorf("sessions for %s: %w", date, err)
	}
	return sessions, nil
}

// SessionsBefore returns sessions dated strictly before date.
func (tx *Tx) SessionsBefore(ctx context.Context, date string) ([]Session, error) {
	sessions, err := tx.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE date < ? ORDER BY date, created_at, rowid`, date)
	if err != nil {
		return nil, fmt.Errorf("sessions before %s: %w", date, err)
	}
	return sessions, nil
}

// EnsureSession returns the first session of date, creating one called
// name when the day has none yet.
func (tx *Tx) EnsureSession(ctx context.Context, date, name string) (Session, bool, error) {
	existing, err := tx.SessionsForDate(ctx, date)
	if err != nil {
		return Session{}, false, err
	}
	if len(existing) > 0 {
		return existing[0], false, nil
	}
	sess, err := tx.AddSession(ctx, Session{Name: name, Date: date})
	if err != nil {
		return Session{}, false, err
	}
	return sess, true, nil
}

// UpdateSession applies changes to a session. Unknown ids are ignored.
func (tx *Tx) UpdateSession(ctx context.Context, id string, changes SessionChanges) error {
	if changes.Name == nil {
		return nil
	}
	_, err := tx.q.ExecContext(ctx, `UPDATE sessions SET name = ? WHERE id = ?`, *changes.Name, id)
	if err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}
	return nil
}

// DeleteSession removes a session together with its tasks and their logs.
func (tx *Tx) DeleteSession(ctx context.Context, id string) error {
	if _, err := tx.q.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// DeleteSessions bulk-deletes sessions, cascading like DeleteSession.
func (tx *Tx) DeleteSessions(ctx context.Context, ids []string) (int64, error) {
	return deleteIn(ctx, tx.q, "sessions", ids)
}

func (s *Store) AddSession(ctx context.Context, sess Session) (Session, error) {
	return s.view().AddSession(ctx, sess)
}

func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	return s.view().GetSession(ctx, id)
}

func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	return s.view().ListSessions(ctx)
}

func (s *Store) SessionsForDate(ctx context.Context, date string) ([]Session, error) {
	return s.view().SessionsForDate(ctx, date)
}

// EnsureSession is the transactional find-or-create used when a day is
// first visited.
func (s *Store) EnsureSession(ctx context.Context, date, name string) (Session, bool, error) {
	var sess Session
	var created bool
	err := s.InTx(ctx, func(tx *Tx) error {
		var err error
		sess, created, err = tx.EnsureSession(ctx, date, name)
		return err
	})
	return sess, created, err
}

func (s *Store) UpdateSession(ctx context.Context, id string, changes SessionChanges) error {
	return s.view().UpdateSession(ctx, id, changes)
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.view().DeleteSession(ctx, id)
}
