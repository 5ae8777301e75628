package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sadopc/focussplit/internal/engine"
)

const (
	keyEnableBreaks       = "enable_breaks"
	keyCustomBreakMinutes = "custom_break_minutes"
	keyAllowedApps        = "allowed_apps"
	keyEnforceFocusGuard  = "enforce_focus_guard"
	keyTheme              = "theme"
	keyDarkMode           = "dark_mode"
	keyTimeBankMinutes    = "time_bank_minutes"
	keyEarningRatio       = "earning_ratio"
	keyAlarms             = "alarms"
	keyLanguage           = "language"
)

// GetSettings loads the settings singleton. Keys that were never saved keep
// their DefaultSettings value.
func (tx *Tx) GetSettings(ctx context.Context) (Settings, error) {
	rows, err := tx.q.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	s := DefaultSettings()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Settings{}, err
		}
		if err := decodeSetting(&s, k, v); err != nil {
			return Settings{}, fmt.Errorf("decode setting %q: %w", k, err)
		}
	}
	return s, rows.Err()
}

func decodeSetting(s *Settings, k, v string) error {
	var err error
	switch k {
	case keyEnableBreaks:
		s.EnableBreaks, err = strconv.ParseBool(v)
	case keyCustomBreakMinutes:
		s.CustomBreakMinutes, err = strconv.Atoi(v)
	case keyAllowedApps:
		err = json.Unmarshal([]byte(v), &s.AllowedApps)
	case keyEnforceFocusGuard:
		s.EnforceFocusGuard, err = strconv.ParseBool(v)
	case keyTheme:
		s.Theme = v
	case keyDarkMode:
		s.DarkMode, err = strconv.ParseBool(v)
	case keyTimeBankMinutes:
		s.TimeBankMinutes, err = strconv.ParseFloat(v, 64)
	case keyEarningRatio:
		s.EarningRatio, err = strconv.Atoi(v)
	case keyAlarms:
		err = json.Unmarshal([]byte(v), &s.Alarms)
	case keyLanguage:
		s.Language = v
	}
	return err
}

func (tx *Tx) setSetting(ctx context.Context, key, value string) error {
	_, err := tx.q.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// PutSettings saves every field of s after clamping it into range.
func (tx *Tx) PutSettings(ctx context.Context, s Settings) error {
	s.CustomBreakMinutes = max(1, s.CustomBreakMinutes)
	s.EarningRatio = max(1, s.EarningRatio)
	s.TimeBankMinutes = max(0, engine.RoundMinutes(s.TimeBankMinutes))
	if s.AllowedApps == nil {
		s.AllowedApps = []string{}
	}
	if s.Alarms == nil {
		s.Alarms = []Alarm{}
	}

	apps, err := json.Marshal(s.AllowedApps)
	if err != nil {
		return fmt.Errorf("encode allowed apps: %w", err)
	}
	alarms, err := json.Marshal(s.Alarms)
	if err != nil {
		return fmt.Errorf("encode alarms: %w", err)
	}

	values := [][2]string{
		{keyEnableBreaks, strconv.FormatBool(s.EnableBreaks)},
		{keyCustomBreakMinutes, strconv.Itoa(s.CustomBreakMinutes)},
		{keyAllowedApps, string(apps)},
		{keyEnforceFocusGuard, strconv.FormatBool(s.EnforceFocusGuard)},
		{keyTheme, s.Theme},
		{keyDarkMode, strconv.FormatBool(s.DarkMode)},
		{keyTimeBankMinutes, engine.FormatBank(s.TimeBankMinutes)},
		{keyEarningRatio, strconv.Itoa(s.EarningRatio)},
		{keyAlarms, string(alarms)},
		{keyLanguage, s.Language},
	}
	for _, kv := range values {
		if err := tx.setSetting(ctx, kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

// BankBalance reads the time bank without loading the other settings.
func (tx *Tx) BankBalance(ctx context.Context) (float64, error) {
	s, err := tx.GetSettings(ctx)
	if err != nil {
		return 0, err
	}
	return s.TimeBankMinutes, nil
}

func (tx *Tx) setBank(ctx context.Context, minutes float64) error {
	return tx.setSetting(ctx, keyTimeBankMinutes, engine.FormatBank(max(0, minutes)))
}

func (s *Store) GetSettings(ctx context.Context) (Settings, error) {
	return s.view().GetSettings(ctx)
}

func (s *Store) PutSettings(ctx context.Context, settings Settings) error {
	return s.InTx(ctx, func(tx *Tx) error {
		return tx.PutSettings(ctx, settings)
	})
}

// UpdateSettings applies edit to the current settings and saves the result
// in one transaction, so fields edit leaves alone (the bank in particular)
// are never overwritten with stale values.
func (s *Store) UpdateSettings(ctx context.Context, edit func(*Settings)) (Settings, error) {
	var out Settings
	err := s.InTx(ctx, func(tx *Tx) error {
		cur, err := tx.GetSettings(ctx)
		if err != nil {
			return err
		}
		edit(&cur)
		if err := tx.PutSettings(ctx, cur); err != nil {
			return err
		}
		out, err = tx.GetSettings(ctx)
		return err
	})
	return out, err
}
