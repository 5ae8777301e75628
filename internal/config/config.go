// Package config holds application defaults and resolves the on-disk
// locations used by the CLI.
package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	AppName = "focussplit"

	// DefaultSessionName names the session created for a day nobody has
	// planned yet.
	DefaultSessionName = "Main Focus"

	// DefaultRetentionDays is how much history pruning keeps.
	DefaultRetentionDays = 180

	MaintenanceInterval = 5 * time.Minute

	SprintTick = 100 * time.Millisecond
	BreakTick  = 200 * time.Millisecond
	AlarmEvery = 1500 * time.Millisecond
)

// Paths are the files the application reads and writes.
type Paths struct {
	Dir    string
	DB     string
	Logs   string
	Legacy string
}

// DefaultPaths resolves everything under the user config directory, e.g.
// ~/.config/focussplit on Linux.
func DefaultPaths() (Paths, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, err
	}
	return PathsIn(filepath.Join(cfg, AppName)), nil
}

// PathsIn lays out the application files inside dir.
func PathsIn(dir string) Paths {
	return Paths{
		Dir:    dir,
		DB:     filepath.Join(dir, AppName+".db"),
		Logs:   filepath.Join(dir, "logs"),
		Legacy: filepath.Join(dir, "focusSplit_db_v5.json"),
	}
}
