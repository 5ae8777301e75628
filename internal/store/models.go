package store

import "time"

// Priority is an optional urgency/importance level. The zero value means
// the user never set one.
type Priority string

const (
	PriorityUnset  Priority = ""
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Weight is the numeric value used when scoring tasks. Unset counts as
// medium.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

// Valid reports whether p is unset or one of the known levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityUnset, PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID               string
	Title            string
	IsCompleted      bool
	TotalTimeMs      int64
	Date             string
	SessionID        string
	DistractionMs    int64
	Tags             []string
	Description      string
	EstimatedMinutes *int
	DueDate          string
	DueTime          string
	Urgency          Priority
	Importance       Priority
	Progress         int
	IsRollover       bool
	WasRolledOver    bool
	RolloverCount    int
	CreatedAt        time.Time
}

// TaskChanges is a partial task update. Nil fields are left untouched.
type TaskChanges struct {
	Title            *string
	IsCompleted      *bool
	TotalTimeMs      *int64
	Date             *string
	SessionID        *string
	DistractionMs    *int64
	Tags             *[]string
	Description      *string
	EstimatedMinutes *int // values <= 0 clear the estimate
	DueDate          *string
	DueTime          *string
	Urgency          *Priority
	Importance       *Priority
	Progress         *int
	IsRollover       *bool
	WasRolledOver    *bool
	RolloverCount    *int
}

// TaskUpdate pairs a task id with its changes for batch updates.
type TaskUpdate struct {
	ID      string
	Changes TaskChanges
}

type Session struct {
	ID        string
	Name      string
	Date      string
	CreatedAt time.Time
}

type SessionChanges struct {
	Name *string
}

// WorkLog is an immutable record of focused time credited to a task.
// Negative durations only appear on compensating undo entries.
type WorkLog struct {
	ID            string
	TaskID        string
	Date          string
	DurationMs    int64
	Timestamp     time.Time
	EarnedMinutes float64
}

type Alarm struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Time     string `json:"time"`
	Enabled  bool   `json:"enabled"`
	Weekdays []int  `json:"days,omitempty"`
}

type Settings struct {
	EnableBreaks       bool
	CustomBreakMinutes int
	AllowedApps        []string
	EnforceFocusGuard  bool
	Theme              string
	DarkMode           bool
	TimeBankMinutes    float64
	EarningRatio       int
	Alarms             []Alarm
	Language           string
}

// DefaultSettings is what a fresh install runs with until the first save.
func DefaultSettings() Settings {
	return Settings{
		EnableBreaks:       true,
		CustomBreakMinutes: 20,
		AllowedApps:        []string{},
		EnforceFocusGuard:  false,
		Theme:              "yin",
		DarkMode:           false,
		TimeBankMinutes:    0,
		EarningRatio:       2,
		Alarms:             []Alarm{},
		Language:           "en",
	}
}

// Themes lists the accepted theme names.
var Themes = []string{
	"yin", "yang", "zen", "forest", "seafoam", "midnight", "sunrise",
	"volcano", "lavender", "galactic", "dune", "espresso", "hologram", "cyberpunk",
}

// ArchiveStats holds the running totals of pruned history.
type ArchiveStats struct {
	TotalFocusMs        int64
	TotalTasksCompleted int
	TotalEarnedMinutes  float64
	LastPrunedDate      string
}
