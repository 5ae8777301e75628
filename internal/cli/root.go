package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sadopc/focussplit/internal/calendar"
	"github.com/sadopc/focussplit/internal/config"
	"github.com/sadopc/focussplit/internal/maintenance"
	"github.com/sadopc/focussplit/internal/planner"
	"github.com/sadopc/focussplit/internal/sprint"
	"github.com/sadopc/focussplit/internal/store"
)

// Context is bound into every command's Run. The embedded context is
// cancelled on interrupt.
type Context struct {
	context.Context

	Store         *store.Store
	Planner       *planner.Planner
	Routine       *maintenance.Routine
	Beeper        sprint.Beeper
	Paths         config.Paths
	RetentionDays int

	// Out receives command output; nil means stdout.
	Out io.Writer
	// Today overrides the local calendar day, mostly for tests.
	Today func() string
}

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) printf(format string, args ...any) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *Context) today() string {
	if c.Today != nil {
		return c.Today()
	}
	return calendar.Today()
}

// day returns date when set, otherwise today, and rejects malformed input.
func (c *Context) day(date string) (string, error) {
	if date == "" {
		return c.today(), nil
	}
	if !calendar.Valid(date) {
		return "", fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
	}
	return date, nil
}

// resolveTask finds the task whose ID starts with prefix.
func resolveTask(ctx *Context, prefix string) (store.Task, error) {
	tasks, err := ctx.Store.ListTasks(ctx)
	if err != nil {
		return store.Task{}, err
	}
	var found []store.Task
	for _, t := range tasks {
		if strings.HasPrefix(t.ID, prefix) {
			found = append(found, t)
		}
	}
	switch len(found) {
	case 0:
		return store.Task{}, fmt.Errorf("no task matches %q", prefix)
	case 1:
		return found[0], nil
	}
	return store.Task{}, fmt.Errorf("%d tasks match %q, use a longer ID", len(found), prefix)
}

func resolveSession(ctx *Context, prefix string) (store.Session, error) {
	sessions, err := ctx.Store.ListSessions(ctx)
	if err != nil {
		return store.Session{}, err
	}
	var found []store.Session
	for _, s := range sessions {
		if strings.HasPrefix(s.ID, prefix) {
			found = append(found, s)
		}
	}
	switch len(found) {
	case 0:
		return store.Session{}, fmt.Errorf("no session matches %q", prefix)
	case 1:
		return found[0], nil
	}
	return store.Session{}, fmt.Errorf("%d sessions match %q, use a longer ID", len(found), prefix)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatMinutes(ms int64) string {
	mins := ms / 60000
	if mins >= 60 {
		return fmt.Sprintf("%dh%02dm", mins/60, mins%60)
	}
	return fmt.Sprintf("%dm", mins)
}
