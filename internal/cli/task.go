package cli

import (
	"fmt"
	"strings"

	"github.com/sadopc/focussplit/internal/planner"
	"github.com/sadopc/focussplit/internal/store"
)

type TaskAddCmd struct {
	Title    string `arg:"" help:"Task title. Words starting with # become tags."`
	Date     string `short:"d" help:"Day to plan the task for (YYYY-MM-DD). Defaults to today."`
	Session  string `short:"s" help:"Session name. Defaults to the day's first session."`
	Estimate int    `short:"e" help:"Estimated minutes."`
}

func (c *TaskAddCmd) Validate() error {
	if c.Estimate < 0 {
		return fmt.Errorf("estimate must not be negative")
	}
	return nil
}

func (c *TaskAddCmd) Run(ctx *Context) error {
	date, err := ctx.day(c.Date)
	if err != nil {
		return err
	}
	sess, err := c.session(ctx, date)
	if err != nil {
		return err
	}

	task, err := ctx.Planner.AddTask(ctx, sess.ID, c.Title)
	if err != nil {
		return err
	}
	if c.Estimate > 0 {
		if err := ctx.Planner.AdjustEstimate(ctx, task.ID, c.Estimate); err != nil {
			return err
		}
	}

	ctx.printf("Added task: %s (ID: %s) to %s on %s\n", task.Title, shortID(task.ID), sess.Name, date)
	return nil
}

func (c *TaskAddCmd) session(ctx *Context, date string) (store.Session, error) {
	if c.Session == "" {
		return ctx.Planner.EnsureSession(ctx, date)
	}
	sessions, err := ctx.Store.SessionsForDate(ctx, date)
	if err != nil {
		return store.Session{}, err
	}
	for _, s := range sessions {
		if strings.EqualFold(s.Name, c.Session) {
			return s, nil
		}
	}
	return store.Session{}, fmt.Errorf("no session named %q on %s", c.Session, date)
}

type TaskListCmd struct {
	Date string `short:"d" help:"Day to list (YYYY-MM-DD). Defaults to today."`
	Open bool   `help:"Show only unfinished tasks."`
}

func (c *TaskListCmd) Run(ctx *Context) error {
	date, err := ctx.day(c.Date)
	if err != nil {
		return err
	}
	sessions, err := ctx.Store.SessionsForDate(ctx, date)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		ctx.printf("No sessions on %s\n", date)
		return nil
	}

	for _, sess := range sessions {
		all, err := ctx.Store.TasksFor(ctx, date, sess.ID)
		if err != nil {
			return err
		}
		ctx.printf("%s (%s):\n", sess.Name, shortID(sess.ID))
		tasks := planner.ActiveTasks(all, date, sess.ID)
		if len(tasks) == 0 {
			ctx.printf("  no tasks\n")
			continue
		}
		for _, t := range tasks {
			if c.Open && t.IsCompleted {
				continue
			}
			ctx.printf("  %s\n", formatTaskLine(t))
		}
	}
	return nil
}

func formatTaskLine(t store.Task) string {
	mark := "[ ]"
	if t.IsCompleted {
		mark = "[x]"
	}
	line := fmt.Sprintf("%s %s  %s", mark, shortID(t.ID), t.Title)
	for _, tag := range t.Tags {
		line += " #" + tag
	}
	if t.TotalTimeMs > 0 {
		line += "  " + formatMinutes(t.TotalTimeMs)
	}
	if t.EstimatedMinutes != nil {
		line += fmt.Sprintf(" / est %dm", *t.EstimatedMinutes)
	}
	if t.Progress > 0 && !t.IsCompleted {
		line += fmt.Sprintf("  %d%%", t.Progress)
	}
	if t.IsRollover || t.RolloverCount > 0 {
		line += "  (rolled over)"
	}
	return line
}

type TaskDoneCmd struct {
	ID string `arg:"" help:"Task ID or unique prefix."`
}

func (c *TaskDoneCmd) Run(ctx *Context) error {
	t, err := resolveTask(ctx, c.ID)
	if err != nil {
		return err
	}
	if t.IsCompleted {
		ctx.printf("Already done: %s\n", t.Title)
		return nil
	}
	if err := ctx.Planner.ToggleCompletion(ctx, t.ID); err != nil {
		return err
	}
	ctx.printf("Completed: %s\n", t.Title)
	return nil
}

type TaskRmCmd struct {
	ID string `arg:"" help:"Task ID or unique prefix."`
}

func (c *TaskRmCmd) Run(ctx *Context) error {
	t, err := resolveTask(ctx, c.ID)
	if err != nil {
		return err
	}
	if err := ctx.Store.DeleteTask(ctx, t.ID); err != nil {
		return err
	}
	ctx.printf("Deleted task: %s (and its work logs)\n", t.Title)
	return nil
}
