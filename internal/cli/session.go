package cli

import (
	"fmt"
	"strings"
)

type SessionNewCmd struct {
	Date string `short:"d" help:"Day of the session (YYYY-MM-DD). Defaults to today."`
}

func (c *SessionNewCmd) Run(ctx *Context) error {
	date, err := ctx.day(c.Date)
	if err != nil {
		return err
	}
	sess, err := ctx.Planner.NewSession(ctx, date)
	if err != nil {
		return err
	}
	ctx.printf("Created session: %s (ID: %s) on %s\n", sess.Name, shortID(sess.ID), date)
	return nil
}

type SessionListCmd struct {
	Date string `short:"d" help:"Day to list (YYYY-MM-DD). Defaults to today."`
}

func (c *SessionListCmd) Run(ctx *Context) error {
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
	ctx.printf("Sessions on %s:\n", date)
	for _, s := range sessions {
		tasks, err := ctx.Store.TasksFor(ctx, date, s.ID)
		if err != nil {
			return err
		}
		done := 0
		for _, t := range tasks {
			if t.IsCompleted {
				done++
			}
		}
		ctx.printf("  %s  %s  %d/%d done\n", shortID(s.ID), s.Name, done, len(tasks))
	}
	return nil
}

type SessionRenameCmd struct {
	ID   string `arg:"" help:"Session ID or unique prefix."`
	Name string `arg:"" help:"New name."`
}

func (c *SessionRenameCmd) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("session name must not be blank")
	}
	return nil
}

func (c *SessionRenameCmd) Run(ctx *Context) error {
	sess, err := resolveSession(ctx, c.ID)
	if err != nil {
		return err
	}
	if err := ctx.Planner.RenameSession(ctx, sess.ID, c.Name); err != nil {
		return err
	}
	ctx.printf("Renamed %s to %s\n", sess.Name, c.Name)
	return nil
}

type SessionRmCmd struct {
	ID string `arg:"" help:"Session ID or unique prefix."`
}

func (c *SessionRmCmd) Run(ctx *Context) error {
	sess, err := resolveSession(ctx, c.ID)
	if err != nil {
		return err
	}
	if err := ctx.Store.DeleteSession(ctx, sess.ID); err != nil {
		return err
	}
	ctx.printf("Deleted session: %s (and its tasks)\n", sess.Name)
	return nil
}
