package cli

import (
	"errors"
	"fmt"
	"os"
)

type MaintainCmd struct {
	Date string `help:"Run as if today were this day (YYYY-MM-DD)."`
}

func (c *MaintainCmd) Run(ctx *Context) error {
	date, err := ctx.day(c.Date)
	if err != nil {
		return err
	}
	rep, err := ctx.Routine.Perform(ctx, date)
	if err != nil {
		return err
	}

	ctx.printf("Maintenance for %s:\n", rep.Today)
	if rep.SessionCreated {
		ctx.printf("  created the default session\n")
	}
	ctx.printf("  rolled over %d unfinished task(s)\n", rep.RolledOver)
	if rep.Prune.Empty() {
		ctx.printf("  nothing to prune\n")
	} else {
		ctx.printf("  pruned %d log(s), %d task(s), %d session(s) before %s\n",
			rep.Prune.WorkLogs, rep.Prune.Tasks, rep.Prune.Sessions, rep.Prune.Cutoff)
	}
	return nil
}

type PruneCmd struct {
	Days int `help:"Keep this many days of history. Defaults to --retention-days."`
}

func (c *PruneCmd) Run(ctx *Context) error {
	days := c.Days
	if days <= 0 {
		days = ctx.RetentionDays
	}
	rep, err := ctx.Routine.Prune(ctx, ctx.today(), days)
	if err != nil {
		return err
	}
	if rep.Empty() {
		ctx.printf("Nothing older than %s\n", rep.Cutoff)
		return nil
	}
	ctx.printf("Archived and removed history before %s:\n", rep.Cutoff)
	ctx.printf("  %d work log(s), %d task(s), %d session(s)\n", rep.WorkLogs, rep.Tasks, rep.Sessions)
	ctx.printf("  %s of focus, %d completed task(s)\n", formatMinutes(rep.FocusMs), rep.TasksCompleted)
	return nil
}

type ResetCmd struct {
	Yes bool `help:"Confirm deleting every task, session, work log, setting and archive total."`
}

func (c *ResetCmd) Run(ctx *Context) error {
	if !c.Yes {
		return errors.New("refusing to reset without --yes")
	}
	if err := ctx.Store.ResetDatabase(ctx); err != nil {
		return err
	}
	ctx.printf("Database reset\n")
	return nil
}

type ImportCmd struct {
	File string `arg:"" type:"existingfile" help:"Legacy JSON export to import."`
}

func (c *ImportCmd) Run(ctx *Context) error {
	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("open legacy file: %w", err)
	}
	defer f.Close()

	res, err := ctx.Store.ImportLegacy(ctx, f)
	if err != nil {
		return err
	}
	if !res.Imported {
		ctx.printf("Skipped: legacy data was already imported or the database is not empty\n")
		return nil
	}
	ctx.printf("Imported %d session(s), %d task(s), %d work log(s)\n", res.Sessions, res.Tasks, res.WorkLogs)
	if res.DroppedTasks > 0 || res.DroppedWorkLogs > 0 {
		ctx.printf("Dropped %d orphaned task(s) and %d orphaned work log(s)\n", res.DroppedTasks, res.DroppedWorkLogs)
	}
	return nil
}
