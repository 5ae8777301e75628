package cli

import (
	"fmt"

	"github.com/sadopc/focussplit/internal/analytics"
	"github.com/sadopc/focussplit/internal/engine"
	"github.com/sadopc/focussplit/internal/export"
	"github.com/sadopc/focussplit/internal/store"
)

type StatsCmd struct {
	Range string `short:"r" help:"Range to summarize (week|month|year|all)." enum:"week,month,year,all" default:"week"`
}

func (c *StatsCmd) Run(ctx *Context) error {
	rng, err := analytics.ParseRange(c.Range)
	if err != nil {
		return err
	}
	tasks, err := ctx.Store.ListTasks(ctx)
	if err != nil {
		return err
	}
	logs, err := ctx.Store.ListWorkLogs(ctx)
	if err != nil {
		return err
	}
	today := ctx.today()
	sum, err := analytics.Summarize(tasks, logs, rng, today)
	if err != nil {
		return err
	}
	streak := analytics.StreakOf(logs, today)

	ctx.printf("Focus over the last %s:\n", rng)
	ctx.printf("  Focus time:      %s\n", formatMinutes(sum.TotalFocusMs))
	ctx.printf("  Tasks completed: %d\n", sum.TasksCompleted)
	ctx.printf("  Streak:          %d day(s), best %d\n", streak.Current, streak.Best)
	if len(sum.Tags) > 0 {
		ctx.printf("Tags:\n")
		for _, t := range sum.Tags {
			ctx.printf("  #%-16s %dm\n", t.Tag, t.Minutes)
		}
	}

	archive, err := ctx.Store.GetArchive(ctx)
	if err != nil {
		return err
	}
	if archive.LastPrunedDate != "" {
		ctx.printf("Archived: %s of focus, %d task(s), last pruned %s\n",
			formatMinutes(archive.TotalFocusMs), archive.TotalTasksCompleted, archive.LastPrunedDate)
	}
	return nil
}

type BankCmd struct{}

func (c *BankCmd) Run(ctx *Context) error {
	s, err := ctx.Store.GetSettings(ctx)
	if err != nil {
		return err
	}
	tier := engine.Tier(s.EarningRatio)
	ctx.printf("Time bank: %s min\n", engine.FormatBank(s.TimeBankMinutes))
	ctx.printf("Earning ratio: %d:1 (%s)\n", s.EarningRatio, tier.Label)
	return nil
}

type ExportCmd struct {
	Format string `short:"f" help:"Output format (csv|json)." enum:"csv,json" default:"csv"`
	Path   string `arg:"" optional:"" type:"path" help:"Output file. Defaults to focussplit-export-<today>.<format> in the current directory."`
}

func (c *ExportCmd) Run(ctx *Context) error {
	logs, err := ctx.Store.ListWorkLogs(ctx)
	if err != nil {
		return err
	}
	list, err := ctx.Store.ListTasks(ctx)
	if err != nil {
		return err
	}
	tasks := make(map[string]store.Task, len(list))
	for _, t := range list {
		tasks[t.ID] = t
	}

	path := c.Path
	if path == "" {
		path = fmt.Sprintf("focussplit-export-%s.%s", ctx.today(), c.Format)
	}
	switch c.Format {
	case "json":
		err = export.ToJSON(logs, tasks, path)
	default:
		err = export.ToCSV(logs, tasks, path)
	}
	if err != nil {
		return err
	}
	ctx.printf("Exported %d work log(s) to %s\n", len(logs), path)
	return nil
}
