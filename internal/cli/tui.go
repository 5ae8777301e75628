package cli

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/focussplit/internal/maintenance"
	"github.com/sadopc/focussplit/internal/tui"
)

type TuiCmd struct{}

// Run starts the interface next to the maintenance runner. Whichever ends
// first stops the other.
func (c *TuiCmd) Run(ctx *Context) error {
	app := tui.NewApp(tui.Deps{
		Store:   ctx.Store,
		Planner: ctx.Planner,
		Beeper:  ctx.Beeper,
		Today:   ctx.Today,
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))

	runner := maintenance.NewRunner(ctx.Routine, 0)
	runner.OnPass(func(r maintenance.Report) {
		p.Send(tui.MaintenanceMsg(r))
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, runCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return runner.Run(runCtx)
	})
	g.Go(func() error {
		defer cancel()
		final, err := p.Run()
		if a, ok := final.(tui.App); ok {
			a.Close()
		}
		return programExit(ctx, err)
	})
	return g.Wait()
}

// programExit treats a program killed by a cancelled context, such as on
// SIGINT, as a normal exit.
func programExit(ctx context.Context, err error) error {
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
