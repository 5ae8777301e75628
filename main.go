package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/sadopc/focussplit/internal/cli"
	"github.com/sadopc/focussplit/internal/config"
	"github.com/sadopc/focussplit/internal/logger"
	"github.com/sadopc/focussplit/internal/maintenance"
	"github.com/sadopc/focussplit/internal/planner"
	"github.com/sadopc/focussplit/internal/sound"
	"github.com/sadopc/focussplit/internal/store"
)

var version = "dev"

var CLI struct {
	Version       kong.VersionFlag `help:"Print the version and exit."`
	DB            string           `name:"db" help:"Database file." type:"path" env:"FOCUSSPLIT_DB"`
	Debug         bool             `help:"Log at debug level and mirror logs to stderr." env:"FOCUSSPLIT_DEBUG"`
	RetentionDays int              `help:"Days of history kept before pruning." default:"${retention}"`
	Legacy        string           `help:"Legacy JSON file imported on first start." type:"path" env:"FOCUSSPLIT_LEGACY"`

	Tui      cli.TuiCmd      `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Maintain cli.MaintainCmd `cmd:"" help:"Run the daily maintenance pass."`
	Prune    cli.PruneCmd    `cmd:"" help:"Archive and delete old history."`
	Reset    cli.ResetCmd    `cmd:"" help:"Delete all data."`
	Import   cli.ImportCmd   `cmd:"" help:"Import a legacy JSON export."`
	Stats    cli.StatsCmd    `cmd:"" help:"Summarize focus time."`
	Export   cli.ExportCmd   `cmd:"" help:"Export work logs as CSV or JSON."`
	Bank     cli.BankCmd     `cmd:"" help:"Show the time bank."`
	Task     struct {
		Add  cli.TaskAddCmd  `cmd:"" help:"Add a task."`
		List cli.TaskListCmd `cmd:"" help:"List a day's tasks."`
		Done cli.TaskDoneCmd `cmd:"" help:"Mark a task done."`
		Rm   cli.TaskRmCmd   `cmd:"" help:"Delete a task and its work logs."`
	} `cmd:"" help:"Manage tasks."`
	Session struct {
		New    cli.SessionNewCmd    `cmd:"" help:"Add a session to a day."`
		List   cli.SessionListCmd   `cmd:"" help:"List a day's sessions."`
		Rename cli.SessionRenameCmd `cmd:"" help:"Rename a session."`
		Rm     cli.SessionRmCmd     `cmd:"" help:"Delete a session and its tasks."`
	} `cmd:"" help:"Manage sessions."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(config.AppName),
		kong.Description("Split focus time across tasks and bank it for breaks"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true, NoExpandSubcommands: true}),
		kong.Vars{
			"version":   version,
			"retention": strconv.Itoa(config.DefaultRetentionDays),
		},
	)

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx *kong.Context) error {
	paths, err := config.DefaultPaths()
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	if CLI.DB != "" {
		paths.DB = CLI.DB
	}
	if CLI.Legacy != "" {
		paths.Legacy = CLI.Legacy
	}

	if err := logger.Init(logger.Config{Debug: CLI.Debug, Dir: paths.Logs}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	s, err := store.New(paths.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !strings.HasPrefix(ctx.Command(), "import") {
		importLegacy(sigCtx, s, paths.Legacy)
	}

	appCtx := &cli.Context{
		Context:       sigCtx,
		Store:         s,
		Planner:       planner.New(s),
		Routine:       maintenance.New(s, CLI.RetentionDays),
		Beeper:        sound.NewPlayer(),
		Paths:         paths,
		RetentionDays: CLI.RetentionDays,
	}
	return ctx.Run(appCtx)
}

// importLegacy pulls in the legacy file on first start. Failures are logged
// and never block startup.
func importLegacy(ctx context.Context, s *store.Store, path string) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		logger.Warn("open legacy file", "path", path, "err", err)
		return
	}
	defer f.Close()

	done, err := s.LegacyImported(ctx)
	if err != nil || done {
		return
	}
	res, err := s.ImportLegacy(ctx, f)
	if err != nil {
		logger.Error("legacy import failed", "path", path, "err", err)
		return
	}
	if res.Imported {
		logger.Info("imported legacy data", "path", path, "tasks", res.Tasks, "logs", res.WorkLogs)
	}
}
