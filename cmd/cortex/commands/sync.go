package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/cortex/internal/daemon"
	"git.home.luguber.info/inful/cortex/internal/git"
)

// SyncCmd implements the 'sync' command.
type SyncCmd struct {
	Force bool `short:"f" help:"Rescan and reconcile even when the remote has no new commits"`
}

func (s *SyncCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	syncer := daemon.NewSyncer(git.NewClient(cfg.Exercises), st, cfg.Exercises.LocalPath)
	var rep daemon.Report
	if s.Force {
		rep, err = syncer.ForceSync(ctx)
	} else {
		rep, err = syncer.Initialize(ctx)
	}
	if err != nil {
		return err
	}
	printReport(g, rep)
	return nil
}

func printReport(g *Global, rep daemon.Report) {
	w := g.out()
	if rep.Skipped {
		_, _ = fmt.Fprintln(w, "No lessons available; sync skipped")
		return
	}
	if !rep.Changed {
		_, _ = fmt.Fprintf(w, "Up to date at %s (%s)\n", shortCommit(rep.Commit), rep.Mode)
		return
	}
	_, _ = fmt.Fprintf(w, "Synced %s (%s): %d upserted, %d failed, %d skipped in %s\n",
		shortCommit(rep.Commit), rep.Mode, rep.Result.Upserted, rep.Result.Failed, rep.Result.Skipped, rep.Duration.Round(time.Millisecond))
}

func shortCommit(c string) string {
	if len(c) > 8 {
		return c[:8]
	}
	if c == "" {
		return "unknown commit"
	}
	return c
}
