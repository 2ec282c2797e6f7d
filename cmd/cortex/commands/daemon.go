package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/cortex/internal/daemon"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	ShutdownTimeout time.Duration `help:"Time allowed for graceful shutdown" default:"30s"`
}

func (d *DaemonCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dm, err := daemon.New(ctx, cfg, root.Config)
	if err != nil {
		return err
	}
	if err := dm.Run(ctx, d.ShutdownTimeout); err != nil {
		return err
	}
	slog.Info("Daemon stopped successfully")
	return nil
}
