// Package commands implements the cortex CLI subcommands.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/cortex/internal/config"
	"git.home.luguber.info/inful/cortex/internal/store"
)

// Global carries state shared by all subcommands.
type Global struct {
	Logger *slog.Logger
	// Out receives human-readable command output; nil means stdout.
	Out io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"config.yaml" env:"CORTEX_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Daemon  DaemonCmd  `cmd:"" help:"Run the startup sync, then sync on a fixed interval"`
	Sync    SyncCmd    `cmd:"" help:"Run a single sync invocation and exit"`
	Scan    ScanCmd    `cmd:"" help:"List the exercises found in a local working copy"`
	Migrate MigrateCmd `cmd:"" help:"Apply the exercise store schema"`
	Status  StatusCmd  `cmd:"" help:"Show the last recorded sync and stored exercise count"`
	Lessons LessonsCmd `cmd:"" help:"Manage lessons that gate exercise sync"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
}

// AfterApply installs a default logger before any command runs. Commands
// that load configuration replace it with the configured one.
func (c *CLI) AfterApply() error {
	slog.SetDefault(config.NewLogger(config.LoggingConfig{}, c.Verbose))
	return nil
}

// loadConfig loads configuration and installs the configured logger.
func loadConfig(g *Global, root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	logger := config.NewLogger(cfg.Logging, root.Verbose)
	slog.SetDefault(logger)
	if g != nil {
		g.Logger = logger
	}
	return cfg, nil
}

// openStore opens the configured store; the caller closes it.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	return store.Open(ctx, cfg.Database)
}

func closeStore(st store.Store) {
	if err := st.Close(); err != nil {
		slog.Warn("Failed to close store", "error", err)
	}
}
