package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/cortex/internal/config"
	"git.home.luguber.info/inful/cortex/internal/store"
)

// MigrateCmd implements the 'migrate' command.
type MigrateCmd struct{}

func (m *MigrateCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	ctx := context.Background()

	if cfg.Database.Driver == config.DatabasePostgres {
		if err := store.Migrate(ctx, cfg.Database.DSN); err != nil {
			return err
		}
	} else {
		// SQLite and memory stores create their schema when opened.
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		closeStore(st)
	}
	_, _ = fmt.Fprintf(g.out(), "Schema up to date (%s)\n", cfg.Database.Driver)
	return nil
}
