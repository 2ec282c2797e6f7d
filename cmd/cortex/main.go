package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/cortex/cmd/cortex/commands"
	ferrors "git.home.luguber.info/inful/cortex/internal/foundation/errors"
	"git.home.luguber.info/inful/cortex/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("cortex"),
		kong.Description("Mirror coding exercises from git and keep the exercise store in sync."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := ctx.Run(&commands.Global{Logger: slog.Default()}, &cli)
	if err != nil {
		ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
	os.Exit(0)
}
