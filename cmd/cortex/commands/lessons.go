package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/cortex/internal/store"
)

// LessonsCmd groups lesson management subcommands.
type LessonsCmd struct {
	Add LessonsAddCmd `cmd:"" help:"Create or rename a lesson"`
}

// LessonsAddCmd implements 'lessons add'.
type LessonsAddCmd struct {
	ID    int64  `arg:"" help:"Lesson ID"`
	Title string `arg:"" help:"Lesson title"`
}

func (l *LessonsAddCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	if err := st.UpsertLesson(ctx, store.Lesson{ID: l.ID, Title: l.Title}); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "Lesson %d saved\n", l.ID)
	return nil
}
