package commands

import (
	"context"
	"fmt"
	"time"
)

// StatusCmd implements the 'status' command.
type StatusCmd struct{}

func (s *StatusCmd) Run(g *Global, root *CLI) error {
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

	w := g.out()
	_, _ = fmt.Fprintf(w, "Remote:     %s (%s)\n", cfg.Exercises.RepoURL, cfg.Exercises.Branch)
	_, _ = fmt.Fprintf(w, "Local path: %s\n", cfg.Exercises.LocalPath)

	state, ok, err := st.LoadSyncState(ctx, cfg.Exercises.RepoURL)
	if err != nil {
		return err
	}
	if ok {
		_, _ = fmt.Fprintf(w, "Last sync:  %s at %s\n", shortCommit(state.Commit), state.SyncedAt.Local().Format(time.RFC3339))
	} else {
		_, _ = fmt.Fprintln(w, "Last sync:  never")
	}

	list, err := st.ListExercises(ctx)
	if err != nil {
		return err
	}
	available, err := st.AreLessonsAvailable(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Exercises:  %d\n", len(list))
	_, _ = fmt.Fprintf(w, "Lessons:    %t\n", available)
	return nil
}
