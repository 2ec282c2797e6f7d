package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	json "github.com/goccy/go-json"

	"git.home.luguber.info/inful/cortex/internal/exercises"
)

// ScanCmd implements the 'scan' command. It never touches the store.
type ScanCmd struct {
	Root string `arg:"" help:"Working copy root containing the exercises directory" type:"existingdir"`
	JSON bool   `help:"Print descriptors as JSON"`
}

type scanEntry struct {
	Name        string `json:"name"`
	Language    string `json:"language"`
	Path        string `json:"path"`
	Title       string `json:"title,omitempty"`
	Fingerprint string `json:"fingerprint"`
	HasHints    bool   `json:"has_hints"`
}

func (s *ScanCmd) Run(g *Global) error {
	descriptors, err := exercises.NewDirScanner(s.Root).Scan(context.Background())
	if err != nil {
		return err
	}

	entries := make([]scanEntry, 0, len(descriptors))
	for _, d := range descriptors {
		entries = append(entries, scanEntry{
			Name:        d.Name,
			Language:    d.Language,
			Path:        d.Path,
			Title:       d.Title,
			Fingerprint: d.Fingerprint,
			HasHints:    d.Hints != "",
		})
	}

	w := g.out()
	if s.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "LANGUAGE\tEXERCISE\tTITLE\tPATH")
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Language, e.Name, e.Title, e.Path)
	}
	_, _ = fmt.Fprintf(tw, "\n%d exercises\n", len(entries))
	return tw.Flush()
}
