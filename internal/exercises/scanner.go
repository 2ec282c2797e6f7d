package exercises

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"git.home.luguber.info/inful/cortex/internal/logfields"
)

const (
	exercisesDir     = "exercises"
	practiceDir      = "practice"
	docsDir          = ".docs"
	instructionsFile = "instructions.md"
	hintsFile        = "hints.md"
)

// ScanIOError reports an unreadable instructions or hints file. The scanner
// recovers from it by treating the file as empty.
type ScanIOError struct {
	Path string
	Err  error
}

func (e *ScanIOError) Error() string { return fmt.Sprintf("read %s: %v", e.Path, e.Err) }
func (e *ScanIOError) Unwrap() error { return e.Err }

// Scanner walks a mirrored working copy and produces exercise descriptors.
type Scanner struct {
	fs billy.Filesystem
}

// NewScanner creates a scanner rooted at the given filesystem.
func NewScanner(fs billy.Filesystem) *Scanner { return &Scanner{fs: fs} }

// NewDirScanner creates a scanner rooted at a directory on the host filesystem.
func NewDirScanner(root string) *Scanner { return NewScanner(osfs.New(root)) }

// Scan recomputes the full descriptor set. Descriptors without instructions and
// hints are dropped. Results are ordered by language, then exercise name. A
// missing exercises directory yields an empty result.
func (s *Scanner) Scan(ctx context.Context) ([]Descriptor, error) {
	languages, err := s.listDirs(exercisesDir)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("Exercises directory does not exist", logfields.Path(exercisesDir))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", exercisesDir, err)
	}

	var out []Descriptor
	dropped := 0
	for _, language := range languages {
		practice := s.fs.Join(exercisesDir, language, practiceDir)
		names, err := s.listDirs(practice)
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("Language has no practice directory, skipping", logfields.Language(language))
			continue
		}
		if err != nil {
			slog.Warn("Failed to list practice directory", logfields.Language(language), logfields.Error(err))
			continue
		}

		for _, name := range names {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			d := s.describe(language, name)
			if !d.Eligible() {
				slog.Warn("Exercise has no instructions or hints, skipping", logfields.Language(language), logfields.Exercise(name))
				dropped++
				continue
			}
			out = append(out, d)
		}
	}

	slog.Debug("Scan complete", logfields.Count(len(out)), slog.Int("dropped", dropped))
	return out, nil
}

func (s *Scanner) describe(language, name string) Descriptor {
	base := s.fs.Join(exercisesDir, language, practiceDir, name, docsDir)
	d := Descriptor{
		Name:         name,
		Language:     language,
		Path:         ReferencePath(language, name),
		Instructions: s.readDoc(s.fs.Join(base, instructionsFile)),
		Hints:        s.readDoc(s.fs.Join(base, hintsFile)),
	}
	d.Title = extractTitle(d.Instructions)
	d.Fingerprint = fingerprint(d)
	return d
}

// readDoc returns the file content, or "" when it is missing or unreadable.
func (s *Scanner) readDoc(path string) string {
	data, err := util.ReadFile(s.fs, path)
	if err == nil {
		return string(data)
	}
	if !errors.Is(err, os.ErrNotExist) {
		scanErr := &ScanIOError{Path: path, Err: err}
		slog.Warn("Failed to read exercise document", logfields.File(path), logfields.Error(scanErr))
	}
	return ""
}

// listDirs returns the sorted names of visible subdirectories of dir.
func (s *Scanner) listDirs(dir string) ([]string, error) {
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || isHidden(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
