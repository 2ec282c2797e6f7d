package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

// run parses args like the binary does and executes the selected command.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("cortex"), kong.Vars{"version": "test"}, kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)

	var out bytes.Buffer
	err = kctx.Run(&Global{Out: &out}, &cli)
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `exercises:
  repo_url: https://example.com/exercises.git
  local_path: `+filepath.Join(dir, "mirror")+`
database:
  driver: sqlite
  dsn: `+filepath.Join(dir, "cortex.db")+`
`)
	return path
}

func TestScan_PrintsDescriptors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "exercises/python/practice/two-fer/.docs/instructions.md"), "# Two Fer\n\nInstructions")
	writeFile(t, filepath.Join(root, "exercises/python/practice/blank/.docs/hints.md"), "")

	out, err := run(t, "scan", root)
	require.NoError(t, err)
	require.Contains(t, out, "two-fer")
	require.Contains(t, out, "Two Fer")
	require.NotContains(t, out, "blank")
	require.Contains(t, out, "1 exercises")
}

func TestScan_JSON(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "exercises/go/practice/leap/.docs/hints.md"), "Use modulo")

	out, err := run(t, "scan", "--json", root)
	require.NoError(t, err)

	var entries []scanEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	require.Equal(t, "leap", entries[0].Name)
	require.Equal(t, filepath.Join("exercises", "go", "practice", "leap"), entries[0].Path)
	require.True(t, entries[0].HasHints)
	require.NotEmpty(t, entries[0].Fingerprint)
}

func TestInit_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := run(t, "-c", path, "init")
	require.NoError(t, err)
	require.Contains(t, out, "Initialized successfully")
	require.FileExists(t, path)

	_, err = run(t, "-c", path, "init")
	require.Error(t, err)

	_, err = run(t, "-c", path, "init", "--force")
	require.NoError(t, err)
}

func TestLessonsAddAndStatus(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := run(t, "-c", cfg, "status")
	require.NoError(t, err)
	require.Contains(t, out, "Last sync:  never")
	require.Contains(t, out, "Lessons:    false")

	_, err = run(t, "-c", cfg, "lessons", "add", "1", "Intro")
	require.NoError(t, err)

	out, err = run(t, "-c", cfg, "status")
	require.NoError(t, err)
	require.Contains(t, out, "Lessons:    true")
	require.Contains(t, out, "Exercises:  0")
}

func TestSync_SkipsWithoutLessons(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := run(t, "-c", cfg, "sync")
	require.NoError(t, err)
	require.Contains(t, out, "sync skipped")
}

func TestMigrate_SQLite(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := run(t, "-c", cfg, "migrate")
	require.NoError(t, err)
	require.Contains(t, out, "Schema up to date (sqlite)")
}
