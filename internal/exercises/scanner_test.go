package exercises

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fs billy.Filesystem, path, content string) {
	t.Helper()
	require.NoError(t, util.WriteFile(fs, path, []byte(content), 0o644))
}

func docPath(language, name, file string) string {
	return "exercises/" + language + "/practice/" + name + "/.docs/" + file
}

func TestScan_TwoFer(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, docPath("python", "two-fer", "instructions.md"), "Instructions")

	got, err := NewScanner(fs).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	d := got[0]
	require.Equal(t, "two-fer", d.Name)
	require.Equal(t, "python", d.Language)
	require.Equal(t, filepath.FromSlash("exercises/python/practice/two-fer"), d.Path)
	require.Equal(t, "Instructions", d.Instructions)
	require.Empty(t, d.Hints)
	require.NotEmpty(t, d.Fingerprint)
}

func TestScan_HiddenDirectoriesExcluded(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, docPath("go", "leap", "instructions.md"), "Leap years")
	writeFile(t, fs, docPath(".git", "objects", "instructions.md"), "not an exercise")
	writeFile(t, fs, docPath(".hidden", "x", "instructions.md"), "not an exercise")
	writeFile(t, fs, docPath("go", ".hidden", "instructions.md"), "not an exercise")
	writeFile(t, fs, docPath("go", ".git", "hints.md"), "not an exercise")

	got, err := NewScanner(fs).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "leap", got[0].Name)
}

func TestScan_EmptyContentDropped(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, docPath("go", "empty", "instructions.md"), "")
	require.NoError(t, fs.MkdirAll("exercises/go/practice/nodocs", 0o755))
	writeFile(t, fs, docPath("go", "hinted", "hints.md"), "Think about modulo")

	got, err := NewScanner(fs).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "hinted", got[0].Name)
	require.Empty(t, got[0].Instructions)
	require.Equal(t, "Think about modulo", got[0].Hints)
}

func TestScan_LanguageWithoutPractice(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll("exercises/cobol/concept", 0o755))
	writeFile(t, fs, docPath("rust", "clock", "instructions.md"), "Clock")

	got, err := NewScanner(fs).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "rust", got[0].Language)
}

func TestScan_MissingExercisesDir(t *testing.T) {
	got, err := NewScanner(memfs.New()).Scan(context.Background())
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestScan_OrderedAndRestartable(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, docPath("python", "b", "instructions.md"), "b")
	writeFile(t, fs, docPath("go", "z", "instructions.md"), "z")
	writeFile(t, fs, docPath("python", "a", "instructions.md"), "a")
	s := NewScanner(fs)

	first, err := s.Scan(context.Background())
	require.NoError(t, err)
	var names []string
	for _, d := range first {
		names = append(names, d.Language+"/"+d.Name)
	}
	require.Equal(t, []string{"go/z", "python/a", "python/b"}, names)

	writeFile(t, fs, docPath("python", "a", "instructions.md"), "changed")
	second, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, "changed", second[1].Instructions)
	require.NotEqual(t, first[1].Fingerprint, second[1].Fingerprint)
	require.Equal(t, "a", first[1].Instructions, "earlier results are not mutated")
}

func TestScan_UnreadableFileTreatedAsEmpty(t *testing.T) {
	root := t.TempDir()
	docs := filepath.Join(root, "exercises", "go", "practice", "bob", ".docs")
	// A directory where a file is expected makes the read fail.
	require.NoError(t, os.MkdirAll(filepath.Join(docs, "instructions.md"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "hints.md"), []byte("Hint"), 0o600))
	writeOK := filepath.Join(root, "exercises", "go", "practice", "anna", ".docs")
	require.NoError(t, os.MkdirAll(writeOK, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(writeOK, "instructions.md"), []byte("Anna"), 0o600))

	got, err := NewDirScanner(root).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "anna", got[0].Name)
	require.Equal(t, "bob", got[1].Name)
	require.Empty(t, got[1].Instructions)
	require.Equal(t, "Hint", got[1].Hints)
}

func TestExtractTitle(t *testing.T) {
	require.Equal(t, "Two Fer", extractTitle("# Two Fer\n\nCreate a sentence."))
	require.Equal(t, "Second level", extractTitle("intro\n\n## Second level\n"))
	require.Empty(t, extractTitle("no heading here"))
	require.Empty(t, extractTitle(""))
}
