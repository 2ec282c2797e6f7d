package exercises

import (
	"fmt"
	"path/filepath"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/cortex/internal/store"
)

// Descriptor is one exercise discovered on disk. It lives for a single scan pass.
type Descriptor struct {
	Name         string
	Language     string
	Path         string // exercises/<language>/practice/<name> with the host separator
	Instructions string
	Hints        string
	Title        string
	Fingerprint  string
}

// Eligible reports whether the descriptor carries any content worth storing.
func (d Descriptor) Eligible() bool {
	return d.Instructions != "" || d.Hints != ""
}

// Exercise converts the descriptor into its store representation.
func (d Descriptor) Exercise() store.Exercise {
	return store.Exercise{
		Name:         d.Name,
		Path:         d.Path,
		Language:     d.Language,
		Title:        d.Title,
		Instructions: d.Instructions,
		Hints:        d.Hints,
		Fingerprint:  d.Fingerprint,
	}
}

// ReferencePath builds the stable external reference key for an exercise.
func ReferencePath(language, name string) string {
	return filepath.Join(exercisesDir, language, practiceDir, name)
}

// fingerprint hashes identity and content so unchanged exercises keep the same value.
func fingerprint(d Descriptor) string {
	meta := fmt.Sprintf("language: %s\nname: %s", d.Language, d.Name)
	return mdfp.CalculateFingerprintFromParts(meta, d.Instructions+"\n"+d.Hints)
}
