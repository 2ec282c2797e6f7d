package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyMode       = "mode"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyJobID      = "job_id"
	KeyRepo       = "repository"
	KeyURL        = "url"
	KeyBranch     = "branch"
	KeyCommit     = "commit"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyExercise   = "exercise"
	KeyLanguage   = "language"
	KeyLessonID   = "lesson_id"
	KeyUserID     = "user_id"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr        { return slog.String(KeyRunID, id) }
func Mode(m string) slog.Attr          { return slog.String(KeyMode, m) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func JobID(id string) slog.Attr        { return slog.String(KeyJobID, id) }
func Repository(r string) slog.Attr    { return slog.String(KeyRepo, r) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }
func Branch(b string) slog.Attr        { return slog.String(KeyBranch, b) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func File(f string) slog.Attr          { return slog.String(KeyFile, f) }
func Exercise(name string) slog.Attr   { return slog.String(KeyExercise, name) }
func Language(name string) slog.Attr   { return slog.String(KeyLanguage, name) }
func LessonID(id int64) slog.Attr      { return slog.Int64(KeyLessonID, id) }
func UserID(id int64) slog.Attr        { return slog.Int64(KeyUserID, id) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}

// Commit logs the abbreviated form of a commit hash.
func Commit(hash string) slog.Attr {
	if len(hash) > 8 {
		hash = hash[:8]
	}
	return slog.String(KeyCommit, hash)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
