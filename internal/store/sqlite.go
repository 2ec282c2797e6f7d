package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and ensures
// the schema. Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS lessons (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS exercises (
		name TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		instructions TEXT NOT NULL DEFAULT '',
		hints TEXT NOT NULL DEFAULT '',
		fingerprint TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_exercises_language ON exercises(language);
	CREATE TABLE IF NOT EXISTS lesson_completions (
		lesson_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		completed_at INTEGER NOT NULL,
		PRIMARY KEY (lesson_id, user_id)
	);
	CREATE TABLE IF NOT EXISTS sync_state (
		repo_url TEXT PRIMARY KEY,
		branch TEXT NOT NULL,
		commit_hash TEXT NOT NULL,
		synced_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) AreLessonsAvailable(ctx context.Context) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM lessons)").Scan(&exists); err != nil {
		return false, wrapErr("lessons available", err)
	}
	return exists, nil
}

func (s *SQLiteStore) IsExerciseRepositoryEmpty(ctx context.Context) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM exercises)").Scan(&exists); err != nil {
		return false, wrapErr("exercises empty", err)
	}
	return !exists, nil
}

func (s *SQLiteStore) UpdateOrCreateExercise(ctx context.Context, ex Exercise) error {
	if ex.Name == "" {
		return wrapErr("upsert exercise", errEmptyName)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exercises (name, path, language, title, instructions, hints, fingerprint, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			path = excluded.path,
			language = excluded.language,
			title = excluded.title,
			instructions = excluded.instructions,
			hints = excluded.hints,
			fingerprint = excluded.fingerprint,
			updated_at = excluded.updated_at`,
		ex.Name, ex.Path, ex.Language, ex.Title, ex.Instructions, ex.Hints, ex.Fingerprint, time.Now().Unix(),
	)
	if err != nil {
		return wrapErr("upsert exercise", err)
	}
	return nil
}

func (s *SQLiteStore) ListExercises(ctx context.Context) ([]Exercise, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, path, language, title, instructions, hints, fingerprint, updated_at FROM exercises ORDER BY name")
	if err != nil {
		return nil, wrapErr("list exercises", err)
	}
	defer rows.Close()

	var out []Exercise
	for rows.Next() {
		var ex Exercise
		var updated int64
		if err := rows.Scan(&ex.Name, &ex.Path, &ex.Language, &ex.Title, &ex.Instructions, &ex.Hints, &ex.Fingerprint, &updated); err != nil {
			return nil, wrapErr("scan exercise", err)
		}
		ex.UpdatedAt = time.Unix(updated, 0).UTC()
		out = append(out, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate exercises", err)
	}
	return out, nil
}

func (s *SQLiteStore) UpsertLesson(ctx context.Context, lesson Lesson) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO lessons (id, title) VALUES (?, ?) ON CONFLICT (id) DO UPDATE SET title = excluded.title",
		lesson.ID, lesson.Title)
	return wrapErr("upsert lesson", err)
}

func (s *SQLiteStore) LessonExists(ctx context.Context, lessonID int64) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM lessons WHERE id = ?)", lessonID).Scan(&exists); err != nil {
		return false, wrapErr("lesson exists", err)
	}
	return exists, nil
}

func (s *SQLiteStore) RecordLessonCompletion(ctx context.Context, c LessonCompletion) error {
	completedAt := c.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO lesson_completions (lesson_id, user_id, completed_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING",
		c.LessonID, c.UserID, completedAt.Unix())
	return wrapErr("record completion", err)
}

func (s *SQLiteStore) CompletedLessons(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT lesson_id FROM lesson_completions WHERE user_id = ? ORDER BY lesson_id", userID)
	if err != nil {
		return nil, wrapErr("completed lessons", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr("scan completion", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate completions", err)
	}
	return ids, nil
}

func (s *SQLiteStore) RecordSyncState(ctx context.Context, st SyncState) error {
	syncedAt := st.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (repo_url, branch, commit_hash, synced_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (repo_url) DO UPDATE SET
			branch = excluded.branch,
			commit_hash = excluded.commit_hash,
			synced_at = excluded.synced_at`,
		st.RepoURL, st.Branch, st.Commit, syncedAt.Unix())
	return wrapErr("record sync state", err)
}

func (s *SQLiteStore) LoadSyncState(ctx context.Context, repoURL string) (SyncState, bool, error) {
	st := SyncState{RepoURL: repoURL}
	var syncedAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT branch, commit_hash, synced_at FROM sync_state WHERE repo_url = ?", repoURL).
		Scan(&st.Branch, &st.Commit, &syncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SyncState{}, false, nil
	}
	if err != nil {
		return SyncState{}, false, wrapErr("load sync state", err)
	}
	st.SyncedAt = time.Unix(syncedAt, 0).UTC()
	return st, true, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
