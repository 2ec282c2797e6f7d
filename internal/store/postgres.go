package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a pgx connection pool. The schema is owned
// by Migrate.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore backed by the provided pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const (
	exerciseUpsertSQL = `
INSERT INTO exercises (
    name,
    path,
    language,
    title,
    instructions,
    hints,
    fingerprint,
    updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
ON CONFLICT (name) DO UPDATE SET
    path = EXCLUDED.path,
    language = EXCLUDED.language,
    title = EXCLUDED.title,
    instructions = EXCLUDED.instructions,
    hints = EXCLUDED.hints,
    fingerprint = EXCLUDED.fingerprint,
    updated_at = NOW();
`
	exerciseListSQL = `
SELECT name, path, language, title, instructions, hints, fingerprint, updated_at
FROM exercises
ORDER BY name;
`
	lessonUpsertSQL = `
INSERT INTO lessons (id, title)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title;
`
	completionInsertSQL = `
INSERT INTO lesson_completions (lesson_id, user_id, completed_at)
VALUES ($1, $2, $3)
ON CONFLICT (lesson_id, user_id) DO NOTHING;
`
	syncStateUpsertSQL = `
INSERT INTO sync_state (repo_url, branch, commit_hash, synced_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (repo_url) DO UPDATE SET
    branch = EXCLUDED.branch,
    commit_hash = EXCLUDED.commit_hash,
    synced_at = EXCLUDED.synced_at;
`
)

func (s *PostgresStore) AreLessonsAvailable(ctx context.Context) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM lessons);`).Scan(&exists); err != nil {
		return false, wrapErr("lessons available", err)
	}
	return exists, nil
}

func (s *PostgresStore) IsExerciseRepositoryEmpty(ctx context.Context) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM exercises);`).Scan(&exists); err != nil {
		return false, wrapErr("exercises empty", err)
	}
	return !exists, nil
}

func (s *PostgresStore) UpdateOrCreateExercise(ctx context.Context, ex Exercise) error {
	if ex.Name == "" {
		return wrapErr("upsert exercise", errEmptyName)
	}
	_, err := s.pool.Exec(ctx, exerciseUpsertSQL,
		ex.Name, ex.Path, ex.Language, ex.Title, ex.Instructions, ex.Hints, ex.Fingerprint)
	return wrapErr("upsert exercise", err)
}

func (s *PostgresStore) ListExercises(ctx context.Context) ([]Exercise, error) {
	rows, err := s.pool.Query(ctx, exerciseListSQL)
	if err != nil {
		return nil, wrapErr("list exercises", err)
	}
	defer rows.Close()

	var out []Exercise
	for rows.Next() {
		var ex Exercise
		if err := rows.Scan(&ex.Name, &ex.Path, &ex.Language, &ex.Title, &ex.Instructions, &ex.Hints, &ex.Fingerprint, &ex.UpdatedAt); err != nil {
			return nil, wrapErr("scan exercise", err)
		}
		out = append(out, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate exercises", err)
	}
	return out, nil
}

func (s *PostgresStore) UpsertLesson(ctx context.Context, lesson Lesson) error {
	_, err := s.pool.Exec(ctx, lessonUpsertSQL, lesson.ID, lesson.Title)
	return wrapErr("upsert lesson", err)
}

func (s *PostgresStore) LessonExists(ctx context.Context, lessonID int64) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM lessons WHERE id = $1);`, lessonID).Scan(&exists); err != nil {
		return false, wrapErr("lesson exists", err)
	}
	return exists, nil
}

func (s *PostgresStore) RecordLessonCompletion(ctx context.Context, c LessonCompletion) error {
	completedAt := c.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, completionInsertSQL, c.LessonID, c.UserID, completedAt)
	return wrapErr("record completion", err)
}

func (s *PostgresStore) CompletedLessons(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT lesson_id FROM lesson_completions WHERE user_id = $1 ORDER BY lesson_id;`, userID)
	if err != nil {
		return nil, wrapErr("completed lessons", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, wrapErr("collect completions", err)
	}
	return ids, nil
}

func (s *PostgresStore) RecordSyncState(ctx context.Context, st SyncState) error {
	syncedAt := st.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, syncStateUpsertSQL, st.RepoURL, st.Branch, st.Commit, syncedAt)
	return wrapErr("record sync state", err)
}

func (s *PostgresStore) LoadSyncState(ctx context.Context, repoURL string) (SyncState, bool, error) {
	st := SyncState{RepoURL: repoURL}
	err := s.pool.QueryRow(ctx,
		`SELECT branch, commit_hash, synced_at FROM sync_state WHERE repo_url = $1;`, repoURL).
		Scan(&st.Branch, &st.Commit, &st.SyncedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SyncState{}, false, nil
	}
	if err != nil {
		return SyncState{}, false, wrapErr("load sync state", err)
	}
	return st, true, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
