package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"
)

var errMemoryClosed = errors.New("memory store closed")

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	exercises   map[string]Exercise
	lessons     map[int64]Lesson
	completions map[[2]int64]LessonCompletion
	syncStates  map[string]SyncState
	closed      bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		exercises:   make(map[string]Exercise),
		lessons:     make(map[int64]Lesson),
		completions: make(map[[2]int64]LessonCompletion),
		syncStates:  make(map[string]SyncState),
	}
}

func (m *MemoryStore) checkOpen(op string) error {
	if m.closed {
		return unavailableErr(op, errMemoryClosed)
	}
	return nil
}

func (m *MemoryStore) AreLessonsAvailable(_ context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkOpen("lessons available"); err != nil {
		return false, err
	}
	return len(m.lessons) > 0, nil
}

func (m *MemoryStore) IsExerciseRepositoryEmpty(_ context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkOpen("exercises empty"); err != nil {
		return false, err
	}
	return len(m.exercises) == 0, nil
}

func (m *MemoryStore) UpdateOrCreateExercise(_ context.Context, ex Exercise) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen("upsert exercise"); err != nil {
		return err
	}
	if ex.Name == "" {
		return wrapErr("upsert exercise", errEmptyName)
	}
	ex.UpdatedAt = time.Now().UTC()
	m.exercises[ex.Name] = ex
	return nil
}

func (m *MemoryStore) ListExercises(_ context.Context) ([]Exercise, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkOpen("list exercises"); err != nil {
		return nil, err
	}
	out := make([]Exercise, 0, len(m.exercises))
	for _, ex := range m.exercises {
		out = append(out, ex)
	}
	slices.SortFunc(out, func(a, b Exercise) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (m *MemoryStore) UpsertLesson(_ context.Context, lesson Lesson) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen("upsert lesson"); err != nil {
		return err
	}
	m.lessons[lesson.ID] = lesson
	return nil
}

func (m *MemoryStore) LessonExists(_ context.Context, lessonID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkOpen("lesson exists"); err != nil {
		return false, err
	}
	_, ok := m.lessons[lessonID]
	return ok, nil
}

func (m *MemoryStore) RecordLessonCompletion(_ context.Context, c LessonCompletion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen("record completion"); err != nil {
		return err
	}
	key := [2]int64{c.LessonID, c.UserID}
	if _, done := m.completions[key]; done {
		return nil
	}
	if c.CompletedAt.IsZero() {
		c.CompletedAt = time.Now().UTC()
	}
	m.completions[key] = c
	return nil
}

func (m *MemoryStore) CompletedLessons(_ context.Context, userID int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkOpen("completed lessons"); err != nil {
		return nil, err
	}
	var ids []int64
	for key := range m.completions {
		if key[1] == userID {
			ids = append(ids, key[0])
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *MemoryStore) RecordSyncState(_ context.Context, s SyncState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen("record sync state"); err != nil {
		return err
	}
	m.syncStates[s.RepoURL] = s
	return nil
}

func (m *MemoryStore) LoadSyncState(_ context.Context, repoURL string) (SyncState, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkOpen("load sync state"); err != nil {
		return SyncState{}, false, err
	}
	s, ok := m.syncStates[repoURL]
	return s, ok, nil
}

// Close marks the store closed; later calls report the store as unavailable.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
