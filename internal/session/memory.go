package session

import (
	"context"

	"github.com/tyler2w2/social-media-ai/internal/model"
)

// RecordMemory appends an entry with a fresh monotonic id and the
// current timestamp, evicts from the front past the capacity, and
// persists the full log. Eviction is strict FIFO by insertion order,
// independent of kind.
func (s *UserSession) RecordMemory(ctx context.Context, content string, kind model.MemoryKind) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	entry := model.MemoryEntry{
		ID:        s.nextMemoryID(),
		Content:   content,
		Kind:      kind,
		Timestamp: s.m.now(),
		UserID:    s.st.user.ID,
	}
	s.st.memory = append(s.st.memory, entry)
	if excess := len(s.st.memory) - model.MemoryCapacity; excess > 0 {
		s.st.memory = append([]model.MemoryEntry(nil), s.st.memory[excess:]...)
	}
	return s.persistMemory(ctx)
}

// RecentMemory returns the last n entries, most recent first.
func (s *UserSession) RecentMemory(n int) ([]model.MemoryEntry, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if n > len(s.st.memory) {
		n = len(s.st.memory)
	}
	out := make([]model.MemoryEntry, 0, n)
	for i := len(s.st.memory) - 1; i >= len(s.st.memory)-n; i-- {
		out = append(out, s.st.memory[i])
	}
	return out, nil
}

// MemoryByKind returns all entries of the given kind in chronological
// order. Generation uses a suffix of the content_generation entries as
// context.
func (s *UserSession) MemoryByKind(kind model.MemoryKind) ([]model.MemoryEntry, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	var out []model.MemoryEntry
	for _, e := range s.st.memory {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out, nil
}

// nextMemoryID returns a time-based id that never repeats or goes
// backwards, even when two entries land on the same millisecond.
// Callers hold st.mu.
func (s *UserSession) nextMemoryID() int64 {
	id := s.m.now().UnixMilli()
	if id <= s.st.lastMemoryID {
		id = s.st.lastMemoryID + 1
	}
	s.st.lastMemoryID = id
	return id
}

// RecordMemory appends to the current user's memory log.
func (m *Manager) RecordMemory(ctx context.Context, content string, kind model.MemoryKind) error {
	s, err := m.currentSession()
	if err != nil {
		return err
	}
	return s.RecordMemory(ctx, content, kind)
}

// RecentMemory returns the current user's last n entries, newest
// first.
func (m *Manager) RecentMemory(n int) ([]model.MemoryEntry, error) {
	s, err := m.currentSession()
	if err != nil {
		return nil, err
	}
	return s.RecentMemory(n)
}

// MemoryByKind filters the current user's memory log by kind.
func (m *Manager) MemoryByKind(kind model.MemoryKind) ([]model.MemoryEntry, error) {
	s, err := m.currentSession()
	if err != nil {
		return nil, err
	}
	return s.MemoryByKind(kind)
}
