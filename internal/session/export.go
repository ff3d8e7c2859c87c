package session

import (
	"context"
	"time"

	"github.com/tyler2w2/social-media-ai/internal/model"
)

// ExportPayload is the full downloadable copy of a user's session
// data.
type ExportPayload struct {
	User          model.User          `json:"user"`
	Conversations []model.Message     `json:"conversations"`
	Memory        []model.MemoryEntry `json:"memory"`
	ExportDate    time.Time           `json:"export_date"`
}

// Export assembles the bound user's data for download. Read-only.
func (s *UserSession) Export(ctx context.Context) (ExportPayload, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	conv := make([]model.Message, len(s.st.conversation))
	copy(conv, s.st.conversation)
	mem := make([]model.MemoryEntry, len(s.st.memory))
	copy(mem, s.st.memory)
	return ExportPayload{
		User:          s.st.user,
		Conversations: conv,
		Memory:        mem,
		ExportDate:    s.m.now(),
	}, nil
}

// Export assembles the current user's data for download.
func (m *Manager) Export(ctx context.Context) (ExportPayload, error) {
	s, err := m.currentSession()
	if err != nil {
		return ExportPayload{}, err
	}
	return s.Export(ctx)
}

// SetClock overrides the manager's time source. Tests use it to
// simulate date rollover.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}
