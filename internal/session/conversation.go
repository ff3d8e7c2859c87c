package session

import (
	"context"

	"github.com/tyler2w2/social-media-ai/internal/model"
)

// AppendMessage adds a message to the bound user's conversation log
// and persists the full log. The log is append-only in memory; there
// is no diffing and, deliberately, no size bound.
func (s *UserSession) AppendMessage(ctx context.Context, msg model.Message) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.m.now()
	}
	s.st.conversation = append(s.st.conversation, msg)
	return s.persistConversation(ctx)
}

// Restore returns the conversation in append order for replay into the
// display. Each call returns a fresh copy, so the sequence is
// restartable by re-invoking.
func (s *UserSession) Restore() ([]model.Message, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	out := make([]model.Message, len(s.st.conversation))
	copy(out, s.st.conversation)
	return out, nil
}

// Snapshot is the read-only view used for export. It never mutates the
// log.
func (s *UserSession) Snapshot() ([]model.Message, error) {
	return s.Restore()
}

// AppendMessage appends to the current user's conversation.
func (m *Manager) AppendMessage(ctx context.Context, msg model.Message) error {
	s, err := m.currentSession()
	if err != nil {
		return err
	}
	return s.AppendMessage(ctx, msg)
}

// Restore replays the current user's conversation.
func (m *Manager) Restore() ([]model.Message, error) {
	s, err := m.currentSession()
	if err != nil {
		return nil, err
	}
	return s.Restore()
}

// Snapshot is the read-only view of the current user's conversation.
func (m *Manager) Snapshot() ([]model.Message, error) {
	return m.Restore()
}
