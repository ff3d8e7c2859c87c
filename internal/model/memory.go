package model

import (
	"fmt"
	"time"
)

// MemoryKind classifies a memory log entry.
type MemoryKind string

const (
	MemoryUserQuery         MemoryKind = "user_query"
	MemoryContentGeneration MemoryKind = "content_generation"
	MemoryContentCopy       MemoryKind = "content_copy"
	MemoryConversation      MemoryKind = "conversation"
)

// MemoryCapacity is the hard bound on the memory log. Appends past the
// cap evict from the front, strict FIFO by insertion order regardless
// of kind.
const MemoryCapacity = 100

// ParseMemoryKind validates a kind read from a request or the store.
func ParseMemoryKind(s string) (MemoryKind, error) {
	switch MemoryKind(s) {
	case MemoryUserQuery, MemoryContentGeneration, MemoryContentCopy, MemoryConversation:
		return MemoryKind(s), nil
	}
	return "", fmt.Errorf("unknown memory kind %q", s)
}

// MemoryEntry is one item in the bounded rolling memory log. IDs are
// monotonic and time-based so entries sort by insertion even across
// restarts.
type MemoryEntry struct {
	ID        int64      `json:"id"`
	Content   string     `json:"content"`
	Kind      MemoryKind `json:"kind"`
	Timestamp time.Time  `json:"timestamp"`
	UserID    string     `json:"user_id"`
}
