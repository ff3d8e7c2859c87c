package model

import (
	"fmt"
	"time"
)

// Role distinguishes the two sides of a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole validates a role read from the persisted store.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAssistant:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown message role %q", s)
}

// Message is a single turn in the conversation log. The log is
// append-only in memory and replaced wholesale on load; unlike the
// memory log it carries no size bound.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
