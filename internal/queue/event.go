// Package queue defines message payloads exchanged over the message
// broker.
package queue

// IdeaGeneratedEvent is published after each successful content
// generation. Downstream consumers can log or feed analytics without
// touching the session store.
type IdeaGeneratedEvent struct {
	UserID      string `json:"user_id"`
	Tier        string `json:"tier"`
	Topic       string `json:"topic"`
	Platform    string `json:"platform"`
	IdeaCount   int    `json:"idea_count"`
	GeneratedAt string `json:"generated_at"`
}
