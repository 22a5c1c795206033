package models

import "time"

// ConversationType distinguishes one-on-one threads from group threads.
type ConversationType string

const (
	ConversationSingle ConversationType = "single"
	ConversationGroup  ConversationType = "group"
)

// Conversation is an ordered thread between one user and a set of agents.
type Conversation struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Title     string           `json:"title"`
	Type      ConversationType `json:"type"`
	Agents    []string         `json:"agents"`
	Members   int              `json:"members"` // always len(Agents)
	LastRead  *time.Time       `json:"last_read,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ConversationSummary is a conversation with its history preview.
type ConversationSummary struct {
	Conversation
	Preview string `json:"preview"`
	Unread  int    `json:"unread"`
}
