package models

import "time"

// SenderType identifies who authored a message.
type SenderType string

const (
	SenderUser   SenderType = "user"
	SenderAgent  SenderType = "agent"
	SenderSystem SenderType = "system"
)

// Message is one immutable entry of a conversation.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderType     SenderType `json:"sender_type"`
	SenderID       string     `json:"sender_id,omitempty"` // user or agent id, empty for system
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at"`
}

// AgentResponse is one agent's reply to a turn. It is not stored as such;
// the caller persists it as an agent Message.
type AgentResponse struct {
	AgentID     string    `json:"agentId"`
	AgentName   string    `json:"agentName"`
	Avatar      string    `json:"avatar"`
	Personality string    `json:"personality"`
	Response    string    `json:"response"`
	Timestamp   time.Time `json:"timestamp"`
}
